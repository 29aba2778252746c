package jobs

import (
	"context"
	"time"

	"waxworks/internal/services"
	"waxworks/pkg/logger"
)

// PeriodicSyncJob re-syncs users whose last completed sync has gone stale.
// It runs daily and hands each due user to the sync engine, which still
// applies its own cooldown and already-running checks.
type PeriodicSyncJob struct {
	syncService *services.SyncService
	checkDays   int
	log         logger.Logger
}

func NewPeriodicSyncJob(syncService *services.SyncService, checkDays int) *PeriodicSyncJob {
	return &PeriodicSyncJob{
		syncService: syncService,
		checkDays:   checkDays,
		log:         logger.New("jobs").File("periodic_sync_job"),
	}
}

func (j *PeriodicSyncJob) Name() string {
	return "periodic-sync"
}

func (j *PeriodicSyncJob) Schedule() services.Schedule {
	return services.Daily
}

func (j *PeriodicSyncJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	olderThan := time.Now().UTC().AddDate(0, 0, -j.checkDays)
	log.Info("Sweeping for stale collections", "olderThan", olderThan, "checkDays", j.checkDays)

	j.syncService.TriggerDueUsers(ctx, olderThan)
	return nil
}
