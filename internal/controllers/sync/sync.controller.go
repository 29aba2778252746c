package syncController

import (
	"context"
	"time"

	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/internal/types"
	"waxworks/pkg/logger"
)

const statusHistoryLimit = 10

type SyncControllerInterface interface {
	Trigger(ctx context.Context, user *models.User) (*types.SyncTriggerResponse, error)
	Status(ctx context.Context, user *models.User) (*types.SyncStatusResponse, error)
}

type SyncController struct {
	syncService *services.SyncService
	historyRepo repositories.SyncHistoryRepository
	log         logger.Logger
}

func New(syncService *services.SyncService, historyRepo repositories.SyncHistoryRepository) SyncControllerInterface {
	return &SyncController{
		syncService: syncService,
		historyRepo: historyRepo,
		log:         logger.New("syncController"),
	}
}

// Trigger asks the sync engine to start a full sync. The engine answers with
// started, already_running, or cooldown; the handler maps those onto 202/429.
func (c *SyncController) Trigger(ctx context.Context, user *models.User) (*types.SyncTriggerResponse, error) {
	return c.syncService.Trigger(ctx, user)
}

func (c *SyncController) Status(ctx context.Context, user *models.User) (*types.SyncStatusResponse, error) {
	rows, err := c.historyRepo.ListRecent(ctx, user.ID, statusHistoryLimit)
	if err != nil {
		return nil, err
	}

	syncs := make([]types.SyncHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := types.SyncHistoryEntry{
			SyncID:      row.ID.String(),
			SyncType:    string(row.SyncType),
			Status:      string(row.Status),
			ItemsSynced: row.ItemsSynced,
			StartedAt:   row.StartedAt.UTC().Format(time.RFC3339),
		}
		if row.ErrorMessage != "" {
			message := row.ErrorMessage
			entry.Error = &message
		}
		if row.CompletedAt != nil {
			completed := row.CompletedAt.UTC().Format(time.RFC3339)
			entry.CompletedAt = &completed
		}
		syncs = append(syncs, entry)
	}

	return &types.SyncStatusResponse{Syncs: syncs}, nil
}
