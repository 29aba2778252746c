package repositories

import (
	"context"
	"time"
	"waxworks/internal/database"
	. "waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncHistoryRepository interface {
	Create(ctx context.Context, userID uuid.UUID, syncType SyncType) (*SyncHistory, error)
	Finalize(ctx context.Context, id uuid.UUID, status SyncStatus, itemsSynced, pagesFetched int, errorMessage string) error
	LatestRunning(ctx context.Context, userID uuid.UUID) (*SyncHistory, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]SyncHistory, error)
	FailStaleRunning(ctx context.Context, reason string) (int64, error)
	UsersDueForSync(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error)
}

type syncHistoryRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSyncHistoryRepository(db database.DB) SyncHistoryRepository {
	return &syncHistoryRepository{
		db:  db,
		log: logger.New("syncHistoryRepository"),
	}
}

func (r *syncHistoryRepository) Create(
	ctx context.Context,
	userID uuid.UUID,
	syncType SyncType,
) (*SyncHistory, error) {
	log := r.log.Function("Create")

	history := &SyncHistory{
		UserID:    userID,
		SyncType:  syncType,
		Status:    SyncStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.db.SQLWithContext(ctx).Create(history).Error; err != nil {
		return nil, log.Err("failed to create sync history row", err, "userID", userID)
	}

	return history, nil
}

// Finalize writes the terminal state of a sync run. It is the single exit
// path for every run, success or failure.
func (r *syncHistoryRepository) Finalize(
	ctx context.Context,
	id uuid.UUID,
	status SyncStatus,
	itemsSynced, pagesFetched int,
	errorMessage string,
) error {
	log := r.log.Function("Finalize")

	updates := map[string]any{
		"status":        status,
		"items_synced":  itemsSynced,
		"pages_fetched": pagesFetched,
		"error_message": errorMessage,
		"completed_at":  gorm.Expr("NOW()"),
	}
	if err := r.db.SQLWithContext(ctx).
		Model(&SyncHistory{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return log.Err("failed to finalize sync history row", err, "id", id, "status", status)
	}

	return nil
}

func (r *syncHistoryRepository) LatestRunning(ctx context.Context, userID uuid.UUID) (*SyncHistory, error) {
	var history SyncHistory
	err := r.db.SQLWithContext(ctx).
		Where("user_id = ? AND status = ?", userID, SyncStatusRunning).
		Order("started_at DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *syncHistoryRepository) ListRecent(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]SyncHistory, error) {
	log := r.log.Function("ListRecent")

	var rows []SyncHistory
	if err := r.db.SQLWithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, log.Err("failed to list sync history", err, "userID", userID)
	}

	return rows, nil
}

// FailStaleRunning marks every `running` row as failed. Sync tasks do not
// survive a process restart, so any row still running at startup was
// orphaned by the previous process.
func (r *syncHistoryRepository) FailStaleRunning(ctx context.Context, reason string) (int64, error) {
	log := r.log.Function("FailStaleRunning")

	result := r.db.SQLWithContext(ctx).
		Model(&SyncHistory{}).
		Where("status = ?", SyncStatusRunning).
		Updates(map[string]any{
			"status":        SyncStatusFailed,
			"error_message": reason,
			"completed_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return 0, log.Err("failed to clean up stale sync rows", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Info("Marked stale running syncs as failed", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// UsersDueForSync returns users with a linked Discogs token whose most
// recent completed sync predates the cutoff (or who never completed one).
func (r *syncHistoryRepository) UsersDueForSync(
	ctx context.Context,
	olderThan time.Time,
) ([]uuid.UUID, error) {
	log := r.log.Function("UsersDueForSync")

	var userIDs []uuid.UUID
	err := r.db.SQLWithContext(ctx).Raw(`
		SELECT ot.user_id
		FROM oauth_tokens ot
		WHERE ot.provider = ?
		  AND NOT EXISTS (
			SELECT 1 FROM sync_histories sh
			WHERE sh.user_id = ot.user_id
			  AND sh.status = ?
			  AND sh.started_at > ?
		  )`,
		ProviderDiscogs, SyncStatusCompleted, olderThan,
	).Scan(&userIDs).Error
	if err != nil {
		return nil, log.Err("failed to find users due for sync", err)
	}

	return userIDs, nil
}
