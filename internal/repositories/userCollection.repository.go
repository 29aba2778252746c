package repositories

import (
	"context"
	"time"

	"waxworks/internal/database"
	. "waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const COLLECTION_BATCH_SIZE = 500

type UserCollectionRepository interface {
	UpsertCollectionItems(ctx context.Context, items []*UserCollectionItem) error
	UpsertWantlistItems(ctx context.Context, items []*UserWantlistItem) error
	PruneCollectionBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, before time.Time) (int64, error)
	PruneWantlistBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, before time.Time) (int64, error)
	CountCollection(ctx context.Context, userID uuid.UUID) (int64, error)
	CountWantlist(ctx context.Context, userID uuid.UUID) (int64, error)
}

type userCollectionRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUserCollectionRepository(db database.DB) UserCollectionRepository {
	return &userCollectionRepository{
		db:  db,
		log: logger.New("userCollectionRepository"),
	}
}

// UpsertCollectionItems writes one page of collection rows in a single
// round-trip, keyed on (user_id, release_id, instance_id).
func (r *userCollectionRepository) UpsertCollectionItems(
	ctx context.Context,
	items []*UserCollectionItem,
) error {
	log := r.log.Function("UpsertCollectionItems")

	if len(items) == 0 {
		return nil
	}

	if err := r.db.SQLWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "release_id"},
				{Name: "instance_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"folder_id",
				"title",
				"artist",
				"year",
				"formats",
				"label",
				"rating",
				"date_added",
				"metadata",
				"updated_at",
			}),
		}).
		CreateInBatches(items, COLLECTION_BATCH_SIZE).Error; err != nil {
		return log.Err("failed to upsert collection items", err, "count", len(items))
	}

	return nil
}

// UpsertWantlistItems writes one page of wantlist rows in a single
// round-trip, keyed on (user_id, release_id).
func (r *userCollectionRepository) UpsertWantlistItems(
	ctx context.Context,
	items []*UserWantlistItem,
) error {
	log := r.log.Function("UpsertWantlistItems")

	if len(items) == 0 {
		return nil
	}

	if err := r.db.SQLWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "release_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"artist",
				"year",
				"format",
				"rating",
				"notes",
				"date_added",
				"updated_at",
			}),
		}).
		CreateInBatches(items, COLLECTION_BATCH_SIZE).Error; err != nil {
		return log.Err("failed to upsert wantlist items", err, "count", len(items))
	}

	return nil
}

// PruneCollectionBefore removes rows the latest full sync did not touch.
// Upserts stamp updated_at, so anything older than the run's start left the
// user's collection on Discogs. Hard deletes: a soft-deleted row would keep
// holding the unique index and shadow the item if the user re-adds it. Runs
// on the caller's transaction so both prunes commit together.
func (r *userCollectionRepository) PruneCollectionBefore(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	before time.Time,
) (int64, error) {
	log := r.log.Function("PruneCollectionBefore")

	result := tx.WithContext(ctx).Unscoped().
		Where("user_id = ? AND updated_at < ?", userID, before).
		Delete(&UserCollectionItem{})
	if result.Error != nil {
		return 0, log.Err("failed to prune collection items", result.Error, "userID", userID)
	}

	return result.RowsAffected, nil
}

// PruneWantlistBefore mirrors PruneCollectionBefore for wantlist rows.
func (r *userCollectionRepository) PruneWantlistBefore(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	before time.Time,
) (int64, error) {
	log := r.log.Function("PruneWantlistBefore")

	result := tx.WithContext(ctx).Unscoped().
		Where("user_id = ? AND updated_at < ?", userID, before).
		Delete(&UserWantlistItem{})
	if result.Error != nil {
		return 0, log.Err("failed to prune wantlist items", result.Error, "userID", userID)
	}

	return result.RowsAffected, nil
}

func (r *userCollectionRepository) CountCollection(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.log.Function("CountCollection")

	var count int64
	if err := r.db.SQLWithContext(ctx).
		Model(&UserCollectionItem{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count collection items", err, "userID", userID)
	}

	return count, nil
}

func (r *userCollectionRepository) CountWantlist(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.log.Function("CountWantlist")

	var count int64
	if err := r.db.SQLWithContext(ctx).
		Model(&UserWantlistItem{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count wantlist items", err, "userID", userID)
	}

	return count, nil
}
