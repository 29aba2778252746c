package repositories

import (
	"context"
	"waxworks/internal/database"
	. "waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type CollectionValueRepository interface {
	Upsert(ctx context.Context, value *UserCollectionValue) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*UserCollectionValue, error)
}

type collectionValueRepository struct {
	db  database.DB
	log logger.Logger
}

func NewCollectionValueRepository(db database.DB) CollectionValueRepository {
	return &collectionValueRepository{
		db:  db,
		log: logger.New("collectionValueRepository"),
	}
}

func (r *collectionValueRepository) Upsert(ctx context.Context, value *UserCollectionValue) error {
	log := r.log.Function("Upsert")

	if err := r.db.SQLWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"minimum",
				"median",
				"maximum",
				"currency",
				"synced_at",
				"updated_at",
			}),
		}).
		Create(value).Error; err != nil {
		return log.Err("failed to upsert collection value", err, "userID", value.UserID)
	}

	return nil
}

func (r *collectionValueRepository) GetByUser(
	ctx context.Context,
	userID uuid.UUID,
) (*UserCollectionValue, error) {
	var value UserCollectionValue
	if err := r.db.SQLWithContext(ctx).First(&value, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &value, nil
}
