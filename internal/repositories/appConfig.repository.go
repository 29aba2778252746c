package repositories

import (
	"context"
	"waxworks/internal/database"
	. "waxworks/internal/models"
	"waxworks/pkg/logger"

	"gorm.io/gorm/clause"
)

type AppConfigRepository interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

type appConfigRepository struct {
	db  database.DB
	log logger.Logger
}

func NewAppConfigRepository(db database.DB) AppConfigRepository {
	return &appConfigRepository{
		db:  db,
		log: logger.New("appConfigRepository"),
	}
}

func (r *appConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var row AppConfig
	if err := r.db.SQLWithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return "", err
	}
	return row.Value, nil
}

func (r *appConfigRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	log := r.log.Function("GetMany")

	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	var rows []AppConfig
	if err := r.db.SQLWithContext(ctx).Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, log.Err("failed to get config values", err, "keys", keys)
	}

	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Value
	}

	return result, nil
}

func (r *appConfigRepository) Set(ctx context.Context, key, value string) error {
	log := r.log.Function("Set")

	row := AppConfig{Key: key, Value: value}
	if err := r.db.SQLWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error; err != nil {
		return log.Err("failed to set config value", err, "key", key)
	}

	return nil
}
