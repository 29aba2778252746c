package database

import (
	"waxworks/internal/models"
	"waxworks/pkg/logger"
)

// MigrateModels runs GORM AutoMigrate for all application models. The
// catalog tables (artists/labels/masters/releases) are managed by SQL
// migrations instead since the sinks write them through pgx, not GORM.
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.User{},
		&models.OAuthToken{},
		&models.AppConfig{},
		&models.SyncHistory{},
		&models.UserCollectionItem{},
		&models.UserWantlistItem{},
		&models.UserCollectionValue{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			log.Error("Failed to migrate model", "model", model, "error", err)
			return err
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sync_history_user_started ON sync_histories(user_id, started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sync_history_status ON sync_histories(status)",
		"CREATE INDEX IF NOT EXISTS idx_user_collections_user ON user_collections(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_user_wantlists_user ON user_wantlists(user_id)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
			// Continue with other indexes even if one fails
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
