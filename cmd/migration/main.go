package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"waxworks/cmd/migration/seed"
	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/graph"
	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/gorm"
)

const (
	MIGRATION_PATH = "cmd/migration/migrations"
	MIGRATION_DB   = "postgres"
)

// MODELS_TO_DROP is the reset scope for `seed`: application tables only.
// Catalog tables belong to the ingest sinks and survive a dev reset.
var MODELS_TO_DROP = []any{
	&models.User{},
	&models.OAuthToken{},
	&models.AppConfig{},
	&models.SyncHistory{},
	&models.UserCollectionItem{},
	&models.UserWantlistItem{},
	&models.UserCollectionValue{},
}

func main() {
	log := logger.New("migrations").Function("main")

	config, err := config.New(config.ProfileMigration)
	if err != nil {
		log.Er("failed to initialize config", err)
		os.Exit(1)
	}

	db, err := database.New(config)
	if err != nil {
		log.Er("failed to create database", err)
		os.Exit(1)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		err = migrateUp(db, config, log)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil {
				log.Er("failed to parse step count", err)
				os.Exit(1)
			}
		}
		err = migrateDown(steps, config, log)
	case "seed":
		err = migrateSeed(db, config, log)
	case "setup":
		err = setupAppConfig(db, config, log)
	default:
		err = log.Error("unknown command", "command", command)
	}

	if err != nil {
		log.Er("failed to run migrations", err)
		os.Exit(1)
	}

	log.Info("Migrations complete")
}

// migrateUp brings both stores current: SQL migrations and GORM models for
// Postgres, then constraints and indexes for the graph.
func migrateUp(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("migrateUp")
	log.Info("Running migrations up")

	if err := runMigrations(config, log, migrate.Up, 0); err != nil {
		return log.Err("failed to run migrations", err)
	}

	if err := db.MigrateModels(); err != nil {
		return log.Err("failed to migrate models", err)
	}

	if err := db.CreateIndexes(); err != nil {
		return log.Err("failed to create indexes", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gr, err := graph.New(ctx, config)
	if err != nil {
		return log.Err("failed to connect to graph database", err)
	}
	defer func() { _ = gr.Close(ctx) }()

	if err := gr.EnsureSchema(ctx); err != nil {
		return log.Err("failed to ensure graph schema", err)
	}

	return nil
}

func migrateDown(steps int, config config.Config, log logger.Logger) error {
	log = log.Function("migrateDown")
	log.Info("Running migrations down", "steps", steps)

	return runMigrations(config, log, migrate.Down, steps)
}

// migrateSeed resets the application tables to a fresh state and loads the
// development fixtures.
func migrateSeed(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("migrateSeed")
	log.Info("Running seed")

	if err := cleanDatabase(db.SQL, log); err != nil {
		return log.Err("failed to clean database", err)
	}

	if err := db.FlushAllCaches(); err != nil {
		return log.Err("failed to flush cache databases", err)
	}

	if err := migrateUp(db, config, log); err != nil {
		return log.Err("failed to migrate", err)
	}

	log.Info("Seeding database")
	if err := seed.Seed(db, config, log); err != nil {
		return log.Err("failed to seed database", err)
	}

	return nil
}

// setupAppConfig stores the Discogs consumer credentials in app_config,
// encrypted when OAUTH_ENCRYPTION_KEY is configured. After setup the API
// no longer needs the credentials in its environment.
func setupAppConfig(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("setupAppConfig")

	if config.DiscogsConsumerKey == "" || config.DiscogsConsumerSecret == "" {
		return log.ErrMsg("DISCOGS_CONSUMER_KEY and DISCOGS_CONSUMER_SECRET must be set for setup")
	}

	authService, err := services.NewAuthService(config, db)
	if err != nil {
		return log.Err("failed to initialize auth service", err)
	}

	appConfigRepo := repositories.NewAppConfigRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := authService.EncryptSecret(config.DiscogsConsumerKey)
	if err != nil {
		return log.Err("failed to encrypt consumer key", err)
	}
	secret, err := authService.EncryptSecret(config.DiscogsConsumerSecret)
	if err != nil {
		return log.Err("failed to encrypt consumer secret", err)
	}

	if err := appConfigRepo.Set(ctx, models.ConfigDiscogsConsumerKey, key); err != nil {
		return log.Err("failed to store consumer key", err)
	}
	if err := appConfigRepo.Set(ctx, models.ConfigDiscogsConsumerSecret, secret); err != nil {
		return log.Err("failed to store consumer secret", err)
	}

	log.Info("Stored Discogs consumer credentials in app_config")
	return nil
}

// runMigrations applies the SQL migration files. max bounds how many apply
// in the given direction; 0 means all of them.
func runMigrations(
	config config.Config,
	log logger.Logger,
	direction migrate.MigrationDirection,
	max int,
) error {
	log = log.Function("runMigrations")

	if _, err := os.Stat(MIGRATION_PATH); os.IsNotExist(err) {
		log.Info("Migrations directory does not exist, skipping file-based migrations")
		return nil
	}

	files, err := filepath.Glob(filepath.Join(MIGRATION_PATH, "*.sql"))
	if err != nil {
		return log.Err("failed to check for migration files", err)
	}

	if len(files) == 0 {
		log.Info("No migration files found, skipping file-based migrations")
		return nil
	}

	migrations := &migrate.FileMigrationSource{
		Dir: MIGRATION_PATH,
	}

	host, port := database.SplitHostPort(config.PostgresAddress, "5432")
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host,
		port,
		config.PostgresUsername,
		config.PostgresPassword,
		config.PostgresDatabase,
	)

	db, err := sql.Open(MIGRATION_DB, dsn)
	if err != nil {
		return log.Err("failed to open database for migrations", err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.Er("failed to close database", err)
		}
	}()

	n, err := migrate.ExecMax(db, MIGRATION_DB, migrations, direction, max)
	if err != nil {
		return log.Err("failed to run migrations", err)
	}

	if n == 0 {
		log.Info("No migrations to apply")
	} else {
		log.Info("Applied migrations", "migrationCount", n)
	}

	return nil
}

func cleanDatabase(db *gorm.DB, log logger.Logger) error {
	log = log.Function("cleanDatabase")
	log.Info("Cleaning application tables before seeding")

	if err := db.Migrator().DropTable(MODELS_TO_DROP...); err != nil {
		return log.Err("failed to drop tables", err)
	}

	log.Info("Application tables dropped")
	return nil
}
