package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"waxworks/config"
	"waxworks/pkg/logger"

	"github.com/valkey-io/valkey-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type CacheClient valkey.Client

type Cache struct {
	General CacheClient
	Auth    CacheClient
	Sync    CacheClient
	Events  CacheClient
}

type DB struct {
	SQL   *gorm.DB
	Cache Cache
	log   logger.Logger
}

func New(config config.Config) (DB, error) {
	log := logger.New("database").Function("New")

	log.Info("Initializing database")
	db := &DB{log: log}

	err := db.initializeDB(config)
	if err != nil {
		return DB{}, log.Err("failed to initialize database", err)
	}

	err = db.initializeCacheDB(config)
	if err != nil {
		return DB{}, log.Err("failed to initialize cache database", err)
	}

	return *db, nil
}

func (s *DB) initializeDB(config config.Config) error {
	gormLogger := gormLogger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger:                                   gormLogger,
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		SkipDefaultTransaction:                   true,
	}

	return s.initializePostgresDB(gormConfig, config)
}

func (s *DB) initializePostgresDB(gormConfig *gorm.Config, config config.Config) error {
	log := s.log.Function("initializePostgresDB")

	if config.PostgresAddress == "" {
		return log.Error("postgres address is empty")
	}
	if config.PostgresDatabase == "" {
		return log.Error("postgres database is empty")
	}
	if config.PostgresUsername == "" {
		return log.Error("postgres username is empty")
	}

	host, port := SplitHostPort(config.PostgresAddress, "5432")
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		host,
		port,
		config.PostgresUsername,
		config.PostgresPassword,
		config.PostgresDatabase,
	)

	log.Info(
		"Connecting to PostgreSQL",
		"host",
		host,
		"port",
		port,
		"database",
		config.PostgresDatabase,
	)
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return log.Err("failed to open PostgreSQL database with GORM", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return log.Err("failed to ping PostgreSQL database through GORM", err)
	}

	log.Info("Successfully connected to PostgreSQL with GORM")
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s.SQL = db

	return nil
}

func (s *DB) Close() (err error) {
	if s.SQL != nil {
		sqlDB, err := s.SQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				_ = s.log.Err("failed to close database", err)
			}
		}
	}

	if s.Cache.General != nil {
		s.Cache.General.Close()
	}

	if s.Cache.Auth != nil {
		s.Cache.Auth.Close()
	}

	if s.Cache.Sync != nil {
		s.Cache.Sync.Close()
	}

	if s.Cache.Events != nil {
		s.Cache.Events.Close()
	}

	return err
}

func (s *DB) SQLWithContext(ctx context.Context) *gorm.DB {
	return s.SQL.WithContext(ctx)
}

func (s *DB) FlushAllCaches() error {
	log := s.log.Function("FlushAllCaches")
	log.Info("Flushing all cache databases")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cacheClients := []struct {
		client CacheClient
		name   string
	}{
		{s.Cache.General, "General"},
		{s.Cache.Auth, "Auth"},
		{s.Cache.Sync, "Sync"},
		{s.Cache.Events, "Events"},
	}

	for _, cache := range cacheClients {
		if cache.client != nil {
			if err := cache.client.Do(ctx, cache.client.B().Flushdb().Build()).Error(); err != nil {
				log.Er("Failed to flush cache database", err, "cache", cache.name)
				return err
			}
			log.Info("Successfully flushed cache database", "cache", cache.name)
		}
	}

	log.Info("All cache databases flushed successfully")
	return nil
}

// DeleteByPattern removes every key matching the glob pattern from the
// client's database via cursor SCAN, returning how many keys were deleted.
func DeleteByPattern(ctx context.Context, client CacheClient, pattern string) (int64, error) {
	var deleted int64
	var cursor uint64

	for {
		resp := client.Do(ctx, client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		entry, err := resp.AsScanEntry()
		if err != nil {
			return deleted, err
		}

		if len(entry.Elements) > 0 {
			count, err := client.Do(ctx, client.B().Del().Key(entry.Elements...).Build()).AsInt64()
			if err != nil {
				return deleted, err
			}
			deleted += count
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// SplitHostPort splits an "host:port" address, falling back to the
// provided default port when the address carries none.
func SplitHostPort(address, defaultPort string) (string, string) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return address, defaultPort
	}
	if port == "" {
		port = defaultPort
	}
	return host, port
}
