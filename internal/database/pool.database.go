package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"waxworks/config"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgx connection pool for the catalog tables. The sinks use
// it directly instead of GORM: catalog writes are plain upserts against
// JSONB tables and never touch the application models.
type Pool struct {
	*pgxpool.Pool
	log logger.Logger
}

func NewPool(ctx context.Context, config config.Config) (*Pool, error) {
	log := logger.New("database").Function("NewPool")

	if config.PostgresAddress == "" {
		return nil, log.Error("postgres address is empty")
	}

	host, port := SplitHostPort(config.PostgresAddress, "5432")
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(config.PostgresUsername),
		url.QueryEscape(config.PostgresPassword),
		host,
		port,
		config.PostgresDatabase,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, log.Err("failed to parse postgres pool config", err)
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = 30 * time.Second

	log.Info("Connecting to PostgreSQL pool",
		"host", host,
		"port", port,
		"database", config.PostgresDatabase,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, log.Err("failed to create postgres pool", err)
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}

	if err := backoff.Retry(ping, backoff.WithContext(connectBackoff(), ctx)); err != nil {
		pool.Close()
		return nil, log.Err("failed to ping postgres pool", err)
	}

	log.Info("Successfully connected to PostgreSQL pool")

	return &Pool{Pool: pool, log: log}, nil
}

// EnsureCatalogTables creates the per-type catalog tables and their JSONB
// indexes when missing. The migration binary owns the canonical DDL; this
// keeps a sink bootable against a fresh database without ordering deploys.
// One transaction covers the whole set, so a half-bootstrapped schema never
// survives a failure partway through.
func (p *Pool) EnsureCatalogTables(ctx context.Context) error {
	return p.WithTx(ctx, func(tx pgx.Tx) error {
		for _, kind := range types.EntityKinds {
			table := kind.Table()

			ddl := fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id   TEXT PRIMARY KEY,
					data JSONB NOT NULL,
					hash TEXT NOT NULL
				)`, table)
			if _, err := tx.Exec(ctx, ddl); err != nil {
				return p.log.Err("failed to ensure catalog table", err, "table", table)
			}

			index := fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_data ON %s USING GIN (data)",
				table, table,
			)
			if _, err := tx.Exec(ctx, index); err != nil {
				return p.log.Err("failed to ensure catalog index", err, "table", table)
			}
		}
		return nil
	})
}

// WithTx runs fn inside a transaction, rolling back on error or panic.
func (p *Pool) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return p.log.Err("failed to begin transaction", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return p.log.Err("failed to commit transaction", err)
	}

	return nil
}

// Healthy reports whether the pool answers a ping within the timeout.
func (p *Pool) Healthy(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Ping(pingCtx) == nil
}

// connectBackoff is the retry policy used while establishing connectivity:
// exponential from 500ms capped at 30s, five attempts total.
func connectBackoff() backoff.BackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 30 * time.Second
	expBackoff.MaxElapsedTime = 0
	return backoff.WithMaxRetries(expBackoff, 4)
}
