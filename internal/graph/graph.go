package graph

import (
	"context"
	"time"

	"waxworks/config"
	"waxworks/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Graph wraps one long-lived neo4j driver. The vendor driver already
// retries transient transaction categories inside ExecuteRead/ExecuteWrite;
// this wrapper adds session-acquisition retry and connection verification
// so callers only ever see errors that survived the retry budget.
type Graph struct {
	driver neo4j.DriverWithContext
	log    logger.Logger
}

func New(ctx context.Context, config config.Config) (*Graph, error) {
	log := logger.New("graph").Function("New")

	if config.Neo4jAddress == "" {
		return nil, log.Error("neo4j address is empty")
	}

	driver, err := neo4j.NewDriverWithContext(
		config.Neo4jAddress,
		neo4j.BasicAuth(config.Neo4jUsername, config.Neo4jPassword, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionLifetime = 30 * time.Minute
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 60 * time.Second
		},
	)
	if err != nil {
		return nil, log.Err("failed to create neo4j driver", err)
	}

	verify := func() error {
		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return driver.VerifyConnectivity(verifyCtx)
	}

	if err := backoff.Retry(verify, backoff.WithContext(connectBackoff(), ctx)); err != nil {
		_ = driver.Close(ctx)
		return nil, log.Err("failed to verify neo4j connectivity", err)
	}

	log.Info("Successfully connected to Neo4j", "address", config.Neo4jAddress)

	return &Graph{driver: driver, log: log}, nil
}

// ExecuteWrite runs work inside a managed write transaction, retrying
// session acquisition on transient failures.
func (g *Graph) ExecuteWrite(
	ctx context.Context,
	work neo4j.ManagedTransactionWork,
) (any, error) {
	var result any

	operation := func() error {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode: neo4j.AccessModeWrite,
		})
		defer func() { _ = session.Close(ctx) }()

		value, err := session.ExecuteWrite(ctx, work)
		if err != nil {
			if isFatal(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		result = value
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(connectBackoff(), ctx)); err != nil {
		return nil, err
	}

	return result, nil
}

// ExecuteRead runs work inside a managed read transaction, routed to
// replicas when the server is clustered.
func (g *Graph) ExecuteRead(
	ctx context.Context,
	work neo4j.ManagedTransactionWork,
) (any, error) {
	var result any

	operation := func() error {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode: neo4j.AccessModeRead,
		})
		defer func() { _ = session.Close(ctx) }()

		value, err := session.ExecuteRead(ctx, work)
		if err != nil {
			if isFatal(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		result = value
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(connectBackoff(), ctx)); err != nil {
		return nil, err
	}

	return result, nil
}

// ReadRows collects every record of a read query into maps keyed by the
// returned column names.
func (g *Graph) ReadRows(
	ctx context.Context,
	query string,
	params map[string]any,
) ([]map[string]any, error) {
	result, err := g.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var rows []map[string]any
		for records.Next(ctx) {
			record := records.Record()
			row := make(map[string]any, len(record.Keys))
			for i, key := range record.Keys {
				row[key] = record.Values[i]
			}
			rows = append(rows, row)
		}

		return rows, records.Err()
	})
	if err != nil {
		return nil, err
	}

	rows, _ := result.([]map[string]any)
	return rows, nil
}

// ReadSingle returns the first record of a read query, or ok=false when the
// query matched nothing.
func (g *Graph) ReadSingle(
	ctx context.Context,
	query string,
	params map[string]any,
) (map[string]any, bool, error) {
	rows, err := g.ReadRows(ctx, query, params)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// ReadCount runs a count query and returns the named integer column.
func (g *Graph) ReadCount(
	ctx context.Context,
	query string,
	params map[string]any,
	column string,
) (int64, error) {
	row, found, err := g.ReadSingle(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	count, _ := row[column].(int64)
	return count, nil
}

// Healthy reports whether the server answers a connectivity check.
func (g *Graph) Healthy(ctx context.Context) bool {
	verifyCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return g.driver.VerifyConnectivity(verifyCtx) == nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// isFatal separates errors no retry can fix (bad credentials, malformed
// Cypher) from transient connectivity trouble the backoff can ride out.
func isFatal(err error) bool {
	return !neo4j.IsRetryable(err)
}

// connectBackoff is the retry policy used around session acquisition and
// connectivity verification: exponential from 500ms capped at 30s, five
// attempts total.
func connectBackoff() backoff.BackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 30 * time.Second
	expBackoff.MaxElapsedTime = 0
	return backoff.WithMaxRetries(expBackoff, 4)
}
