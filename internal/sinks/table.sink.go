package sinks

import (
	"context"
	"errors"
	"fmt"

	"waxworks/internal/database"
	"waxworks/internal/types"

	"github.com/jackc/pgx/v5"
)

// TableStore writes each record's full canonical JSON document into the
// per-type catalog table, keyed by id. Table names come from the entity
// kind enum, never from message content.
type TableStore struct {
	pool *database.Pool
}

func NewTableStore(pool *database.Pool) *TableStore {
	return &TableStore{pool: pool}
}

func (s *TableStore) ReadHash(
	ctx context.Context,
	kind types.EntityKind,
	id string,
) (string, bool, error) {
	query := fmt.Sprintf("SELECT hash FROM %s WHERE id = $1", kind.Table())

	var hash string
	err := s.pool.QueryRow(ctx, query, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return hash, true, nil
}

func (s *TableStore) Write(ctx context.Context, record Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, hash = EXCLUDED.hash`,
		record.Kind.Table(),
	)

	_, err := s.pool.Exec(ctx, query, record.ID, string(record.Canonical), record.Hash)
	return err
}
