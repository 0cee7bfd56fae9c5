package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"idbridge/internal/classify"
	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

// Schema for the registry table. Applied by deployments and by the
// integration test suite.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_entries (
    key         TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    category    TEXT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
`

// Postgres persists registry entries in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the registry table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, key string) (classify.RegistryEntry, error) {
	const query = `
SELECT key, entity_type, category, updated_at
FROM registry_entries
WHERE key = $1`

	var entry classify.RegistryEntry
	var entityType string
	err := s.pool.QueryRow(ctx, query, key).Scan(&entry.Key, &entityType, &entry.Category, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return classify.RegistryEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return classify.RegistryEntry{}, fmt.Errorf("find registry entry: %w", err)
	}
	entry.Type = classify.Type(entityType)
	return entry, nil
}

func (s *Postgres) Upsert(ctx context.Context, entry classify.RegistryEntry) error {
	const query = `
INSERT INTO registry_entries (key, entity_type, category, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET entity_type = EXCLUDED.entity_type,
    category    = EXCLUDED.category,
    updated_at  = EXCLUDED.updated_at`

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = requestcontext.Now(ctx)
	}
	if _, err := s.pool.Exec(ctx, query, entry.Key, string(entry.Type), entry.Category, updatedAt); err != nil {
		return fmt.Errorf("upsert registry entry: %w", err)
	}
	return nil
}

var _ classify.RegistryStore = (*Postgres)(nil)
