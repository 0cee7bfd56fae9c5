package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"idbridge/internal/platform/config"
)

// Pool wraps a pgx connection pool with health checking capabilities.
type Pool struct {
	*pgxpool.Pool
}

// New creates a pgx pool from the provided configuration.
// Returns nil if the URL is empty (Postgres not configured).
func New(ctx context.Context, cfg config.PostgresConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Health checks if the Postgres connection is healthy.
func (p *Pool) Health(ctx context.Context) error {
	return p.Ping(ctx)
}
