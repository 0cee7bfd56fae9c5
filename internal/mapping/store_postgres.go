package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"idbridge/internal/classify"
	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

// Schema for mapping records. One row per record; the unique constraints on
// technical_id, legal_id and the sequence slot are the dual-key indexes, so
// a single INSERT is the whole logical transaction.
const Schema = `
CREATE TABLE IF NOT EXISTS mapping_records (
    id           UUID PRIMARY KEY,
    technical_id TEXT NOT NULL UNIQUE,
    legal_id     TEXT NOT NULL UNIQUE,
    entity_type  TEXT NOT NULL,
    jurisdiction TEXT NOT NULL,
    trust_level  INT  NOT NULL,
    namespace    TEXT NOT NULL,
    sequence     TEXT NOT NULL,
    year_month   TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (namespace, year_month, sequence)
);
`

const uniqueViolation = "23505"

// PostgresStore persists mapping records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed mapping store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the mapping table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure mapping schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	const query = `
INSERT INTO mapping_records
    (id, technical_id, legal_id, entity_type, jurisdiction, trust_level,
     namespace, sequence, year_month, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = requestcontext.Now(ctx)
	}
	_, err := s.pool.Exec(ctx, query,
		record.ID, record.TechnicalID, record.LegalID, string(record.EntityType),
		record.Jurisdiction, record.TrustLevel, record.Namespace,
		record.Sequence, record.YearMonth, createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create mapping record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByTechnicalID(ctx context.Context, technicalID string) (*Record, error) {
	return s.findBy(ctx, "technical_id", technicalID)
}

func (s *PostgresStore) FindByLegalID(ctx context.Context, legalID string) (*Record, error) {
	return s.findBy(ctx, "legal_id", legalID)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mapping_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count mapping records: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) findBy(ctx context.Context, column, value string) (*Record, error) {
	query := fmt.Sprintf(`
SELECT id, technical_id, legal_id, entity_type, jurisdiction, trust_level,
       namespace, sequence, year_month, created_at
FROM mapping_records
WHERE %s = $1`, column)

	var record Record
	var entityType string
	err := s.pool.QueryRow(ctx, query, value).Scan(
		&record.ID, &record.TechnicalID, &record.LegalID, &entityType,
		&record.Jurisdiction, &record.TrustLevel, &record.Namespace,
		&record.Sequence, &record.YearMonth, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping record by %s: %w", column, err)
	}
	record.EntityType = classify.Type(entityType)
	return &record, nil
}

var _ Store = (*PostgresStore)(nil)
