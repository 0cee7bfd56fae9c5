// Package mapping owns the persisted bidirectional link between technical
// and legal identifiers.
//
// A Record is created exactly once per generated pair and never mutated.
// Both external ids resolve through secondary keys to one logical record
// keyed by a surrogate uuid, and implementations write record and keys in a
// single transaction, so a mapping is never retrievable from only one
// direction.
package mapping

import (
	"context"
	"time"

	"github.com/google/uuid"

	"idbridge/internal/classify"
)

// Record is the persisted mapping between one technical and one legal
// identifier. Append-only; no deletion or expiry path exists.
type Record struct {
	ID           uuid.UUID     `json:"id"`
	TechnicalID  string        `json:"technical_id"`
	LegalID      string        `json:"legal_id"`
	EntityType   classify.Type `json:"entity_type"`
	Jurisdiction string        `json:"jurisdiction"`
	TrustLevel   int           `json:"trust_level"`
	Namespace    string        `json:"namespace"`
	Sequence     string        `json:"sequence"`
	YearMonth    string        `json:"year_month"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store persists mapping records.
//
// Create returns sentinel.ErrConflict when the technical id, the legal id,
// or the (namespace, yearMonth, sequence) slot is already taken; the
// translation service redraws the sequence and retries. Finds return
// sentinel.ErrNotFound on miss.
type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByTechnicalID(ctx context.Context, technicalID string) (*Record, error)
	FindByLegalID(ctx context.Context, legalID string) (*Record, error)
	Count(ctx context.Context) (int, error)
}
