// Package audit records generation and translation events.
//
// Audit failures never fail the request: the emitter logs and moves on.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"idbridge/pkg/requestcontext"
)

// Actions emitted by the translation service.
const (
	ActionGenerated  = "hybrid_id.generated"
	ActionTranslated = "hybrid_id.translated"
)

// Event is one audit record.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	TechnicalID string    `json:"technical_id,omitempty"`
	LegalID     string    `json:"legal_id,omitempty"`
	Direction   string    `json:"direction,omitempty"`
	Source      string    `json:"source,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher delivers audit events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Emitter stamps and publishes events, swallowing publisher errors.
type Emitter struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewEmitter builds an emitter; a nil publisher disables auditing.
func NewEmitter(publisher Publisher, logger *slog.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit stamps id, request id and time, then publishes.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	event.ID = uuid.New()
	event.RequestID = requestcontext.RequestID(ctx)
	event.At = requestcontext.Now(ctx)

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "audit publish failed",
			"action", event.Action,
			"error", err.Error(),
		)
	}
}

// MemoryPublisher collects events in memory for tests and dev runs.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher builds an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func (p *MemoryPublisher) Close() {}

var _ Publisher = (*MemoryPublisher)(nil)
