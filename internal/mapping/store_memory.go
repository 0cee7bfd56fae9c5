package mapping

import (
	"context"
	"sync"

	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

// InMemoryStore keeps mapping records in process memory. Record plus both
// secondary keys are written under one lock, which is the in-memory
// equivalent of the single-transaction dual-key write.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     map[string]*Record // by surrogate id
	byTechnical map[string]string
	byLegal     map[string]string
	bySequence  map[string]string // namespace|yearMonth|sequence
}

// NewInMemoryStore builds an empty in-memory mapping store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:     make(map[string]*Record),
		byTechnical: make(map[string]string),
		byLegal:     make(map[string]string),
		bySequence:  make(map[string]string),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqKey := sequenceKey(record.Namespace, record.YearMonth, record.Sequence)
	if _, taken := s.byTechnical[record.TechnicalID]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byLegal[record.LegalID]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.bySequence[seqKey]; taken {
		return sentinel.ErrConflict
	}

	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = requestcontext.Now(ctx)
	}
	key := stored.ID.String()
	s.records[key] = &stored
	s.byTechnical[stored.TechnicalID] = key
	s.byLegal[stored.LegalID] = key
	s.bySequence[seqKey] = key
	return nil
}

func (s *InMemoryStore) FindByTechnicalID(_ context.Context, technicalID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(s.byTechnical, technicalID)
}

func (s *InMemoryStore) FindByLegalID(_ context.Context, legalID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(s.byLegal, legalID)
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *InMemoryStore) find(index map[string]string, id string) (*Record, error) {
	key, ok := index[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	record := *s.records[key]
	return &record, nil
}

func sequenceKey(namespace, yearMonth, sequence string) string {
	return namespace + "|" + yearMonth + "|" + sequence
}

var _ Store = (*InMemoryStore)(nil)
