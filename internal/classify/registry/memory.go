// Package registry provides implementations of classify.RegistryStore.
//
// The registry is treated as an external read-mostly service behind an
// interface: the in-memory store backs tests and single-node deployments,
// the postgres store is the durable implementation, and the redis store is a
// read-through cache decorator with explicit invalidation on upsert.
package registry

import (
	"context"
	"sync"

	"idbridge/internal/classify"
	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

// Memory is an in-memory registry store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]classify.RegistryEntry
}

// NewMemory builds an empty in-memory registry store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]classify.RegistryEntry)}
}

func (m *Memory) Find(_ context.Context, key string) (classify.RegistryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.entries[key]; ok {
		return entry, nil
	}
	return classify.RegistryEntry{}, sentinel.ErrNotFound
}

func (m *Memory) Upsert(ctx context.Context, entry classify.RegistryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = requestcontext.Now(ctx)
	}
	m.entries[entry.Key] = entry
	return nil
}
