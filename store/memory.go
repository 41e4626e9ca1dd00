package store

import (
	"context"
	"sync"

	"github.com/concolic-go/concolic/emit"
	"github.com/google/uuid"
)

// MemStore is an in-memory Store, used by tests, as the engine's default,
// and by the CLI for every run.
type MemStore struct {
	mu     sync.RWMutex
	trees  map[string][]NodeRecord
	outbox []PendingEvent
	emitted map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		trees:   map[string][]NodeRecord{},
		emitted: map[string]bool{},
	}
}

func (m *MemStore) SaveTree(_ context.Context, runID string, nodes []NodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]NodeRecord, len(nodes))
	copy(cp, nodes)
	m.trees[runID] = cp
	return nil
}

func (m *MemStore) LoadTree(_ context.Context, runID string) ([]NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes, ok := m.trees[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return nodes, nil
}

func (m *MemStore) SaveEvents(_ context.Context, runID string, events []emit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.outbox = append(m.outbox, PendingEvent{ID: uuid.NewString(), RunID: runID, Event: e})
	}
	return nil
}

func (m *MemStore) PendingEvents(_ context.Context, limit int) ([]PendingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PendingEvent, 0, limit)
	for _, pe := range m.outbox {
		if m.emitted[pe.ID] {
			continue
		}
		out = append(out, pe)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemStore) MarkEventsEmitted(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.emitted[id] = true
	}
	return nil
}

func (m *MemStore) Close() error { return nil }
