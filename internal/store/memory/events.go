// Package memory holds process-local stores used by tests and DB_TYPE=memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type EventStore struct {
	mu      sync.RWMutex
	streams map[string][]core.EventRecord
}

func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]core.EventRecord)}
}

func (s *EventStore) Load(_ context.Context, _, aggregateID string) ([]core.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.streams[aggregateID]), nil
}

func (s *EventStore) Append(_ context.Context, _, aggregateID string, expectedVersion int, records []core.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.streams[aggregateID]) != expectedVersion {
		return core.ErrEventStreamConflict
	}
	s.streams[aggregateID] = append(s.streams[aggregateID], records...)
	return nil
}
