package files

import (
	"context"
	"slices"
	"sync"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type MemoryStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{content: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, tenantID, contentID, _ string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[objectKey(tenantID, contentID)] = slices.Clone(content)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tenantID, contentID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.content[objectKey(tenantID, contentID)]
	if !ok {
		return nil, core.ErrFileContentNotFound
	}
	return slices.Clone(data), nil
}
