// Package memory keeps audit events in process for single-node deployments
// and tests.
package memory

import (
	"context"
	"sync"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TokenID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TokenID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TokenID] = append(s.events[event.TokenID], event)
	return nil
}

// ListByToken returns a copy of the token's events in append order.
func (s *InMemoryStore) ListByToken(_ context.Context, tokenID id.TokenID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[tokenID]...), nil
}
