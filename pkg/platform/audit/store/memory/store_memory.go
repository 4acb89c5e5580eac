// Package memory provides an in-memory audit store for development and tests.
package memory

import (
	"context"
	"sync"

	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/audit"
)

// InMemoryStore keeps audit events in a per-project slice. Append-only.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ProjectID][]audit.Event
}

// NewInMemoryStore creates an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[id.ProjectID][]audit.Event),
	}
}

// Append records an event. Events are never mutated or removed.
func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ProjectID] = append(s.events[event.ProjectID], event)
	return nil
}

// ListByProject returns all events recorded for a project, oldest first.
func (s *InMemoryStore) ListByProject(ctx context.Context, projectID id.ProjectID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[projectID]
	out := make([]audit.Event, len(stored))
	copy(out, stored)
	return out, nil
}
