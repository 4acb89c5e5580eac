// Package lock serializes verification runs per project. At most one
// run may hold a project at a time; concurrent submitters get a
// conflict and retry after the in-flight run completes.
package lock

import (
	"context"
	"sync"

	"veriterra/internal/verification/ports"
	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/sentinel"
)

// InMemoryLocker is a process-local project locker for tests and
// single-node deployments.
type InMemoryLocker struct {
	mu   sync.Mutex
	held map[id.ProjectID]struct{}
}

func NewMemory() *InMemoryLocker {
	return &InMemoryLocker{
		held: make(map[id.ProjectID]struct{}),
	}
}

func (l *InMemoryLocker) Acquire(_ context.Context, projectID id.ProjectID) (ports.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[projectID]; taken {
		return nil, sentinel.ErrConflict
	}
	l.held[projectID] = struct{}{}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, projectID)
			l.mu.Unlock()
		})
		return nil
	}
	return release, nil
}
