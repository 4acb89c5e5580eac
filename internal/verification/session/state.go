package session

import (
	"sync"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
)

// stateTracker holds transient session states the verdict store cannot
// derive: Evaluating while a run is in flight, and Pending after a
// reopening until the next submission lands.
type stateTracker struct {
	mu       sync.Mutex
	inFlight map[id.ProjectID]struct{}
	reopened map[id.ProjectID]struct{}
}

func newStateTracker() *stateTracker {
	return &stateTracker{
		inFlight: make(map[id.ProjectID]struct{}),
		reopened: make(map[id.ProjectID]struct{}),
	}
}

func (t *stateTracker) begin(projectID id.ProjectID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight[projectID] = struct{}{}
	delete(t.reopened, projectID)
}

func (t *stateTracker) finish(projectID id.ProjectID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, projectID)
}

func (t *stateTracker) reopen(projectID id.ProjectID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reopened[projectID] = struct{}{}
}

// current returns the transient state, if any.
func (t *stateTracker) current(projectID id.ProjectID) (models.SessionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inFlight[projectID]; ok {
		return models.SessionEvaluating, true
	}
	if _, ok := t.reopened[projectID]; ok {
		return models.SessionPending, true
	}
	return "", false
}
