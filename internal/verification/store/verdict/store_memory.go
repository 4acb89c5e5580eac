package verdict

import (
	"context"
	"sort"
	"sync"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
	dErrors "veriterra/pkg/domain-errors"
	"veriterra/pkg/platform/sentinel"
)

// InMemoryStore is an append-only verdict history for tests and
// single-node deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	verdicts map[id.ProjectID][]models.Verdict
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		verdicts: make(map[id.ProjectID][]models.Verdict),
	}
}

func (s *InMemoryStore) Append(_ context.Context, verdict *models.Verdict) error {
	if verdict == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "verdict is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.verdicts[verdict.ProjectID]
	for _, existing := range history {
		if existing.DecidedAt.Equal(verdict.DecidedAt) {
			return dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict,
				"verdict already recorded at this decision time")
		}
	}
	s.verdicts[verdict.ProjectID] = append(history, *verdict)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, projectID id.ProjectID) ([]models.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.verdicts[projectID]
	out := make([]models.Verdict, len(history))
	copy(out, history)
	sort.Slice(out, func(i, j int) bool { return out[i].DecidedAt.Before(out[j].DecidedAt) })
	return out, nil
}

func (s *InMemoryStore) Latest(_ context.Context, projectID id.ProjectID) (*models.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.verdicts[projectID]
	if len(history) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := history[0]
	for _, v := range history[1:] {
		if v.DecidedAt.After(latest.DecidedAt) {
			latest = v
		}
	}
	return &latest, nil
}
