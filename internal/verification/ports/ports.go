// Package ports declares the collaborator interfaces the verification
// service depends on. Concrete implementations live in sibling packages
// (store, lock, dispatch) and in pkg/platform/audit.
package ports

import (
	"context"

	"veriterra/internal/verification/models"
	"veriterra/pkg/domain"
	"veriterra/pkg/platform/audit"
)

// VerdictStore is the append-only verdict history. Verdicts are never
// updated or deleted; a re-verification appends a new verdict that
// supersedes the previous one by recency.
type VerdictStore interface {
	// Append persists a decided verdict. Implementations must not
	// overwrite an existing (project, decidedAt) entry.
	Append(ctx context.Context, verdict *models.Verdict) error
	// History returns all verdicts for the project, oldest first.
	// An empty slice means the project has never been decided.
	History(ctx context.Context, projectID domain.ProjectID) ([]models.Verdict, error)
	// Latest returns the most recent verdict, or sentinel.ErrNotFound
	// when the project has none.
	Latest(ctx context.Context, projectID domain.ProjectID) (*models.Verdict, error)
}

// ReleaseFunc releases a held project lock. Calling it more than once
// is safe.
type ReleaseFunc func(ctx context.Context) error

// ProjectLocker serializes verification runs per project. Acquire
// returns sentinel.ErrConflict when another run holds the project.
type ProjectLocker interface {
	Acquire(ctx context.Context, projectID domain.ProjectID) (ReleaseFunc, error)
}

// Dispatcher delivers decided verdicts to the downstream systems that
// act on them: credit minting, the human review queue, and project
// developer notification. Dispatch failures never invalidate the
// persisted verdict.
type Dispatcher interface {
	Dispatch(ctx context.Context, verdict *models.Verdict) error
}

// AuditPublisher records compliance-relevant events. Emit failures
// never invalidate a decided verdict.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
