package audit

import (
	"context"
	"time"

	id "veriterra/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance.
	// Verdict decisions fall here: registries and auditors may request the
	// full decision trail for a project years after issuance.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility, such as rejected evidence records and session reopenings.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key verification actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	ProjectID id.ProjectID
	Action    string
	// Decision carries the overall verdict status for verdict events.
	Decision string
	// Reason summarizes why the action happened (failing checks, adapter
	// rejection cause, reopening justification).
	Reason string
}

// AuditAction names the recognized audit actions.
type AuditAction string

const (
	EventVerdictDecided   AuditAction = "verdict_decided"
	EventEvidenceRejected AuditAction = "evidence_rejected"
	EventSessionReopened  AuditAction = "session_reopened"
)

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]Event, error)
}
