// Package session orchestrates one verification run per submission:
// lock the project, normalize evidence, evaluate the required checks in
// parallel, aggregate, persist the verdict, and notify downstream
// systems.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"veriterra/internal/verification/adapter"
	"veriterra/internal/verification/consensus"
	"veriterra/internal/verification/evaluator"
	"veriterra/internal/verification/metrics"
	"veriterra/internal/verification/models"
	"veriterra/internal/verification/ports"
	id "veriterra/pkg/domain"
	dErrors "veriterra/pkg/domain-errors"
	"veriterra/pkg/platform/audit"
	"veriterra/pkg/platform/sentinel"
)

// Clock supplies the decision timestamp. Injected so two runs over the
// same evidence can be compared verdict for verdict.
type Clock func() time.Time

// Service runs verification sessions.
type Service struct {
	adapter    *adapter.Adapter
	evaluators []evaluator.Evaluator
	aggregator *consensus.Aggregator
	store      ports.VerdictStore
	locker     ports.ProjectLocker

	dispatcher ports.Dispatcher
	auditor    ports.AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      Clock
	tracer     trace.Tracer

	sessions *stateTracker
}

// Option configures optional collaborators.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDispatcher attaches the outbound verdict dispatcher.
func WithDispatcher(d ports.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithAudit attaches the audit publisher.
func WithAudit(a ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a session service. Adapter, evaluators, aggregator, store,
// and locker are required; everything else is optional.
func New(
	adapt *adapter.Adapter,
	evaluators []evaluator.Evaluator,
	aggregator *consensus.Aggregator,
	store ports.VerdictStore,
	locker ports.ProjectLocker,
	opts ...Option,
) (*Service, error) {
	if adapt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "evidence adapter is required")
	}
	if len(evaluators) != len(models.RequiredChecks()) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"expected %d check evaluators, got %d", len(models.RequiredChecks()), len(evaluators))
	}
	if aggregator == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consensus aggregator is required")
	}
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verdict store is required")
	}
	if locker == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "project locker is required")
	}

	s := &Service{
		adapter:    adapt,
		evaluators: evaluators,
		aggregator: aggregator,
		store:      store,
		locker:     locker,
		logger:     slog.Default(),
		clock:      time.Now,
		tracer:     otel.Tracer("veriterra/verification"),
		sessions:   newStateTracker(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Submit runs one full verification over the supplied evidence and
// returns the persisted verdict.
//
// At most one run per project may be in flight; a concurrent submission
// gets a conflict and should retry after the current run completes.
// Cancellation before aggregation discards all partial results without
// recording anything.
func (s *Service) Submit(ctx context.Context, projectID id.ProjectID, evidence []models.RawEvidence) (*models.Verdict, error) {
	if projectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}

	ctx, span := s.tracer.Start(ctx, "verification.submit",
		trace.WithAttributes(
			attribute.String("project_id", projectID.String()),
			attribute.Int("evidence_count", len(evidence)),
		))
	defer span.End()

	release, err := s.locker.Acquire(ctx, projectID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) || errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict,
				"verification already in flight for this project; retry after it completes")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "acquire project lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.ErrorContext(ctx, "project lock release failed",
				"project_id", projectID.String(), "error", err)
		}
	}()

	s.sessions.begin(projectID)
	defer s.sessions.finish(projectID)

	started := s.clock()
	observations, notes := s.normalize(ctx, projectID, evidence)

	results, err := s.evaluate(ctx, observations)
	if err != nil {
		// Cancelled mid-evaluation: partial results are discarded and no
		// verdict exists for this submission.
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "evaluation cancelled; no verdict recorded")
	}
	for _, result := range results {
		s.metrics.IncrementCheckOutcome(string(result.CheckName), string(result.Status))
	}

	outcome := s.aggregator.Aggregate(results)
	for _, d := range outcome.Discrepancies {
		s.metrics.IncrementDiscrepancy(string(d.CheckName))
	}

	decidedAt := s.clock()
	verdict := &models.Verdict{
		ProjectID:              projectID,
		OverallStatus:          outcome.Status,
		OverallConfidence:      outcome.OverallConfidence,
		Checks:                 results,
		Discrepancies:          outcome.Discrepancies,
		DataQualityNotes:       notes,
		DecidedAt:              decidedAt.UTC(),
		Recommendations:        outcome.Recommendations,
		EstimatedAnnualCredits: outcome.EstimatedAnnualCredits,
		EvaluationDuration:     decidedAt.Sub(started),
	}

	if err := s.store.Append(ctx, verdict); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist verdict")
	}

	s.metrics.IncrementVerdictOutcome(string(verdict.OverallStatus))
	s.metrics.ObserveEvaluateLatency(verdict.EvaluationDuration)
	s.audit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		ProjectID: projectID,
		Action:    string(audit.EventVerdictDecided),
		Decision:  string(verdict.OverallStatus),
		Reason:    decisionReason(verdict),
	})

	// The verdict is already durable; a delivery failure is retried by the
	// downstream consumer's reconciliation, not by failing the submission.
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, verdict); err != nil {
			s.logger.ErrorContext(ctx, "verdict dispatch failed",
				"project_id", projectID.String(),
				"overall_status", string(verdict.OverallStatus),
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "verdict decided",
		"project_id", projectID.String(),
		"overall_status", string(verdict.OverallStatus),
		"overall_confidence", verdict.OverallConfidence,
		"discrepancies", len(verdict.Discrepancies),
		"rejected_evidence", len(notes),
	)
	return verdict, nil
}

// normalize runs every raw record through the adapter. Rejected records
// become data quality notes on the verdict; they never abort the run.
func (s *Service) normalize(ctx context.Context, projectID id.ProjectID, evidence []models.RawEvidence) ([]models.Observation, []models.DataQualityNote) {
	var observations []models.Observation
	var notes []models.DataQualityNote

	for seq, raw := range evidence {
		obs, err := s.adapter.Normalize(raw, seq)
		if err != nil {
			notes = append(notes, models.DataQualityNote{
				Channel: raw.Channel,
				Metric:  raw.Metric,
				Reason:  err.Error(),
			})
			s.metrics.IncrementEvidenceRejected(string(dErrors.CodeOf(err)))
			s.audit(ctx, audit.Event{
				Category:  audit.CategoryOperations,
				ProjectID: projectID,
				Action:    string(audit.EventEvidenceRejected),
				Reason:    err.Error(),
			})
			continue
		}
		observations = append(observations, obs)
	}
	return observations, notes
}

// evaluate runs the required checks in parallel. Evaluators are pure, so
// results land in a fixed-order slice without further coordination.
func (s *Service) evaluate(ctx context.Context, observations []models.Observation) ([]models.CheckResult, error) {
	results := make([]models.CheckResult, len(s.evaluators))

	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range s.evaluators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ev.Evaluate(observations)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The caller's context, not the group's; errgroup cancels its derived
	// context once Wait returns.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Reopen returns a project awaiting human review to the pending state so
// it can accept a corrected submission.
func (s *Service) Reopen(ctx context.Context, projectID id.ProjectID, reason string) error {
	if projectID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}

	latest, err := s.store.Latest(ctx, projectID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "project has no verdict to reopen")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "load latest verdict")
	}
	if latest.OverallStatus != models.VerdictNeedsHumanReview {
		return dErrors.Newf(dErrors.CodeConflict,
			"only sessions awaiting human review can be reopened; latest verdict is %q", latest.OverallStatus)
	}

	s.sessions.reopen(projectID)
	s.audit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		ProjectID: projectID,
		Action:    string(audit.EventSessionReopened),
		Reason:    reason,
	})
	s.logger.InfoContext(ctx, "session reopened",
		"project_id", projectID.String(), "reason", reason)
	return nil
}

// State reports where the project sits in its session lifecycle.
func (s *Service) State(ctx context.Context, projectID id.ProjectID) (models.SessionState, error) {
	if projectID.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}
	if state, ok := s.sessions.current(projectID); ok {
		return state, nil
	}

	latest, err := s.store.Latest(ctx, projectID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || errors.Is(err, sentinel.ErrNotFound) {
			return models.SessionPending, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "load latest verdict")
	}
	switch latest.OverallStatus {
	case models.VerdictVerified:
		return models.SessionVerified, nil
	case models.VerdictRejected:
		return models.SessionRejected, nil
	default:
		return models.SessionNeedsHumanReview, nil
	}
}

// History returns all verdicts for the project, oldest first.
func (s *Service) History(ctx context.Context, projectID id.ProjectID) ([]models.Verdict, error) {
	if projectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}
	return s.store.History(ctx, projectID)
}

// Latest returns the most recent verdict for the project.
func (s *Service) Latest(ctx context.Context, projectID id.ProjectID) (*models.Verdict, error) {
	if projectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "project id is required")
	}
	latest, err := s.store.Latest(ctx, projectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "project has no verdict")
		}
		return nil, err
	}
	return latest, nil
}

func (s *Service) audit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"project_id", event.ProjectID.String(), "action", event.Action, "error", err)
	}
}

func decisionReason(verdict *models.Verdict) string {
	if failing := verdict.FailingChecks(); len(failing) > 0 {
		names := make([]string, len(failing))
		for i, check := range failing {
			names[i] = string(check.CheckName)
		}
		return "failing checks: " + strings.Join(names, ", ")
	}
	if len(verdict.Discrepancies) > 0 {
		return "cross-channel discrepancies require human review"
	}
	return "all required checks evaluated"
}
