// Package dispatch routes decided verdicts to the systems that act on
// them. Verified verdicts trigger credit minting, review verdicts enter
// the human review queue, and rejections notify the project developer.
package dispatch

import (
	"context"
	"log/slog"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
	dErrors "veriterra/pkg/domain-errors"
)

// MintRequest asks the credit ledger to mint the projected issuance for
// a verified project.
type MintRequest struct {
	ProjectID              id.ProjectID `json:"project_id"`
	OverallConfidence      float64      `json:"overall_confidence"`
	EstimatedAnnualCredits float64      `json:"estimated_annual_credits"`
}

// ReviewRequest places an escalated verdict on the human review queue
// with the full context a reviewer needs.
type ReviewRequest struct {
	ProjectID     id.ProjectID         `json:"project_id"`
	Discrepancies []models.Discrepancy `json:"discrepancies"`
	Checks        []models.CheckResult `json:"checks"`
}

// RejectionNotice informs the project developer which checks failed and
// what to fix before resubmitting.
type RejectionNotice struct {
	ProjectID       id.ProjectID         `json:"project_id"`
	FailingChecks   []models.CheckResult `json:"failing_checks"`
	Recommendations []string             `json:"recommendations"`
}

// route maps a verdict to its outbound message.
func route(verdict *models.Verdict) (kind string, payload any, err error) {
	switch verdict.OverallStatus {
	case models.VerdictVerified:
		return "mint_request", MintRequest{
			ProjectID:              verdict.ProjectID,
			OverallConfidence:      verdict.OverallConfidence,
			EstimatedAnnualCredits: verdict.EstimatedAnnualCredits,
		}, nil
	case models.VerdictNeedsHumanReview:
		return "review_request", ReviewRequest{
			ProjectID:     verdict.ProjectID,
			Discrepancies: verdict.Discrepancies,
			Checks:        verdict.Checks,
		}, nil
	case models.VerdictRejected:
		return "rejection_notice", RejectionNotice{
			ProjectID:       verdict.ProjectID,
			FailingChecks:   verdict.FailingChecks(),
			Recommendations: verdict.Recommendations,
		}, nil
	}
	return "", nil, dErrors.Newf(dErrors.CodeInternal, "no dispatch route for verdict status %q", verdict.OverallStatus)
}

// LogDispatcher records outbound messages to the structured log. Used
// in development and as the fallback when no broker is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, verdict *models.Verdict) error {
	kind, _, err := route(verdict)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "verdict dispatched",
		"kind", kind,
		"project_id", verdict.ProjectID.String(),
		"overall_status", string(verdict.OverallStatus),
		"overall_confidence", verdict.OverallConfidence,
	)
	return nil
}
