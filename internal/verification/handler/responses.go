package handler

import (
	"time"

	"veriterra/internal/verification/models"
)

// VerdictResponse is the HTTP shape of a decided verdict.
type VerdictResponse struct {
	ProjectID              string                   `json:"project_id"`
	OverallStatus          string                   `json:"overall_status"`
	OverallConfidence      float64                  `json:"overall_confidence"`
	Checks                 []models.CheckResult     `json:"checks"`
	Discrepancies          []models.Discrepancy     `json:"discrepancies"`
	DataQualityNotes       []models.DataQualityNote `json:"data_quality_notes,omitempty"`
	DecidedAt              time.Time                `json:"decided_at"`
	Recommendations        []string                 `json:"recommendations"`
	EstimatedAnnualCredits float64                  `json:"estimated_annual_credits,omitempty"`
	EvaluationDurationMS   int64                    `json:"evaluation_duration_ms"`
}

// FromVerdict maps a domain verdict to its response shape.
func FromVerdict(v *models.Verdict) VerdictResponse {
	return VerdictResponse{
		ProjectID:              v.ProjectID.String(),
		OverallStatus:          string(v.OverallStatus),
		OverallConfidence:      v.OverallConfidence,
		Checks:                 v.Checks,
		Discrepancies:          v.Discrepancies,
		DataQualityNotes:       v.DataQualityNotes,
		DecidedAt:              v.DecidedAt,
		Recommendations:        v.Recommendations,
		EstimatedAnnualCredits: v.EstimatedAnnualCredits,
		EvaluationDurationMS:   v.EvaluationDuration.Milliseconds(),
	}
}

// HistoryResponse is the HTTP shape of a project's verdict history.
type HistoryResponse struct {
	ProjectID string            `json:"project_id"`
	Verdicts  []VerdictResponse `json:"verdicts"`
}

// SessionStateResponse reports where a project sits in its session
// lifecycle.
type SessionStateResponse struct {
	ProjectID string `json:"project_id"`
	State     string `json:"state"`
}

// ReopenResponse acknowledges a reopened session.
type ReopenResponse struct {
	ProjectID string `json:"project_id"`
	State     string `json:"state"`
}
