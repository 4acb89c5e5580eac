package handler

import (
	"strings"
	"time"

	"veriterra/internal/verification/models"
	dErrors "veriterra/pkg/domain-errors"
)

// maxEvidenceRecords bounds a single submission. Larger submissions
// should be split by reporting period.
const maxEvidenceRecords = 1000

// EvidenceRecord is one raw evidence record in a submission body.
type EvidenceRecord struct {
	Channel          string    `json:"channel"`
	Metric           string    `json:"metric"`
	Value            *float64  `json:"value,omitempty"`
	Label            string    `json:"label,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
	SourceConfidence float64   `json:"source_confidence"`
}

// SubmitRequest is the HTTP request body for POST /projects/{projectID}/submissions.
//
// Validation here is structural only. Per-record semantic problems
// (unknown metrics, out-of-range values) are the adapter's to report as
// data quality notes on the verdict, not reasons to refuse the request.
type SubmitRequest struct {
	Evidence []EvidenceRecord `json:"evidence"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	if len(r.Evidence) == 0 {
		return dErrors.New(dErrors.CodeValidation, "evidence array must not be empty")
	}
	if len(r.Evidence) > maxEvidenceRecords {
		return dErrors.Newf(dErrors.CodeValidation, "evidence array exceeds %d records", maxEvidenceRecords)
	}
	return nil
}

// Records converts the body into domain raw evidence.
func (r *SubmitRequest) Records() []models.RawEvidence {
	records := make([]models.RawEvidence, len(r.Evidence))
	for i, e := range r.Evidence {
		records[i] = models.RawEvidence{
			Channel:          e.Channel,
			Metric:           e.Metric,
			Value:            e.Value,
			Label:            e.Label,
			CapturedAt:       e.CapturedAt,
			SourceConfidence: e.SourceConfidence,
		}
	}
	return records
}

// ReopenRequest is the HTTP request body for POST /projects/{projectID}/reopen.
type ReopenRequest struct {
	Reason string `json:"reason"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ReopenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 500 characters")
	}
	return nil
}
