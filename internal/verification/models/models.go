// Package models defines the domain records of the verification engine:
// observations flowing in from evidence channels, per-check results, and the
// terminal verdict for a project submission.
package models

import (
	"time"

	id "veriterra/pkg/domain"
	dErrors "veriterra/pkg/domain-errors"
)

// Channel identifies one independent evidence source.
type Channel string

const (
	ChannelImagery                Channel = "imagery"
	ChannelRegistryCrossReference Channel = "registry_cross_reference"
	ChannelRemoteSensing          Channel = "remote_sensing"
	ChannelThirdPartyAudit        Channel = "third_party_audit"
)

// ParseChannel creates a Channel from a string, validating it.
func ParseChannel(s string) (Channel, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "evidence channel cannot be empty")
	}
	c := Channel(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown evidence channel %q", s)
	}
	return c, nil
}

// IsValid checks if the channel is one of the supported enum values.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelImagery, ChannelRegistryCrossReference, ChannelRemoteSensing, ChannelThirdPartyAudit:
		return true
	}
	return false
}

// String returns the string representation.
func (c Channel) String() string {
	return string(c)
}

// CheckName names a verification rule from the required-check set.
type CheckName string

const (
	CheckLandOwnership       CheckName = "land_ownership"
	CheckGPSCoordinates      CheckName = "gps_coordinates"
	CheckCarbonCalculations  CheckName = "carbon_calculations"
	CheckDataQuality         CheckName = "mrv_data_quality"
	CheckSpeciesVerification CheckName = "species_verification"
	CheckImageAnalysis       CheckName = "image_analysis"
)

// RequiredChecks returns the fixed required-check set in verdict order.
// Every check here must produce a CheckResult before a verdict is finalized.
func RequiredChecks() []CheckName {
	return []CheckName{
		CheckLandOwnership,
		CheckGPSCoordinates,
		CheckCarbonCalculations,
		CheckDataQuality,
		CheckSpeciesVerification,
		CheckImageAnalysis,
	}
}

// CheckStatus is the tri-level outcome of one check. The banding separates
// "confidently wrong" from "insufficient signal", which drive different
// downstream handling.
type CheckStatus string

const (
	StatusPassed       CheckStatus = "passed"
	StatusFailed       CheckStatus = "failed"
	StatusInconclusive CheckStatus = "inconclusive"
)

// VerdictStatus is the terminal decision for a project submission.
type VerdictStatus string

const (
	VerdictVerified         VerdictStatus = "verified"
	VerdictRejected         VerdictStatus = "rejected"
	VerdictNeedsHumanReview VerdictStatus = "needs_human_review"
)

// SessionState tracks a submission through its lifecycle.
// Pending -> Evaluating -> {Verified, Rejected, NeedsHumanReview}.
type SessionState string

const (
	SessionPending          SessionState = "pending"
	SessionEvaluating       SessionState = "evaluating"
	SessionVerified         SessionState = "verified"
	SessionRejected         SessionState = "rejected"
	SessionNeedsHumanReview SessionState = "needs_human_review"
)

// Terminal reports whether the state is one of the terminal decisions.
func (s SessionState) Terminal() bool {
	switch s {
	case SessionVerified, SessionRejected, SessionNeedsHumanReview:
		return true
	}
	return false
}

// RawEvidence is one already-fetched record from an evidence producer,
// before normalization. Value is set for numeric metrics, Label for
// categorical ones.
type RawEvidence struct {
	Channel          string    `json:"channel"`
	Metric           string    `json:"metric"`
	Value            *float64  `json:"value,omitempty"`
	Label            string    `json:"label,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
	SourceConfidence float64   `json:"source_confidence"`
}

// Observation is one normalized measurement from one evidence channel.
// Ref is a stable reference string used by CheckResults for their audit
// trail without owning the observation.
type Observation struct {
	Ref              string    `json:"ref"`
	Channel          Channel   `json:"channel"`
	Metric           string    `json:"metric"`
	Value            float64   `json:"value"`
	Label            string    `json:"label,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
	SourceConfidence float64   `json:"source_confidence"`
}

// IsCategorical reports whether the observation carries a label payload
// instead of a numeric value.
func (o Observation) IsCategorical() bool {
	return o.Label != ""
}

// CheckResult is the outcome of evaluating one named check.
//
// Confidence is defined only when Status != StatusInconclusive; an
// inconclusive result carries a non-empty Rationale instead.
type CheckResult struct {
	CheckName  CheckName   `json:"check_name"`
	Status     CheckStatus `json:"status"`
	Confidence float64     `json:"confidence"`
	// ContributingObservations holds observation refs in evaluation order.
	ContributingObservations []string `json:"contributing_observations"`
	Rationale                string   `json:"rationale"`
	// ChannelScores holds per-channel sub-scores for checks drawing on more
	// than one channel. The aggregator compares these for discrepancies.
	ChannelScores map[Channel]float64 `json:"channel_scores,omitempty"`
	// ChannelMeasures holds the per-channel physical measurement used for
	// check-specific physical tolerances (e.g. GPS offset in meters).
	ChannelMeasures map[Channel]float64 `json:"channel_measures,omitempty"`
	// Details carries underlying values needed downstream, such as the
	// reported sequestration rate behind a credit projection.
	Details map[string]float64 `json:"details,omitempty"`
}

// Discrepancy records a detected disagreement between two channels'
// sub-scores for the same check, exceeding tolerance. Channels are stored in
// lexical order so detection is symmetric.
type Discrepancy struct {
	CheckName CheckName `json:"check_name"`
	ChannelA  Channel   `json:"channel_a"`
	ChannelB  Channel   `json:"channel_b"`
	Magnitude float64   `json:"magnitude"`
	Unit      string    `json:"unit"`
	Detail    string    `json:"detail"`
}

// DataQualityNote records an evidence record the adapter rejected. Rejected
// records are excluded from evaluation but reported, never silently dropped.
type DataQualityNote struct {
	Channel string `json:"channel"`
	Metric  string `json:"metric"`
	Reason  string `json:"reason"`
}

// Verdict is the terminal, auditable decision for one project submission.
// Immutable after creation; superseded, never mutated, on resubmission.
// History is keyed by (ProjectID, DecidedAt).
type Verdict struct {
	ProjectID         id.ProjectID      `json:"project_id"`
	OverallStatus     VerdictStatus     `json:"overall_status"`
	OverallConfidence float64           `json:"overall_confidence"`
	Checks            []CheckResult     `json:"checks"`
	Discrepancies     []Discrepancy     `json:"discrepancies"`
	DataQualityNotes  []DataQualityNote `json:"data_quality_notes,omitempty"`
	DecidedAt         time.Time         `json:"decided_at"`
	Recommendations   []string          `json:"recommendations"`
	// EstimatedAnnualCredits is the projected issuance volume, set only on
	// verified verdicts and derived from the Carbon Calculations evidence.
	EstimatedAnnualCredits float64 `json:"estimated_annual_credits,omitempty"`
	// EvaluationDuration is the elapsed evaluation time, exposed for the
	// caller's own timeout policy.
	EvaluationDuration time.Duration `json:"evaluation_duration_ns"`
}

// FailingChecks returns the checks that failed, in verdict order.
func (v *Verdict) FailingChecks() []CheckResult {
	var failing []CheckResult
	for _, c := range v.Checks {
		if c.Status == StatusFailed {
			failing = append(failing, c)
		}
	}
	return failing
}
