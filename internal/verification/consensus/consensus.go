// Package consensus reconciles the required CheckResults into one verdict:
// cross-channel discrepancy detection, overall confidence, the ordered
// status decision, and advisory recommendations.
package consensus

import (
	"fmt"
	"sort"

	"veriterra/internal/verification/models"
)

// PhysicalTolerance is a check-specific tolerance on the physical
// measurement two channels report for the same check.
type PhysicalTolerance struct {
	Value float64
	Unit  string
}

// Tolerances bounds acceptable cross-channel disagreement.
type Tolerances struct {
	// Confidence is the allowed gap between two channels' sub-scores,
	// in confidence points.
	Confidence float64
	// Physical maps checks to tolerances on their channel measures.
	Physical map[models.CheckName]PhysicalTolerance
}

// DefaultTolerances returns the standing disagreement policy: 15 confidence
// points, and 5 m of GPS offset between corroborating channels.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Confidence: 0.15,
		Physical: map[models.CheckName]PhysicalTolerance{
			models.CheckGPSCoordinates: {Value: 5.0, Unit: "m"},
		},
	}
}

// Aggregator combines CheckResults into the verdict-level decision.
type Aggregator struct {
	tolerances Tolerances
	// verifyConfidence is the overall-confidence floor for Verified.
	verifyConfidence float64
	// rejectConfidence is the check-confidence floor at which a failure is
	// confident enough to reject outright.
	rejectConfidence float64
	// coverageCap bounds overall confidence when required checks are
	// missing scores.
	coverageCap float64
}

// New creates an aggregator with the given tolerances and standing decision
// thresholds.
func New(tolerances Tolerances) *Aggregator {
	return &Aggregator{
		tolerances:       tolerances,
		verifyConfidence: 0.95,
		rejectConfidence: 0.90,
		coverageCap:      0.80,
	}
}

// Outcome is the aggregate decision derived from the six CheckResults.
type Outcome struct {
	Status                 models.VerdictStatus
	OverallConfidence      float64
	Discrepancies          []models.Discrepancy
	Recommendations        []string
	EstimatedAnnualCredits float64
}

// Aggregate reconciles the required checks. The caller guarantees one
// CheckResult per required check, in verdict order.
func (a *Aggregator) Aggregate(checks []models.CheckResult) Outcome {
	discrepancies := a.detectDiscrepancies(checks)
	overall, scored := a.overallConfidence(checks)
	status := a.decide(checks, discrepancies, overall, scored)

	out := Outcome{
		Status:            status,
		OverallConfidence: overall,
		Discrepancies:     discrepancies,
	}
	if status == models.VerdictVerified {
		out.EstimatedAnnualCredits = estimatedCredits(checks)
	}
	out.Recommendations = a.recommendations(checks, discrepancies, out)
	return out
}

// detectDiscrepancies compares channel-level sub-scores (and physical
// measures where a check defines them) pairwise. Disagreement is recorded,
// never silently averaged away. Channel pairs are ordered lexically so
// detection is symmetric in the input order.
func (a *Aggregator) detectDiscrepancies(checks []models.CheckResult) []models.Discrepancy {
	var found []models.Discrepancy
	for _, check := range checks {
		for _, pair := range channelPairs(check.ChannelScores) {
			gap := abs(check.ChannelScores[pair[0]] - check.ChannelScores[pair[1]])
			if gap > a.tolerances.Confidence {
				found = append(found, models.Discrepancy{
					CheckName: check.CheckName,
					ChannelA:  pair[0],
					ChannelB:  pair[1],
					Magnitude: gap,
					Unit:      "confidence",
					Detail: fmt.Sprintf("channel sub-scores differ by %.0f confidence points (tolerance %.0f)",
						gap*100, a.tolerances.Confidence*100),
				})
			}
		}

		tol, ok := a.tolerances.Physical[check.CheckName]
		if !ok {
			continue
		}
		for _, pair := range channelPairs(check.ChannelMeasures) {
			gap := abs(check.ChannelMeasures[pair[0]] - check.ChannelMeasures[pair[1]])
			if gap > tol.Value {
				found = append(found, models.Discrepancy{
					CheckName: check.CheckName,
					ChannelA:  pair[0],
					ChannelB:  pair[1],
					Magnitude: gap,
					Unit:      tol.Unit,
					Detail: fmt.Sprintf("channels disagree by %.1f %s (tolerance %.1f %s)",
						gap, tol.Unit, tol.Value, tol.Unit),
				})
			}
		}
	}
	return found
}

// overallConfidence averages Passed/Failed check confidences. Inconclusive
// checks are excluded from the mean but count against coverage: fewer than
// the full required set of scored checks caps the result, reflecting
// incomplete evidence.
func (a *Aggregator) overallConfidence(checks []models.CheckResult) (float64, int) {
	sum, scored := 0.0, 0
	for _, check := range checks {
		if check.Status == models.StatusInconclusive {
			continue
		}
		sum += check.Confidence
		scored++
	}
	if scored == 0 {
		return 0, 0
	}
	overall := sum / float64(scored)
	if scored < len(models.RequiredChecks()) && overall > a.coverageCap {
		overall = a.coverageCap
	}
	return overall, scored
}

// decide applies the ordered status rules; first match wins.
func (a *Aggregator) decide(checks []models.CheckResult, discrepancies []models.Discrepancy, overall float64, scored int) models.VerdictStatus {
	// 1. A confident failure rejects outright.
	for _, check := range checks {
		if check.Status == models.StatusFailed && check.Confidence >= a.rejectConfidence {
			return models.VerdictRejected
		}
	}
	// 2. Unresolved cross-channel disagreement always goes to a human.
	if len(discrepancies) > 0 {
		return models.VerdictNeedsHumanReview
	}
	// 3. Full coverage, all passed, high confidence.
	if scored == len(checks) && allPassed(checks) && overall >= a.verifyConfidence {
		return models.VerdictVerified
	}
	// 4. Everything else is reviewable, not a false Verified.
	return models.VerdictNeedsHumanReview
}

// correctiveGuidance maps failing checks to developer-facing remediation.
var correctiveGuidance = map[models.CheckName]string{
	models.CheckLandOwnership:       "resolve the registry ownership mismatch and resubmit the deed records",
	models.CheckGPSCoordinates:      "re-survey the project boundary with sub-2m GPS equipment",
	models.CheckCarbonCalculations:  "recompute the sequestration estimate against the ecosystem baseline model",
	models.CheckDataQuality:         "close the monitoring record gaps before the next reporting window",
	models.CheckSpeciesVerification: "commission a field audit of the planted species composition",
	models.CheckImageAnalysis:       "resubmit original, unedited site imagery with intact metadata",
}

func (a *Aggregator) recommendations(checks []models.CheckResult, discrepancies []models.Discrepancy, out Outcome) []string {
	var recs []string
	for _, check := range checks {
		switch check.Status {
		case models.StatusFailed:
			recs = append(recs, fmt.Sprintf("%s failed: %s", check.CheckName, correctiveGuidance[check.CheckName]))
		case models.StatusInconclusive:
			recs = append(recs, fmt.Sprintf("%s is inconclusive (%s): supply additional evidence", check.CheckName, check.Rationale))
		}
	}
	for _, d := range discrepancies {
		recs = append(recs, fmt.Sprintf("reconcile %s disagreement between %s and %s before re-review", d.CheckName, d.ChannelA, d.ChannelB))
	}
	if out.Status == models.VerdictVerified && out.EstimatedAnnualCredits > 0 {
		recs = append(recs, fmt.Sprintf("projected issuance: %.1f carbon credits per year at current sequestration rate", out.EstimatedAnnualCredits))
	}
	return recs
}

// estimatedCredits projects annual credit volume from the Carbon
// Calculations evidence: one credit per tCO2e of reported sequestration.
func estimatedCredits(checks []models.CheckResult) float64 {
	for _, check := range checks {
		if check.CheckName != models.CheckCarbonCalculations {
			continue
		}
		return check.Details["reported_rate_tco2e_per_year"]
	}
	return 0
}

func allPassed(checks []models.CheckResult) bool {
	for _, check := range checks {
		if check.Status != models.StatusPassed {
			return false
		}
	}
	return len(checks) > 0
}

// channelPairs returns all channel pairs of a sub-score map in lexical
// order, for deterministic, symmetric comparison.
func channelPairs(scores map[models.Channel]float64) [][2]models.Channel {
	if len(scores) < 2 {
		return nil
	}
	chans := make([]models.Channel, 0, len(scores))
	for ch := range scores {
		chans = append(chans, ch)
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i] < chans[j] })

	var pairs [][2]models.Channel
	for i := 0; i < len(chans); i++ {
		for j := i + 1; j < len(chans); j++ {
			pairs = append(pairs, [2]models.Channel{chans[i], chans[j]})
		}
	}
	return pairs
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
