package evaluator

import (
	"fmt"
	"strings"

	"veriterra/internal/verification/models"
)

// bounds accumulates the per-metric policy tests of one check so pass
// strength and failure decisiveness are derived the same way everywhere:
// the weakest satisfied margin, or the grossest violated bound.
type bounds struct {
	passStrength float64
	worstBreach  float64
	violations   []string
	any          bool
}

func newBounds() *bounds {
	return &bounds{passStrength: 1}
}

// upper tests v against an upper bound.
func (b *bounds) upper(desc string, v, bound float64) {
	b.any = true
	if v <= bound {
		if s := withinStrength(v, bound); s < b.passStrength {
			b.passStrength = s
		}
		return
	}
	breach := (v - bound) / bound
	if bound == 0 {
		breach = 1
	}
	if breach > b.worstBreach {
		b.worstBreach = breach
	}
	b.violations = append(b.violations, fmt.Sprintf("%s %.2f exceeds limit %.2f", desc, v, bound))
}

// lower tests v against a lower bound.
func (b *bounds) lower(desc string, v, bound float64) {
	b.any = true
	if v >= bound {
		if s := aboveStrength(v, bound); s < b.passStrength {
			b.passStrength = s
		}
		return
	}
	breach := (bound - v) / bound
	if breach > b.worstBreach {
		b.worstBreach = breach
	}
	b.violations = append(b.violations, fmt.Sprintf("%s %.2f below required %.2f", desc, v, bound))
}

func (b *bounds) outcome(passRationale string) (outcome, bool) {
	if !b.any {
		return outcome{rationale: "no scoreable measurements"}, false
	}
	if len(b.violations) > 0 {
		return outcome{
			pass:      false,
			strength:  breachStrength(b.worstBreach),
			rationale: strings.Join(b.violations, "; "),
		}, true
	}
	return outcome{pass: true, strength: b.passStrength, rationale: passRationale}, true
}

// meansByChannel computes the per-channel mean of a metric with no minimum
// channel count, for scoring within a single-channel subset.
func meansByChannel(obs []models.Observation, metric string) map[models.Channel]float64 {
	sums := make(map[models.Channel]float64)
	counts := make(map[models.Channel]int)
	for _, o := range obs {
		if o.Metric == metric {
			sums[o.Channel] += o.Value
			counts[o.Channel]++
		}
	}
	means := make(map[models.Channel]float64, len(counts))
	for ch, n := range counts {
		means[ch] = sums[ch] / float64(n)
	}
	return means
}

// --- Land Ownership ---------------------------------------------------------

type landOwnership struct {
	policy Policy
}

func (e *landOwnership) Name() models.CheckName { return models.CheckLandOwnership }

var landOwnershipMetrics = []string{"ownership_match_score", "deed_status"}

func (e *landOwnership) Evaluate(obs []models.Observation) models.CheckResult {
	return evaluate(e.Name(), e.policy, obs, landOwnershipMetrics, e.score)
}

func (e *landOwnership) score(obs []models.Observation) (outcome, bool) {
	matches := values(obs, "ownership_match_score")
	if len(matches) == 0 {
		return outcome{rationale: "registry ownership match score missing"}, false
	}

	b := newBounds()
	match := mean(matches)
	b.lower("ownership match score", match, e.policy.MinOwnershipMatch)

	for _, deed := range labelSet(obs, "deed_status") {
		switch deed {
		case "disputed":
			b.any = true
			b.worstBreach = max(b.worstBreach, 0.8)
			b.violations = append(b.violations, "deed status is disputed")
		case "expired":
			b.any = true
			b.worstBreach = max(b.worstBreach, 1.0)
			b.violations = append(b.violations, "deed status is expired")
		}
	}

	return b.outcome(fmt.Sprintf("registry ownership match %.2f with deed in good standing", match))
}

// --- GPS Coordinates --------------------------------------------------------

type gpsCoordinates struct {
	policy Policy
}

func (e *gpsCoordinates) Name() models.CheckName { return models.CheckGPSCoordinates }

var gpsMetrics = []string{"gps_accuracy_m", "gps_offset_m"}

func (e *gpsCoordinates) Evaluate(obs []models.Observation) models.CheckResult {
	result := evaluate(e.Name(), e.policy, obs, gpsMetrics, e.score)
	// Physical per-channel offsets feed the 5 m discrepancy tolerance.
	result.ChannelMeasures = channelMeans(selectMetrics(obs, gpsMetrics), "gps_offset_m")
	return result
}

func (e *gpsCoordinates) score(obs []models.Observation) (outcome, bool) {
	accuracies := values(obs, "gps_accuracy_m")
	offsetMeans := meansByChannel(obs, "gps_offset_m")

	if len(accuracies) == 0 && len(offsetMeans) == 0 {
		return outcome{rationale: "no usable positioning measurements"}, false
	}

	b := newBounds()
	if len(accuracies) > 0 {
		b.upper("GPS accuracy (m)", maxOf(accuracies), e.policy.MaxGPSAccuracyM)
	}
	if len(offsetMeans) > 0 {
		// The claim stands if the best corroborating channel agrees with the
		// declared boundary; channel disagreement is the aggregator's job.
		best := -1.0
		for _, m := range offsetMeans {
			if best < 0 || m < best {
				best = m
			}
		}
		b.upper("boundary offset (m)", best, e.policy.MaxGPSOffsetM)
	}
	return b.outcome("positioning accuracy and boundary offset within survey tolerance")
}

// --- Carbon Calculations ----------------------------------------------------

type carbonCalculations struct {
	policy Policy
}

func (e *carbonCalculations) Name() models.CheckName { return models.CheckCarbonCalculations }

var carbonMetrics = []string{"sequestration_rate_tco2e_per_year", "ecosystem_type", "project_area_ha"}

func (e *carbonCalculations) Evaluate(obs []models.Observation) models.CheckResult {
	result := evaluate(e.Name(), e.policy, obs, carbonMetrics, e.score)

	selected := selectMetrics(obs, carbonMetrics)
	result.ChannelMeasures = channelMeans(selected, "sequestration_rate_tco2e_per_year")
	if rates := values(selected, "sequestration_rate_tco2e_per_year"); len(rates) > 0 {
		reported := mean(rates)
		result.Details = map[string]float64{"reported_rate_tco2e_per_year": reported}
		if expected, ok := e.expectedRate(selected); ok {
			result.Details["modeled_rate_tco2e_per_year"] = expected
		}
	}
	return result
}

// expectedRate derives the model estimate from the ecosystem baseline table.
// When the project area is known the baseline scales to a whole-project
// rate; otherwise the reported rate is treated as per-hectare.
func (e *carbonCalculations) expectedRate(obs []models.Observation) (float64, bool) {
	ecosystems := labelSet(obs, "ecosystem_type")
	if len(ecosystems) != 1 {
		return 0, false
	}
	baseline, ok := BaselineRate(ecosystems[0])
	if !ok {
		return 0, false
	}
	if areas := values(obs, "project_area_ha"); len(areas) > 0 {
		return baseline * mean(areas), true
	}
	return baseline, true
}

func (e *carbonCalculations) score(obs []models.Observation) (outcome, bool) {
	rates := values(obs, "sequestration_rate_tco2e_per_year")
	if len(rates) == 0 {
		return outcome{rationale: "no reported sequestration rate"}, false
	}

	ecosystems := labelSet(obs, "ecosystem_type")
	switch {
	case len(ecosystems) == 0:
		return outcome{rationale: "ecosystem type missing; baseline model undefined"}, false
	case len(ecosystems) > 1:
		return outcome{rationale: fmt.Sprintf("conflicting ecosystem classifications: %s", strings.Join(ecosystems, ", "))}, false
	}

	expected, ok := e.expectedRate(obs)
	if !ok || expected <= 0 {
		return outcome{rationale: "no baseline rate for ecosystem type"}, false
	}

	reported := mean(rates)
	deviation := abs(reported-expected) / expected
	tolerance := e.policy.CarbonTolerance

	if deviation <= tolerance {
		return outcome{
			pass:     true,
			strength: 1 - 0.15*clamp01(deviation/tolerance),
			rationale: fmt.Sprintf("reported rate %.2f tCO2e/yr within %.0f%% of modeled %.2f",
				reported, tolerance*100, expected),
		}, true
	}
	return outcome{
		pass:     false,
		strength: breachStrength((deviation - tolerance) / tolerance),
		rationale: fmt.Sprintf("reported rate %.2f tCO2e/yr deviates %.0f%% from modeled %.2f (tolerance %.0f%%)",
			reported, deviation*100, expected, tolerance*100),
	}, true
}

// --- MRV Data Quality -------------------------------------------------------

type dataQuality struct {
	policy Policy
}

func (e *dataQuality) Name() models.CheckName { return models.CheckDataQuality }

var dataQualityMetrics = []string{"data_completeness_pct", "reporting_lag_days"}

func (e *dataQuality) Evaluate(obs []models.Observation) models.CheckResult {
	return evaluate(e.Name(), e.policy, obs, dataQualityMetrics, e.score)
}

func (e *dataQuality) score(obs []models.Observation) (outcome, bool) {
	completeness := values(obs, "data_completeness_pct")
	if len(completeness) == 0 {
		return outcome{rationale: "data completeness not reported"}, false
	}

	b := newBounds()
	b.lower("data completeness (%)", mean(completeness), e.policy.MinCompletenessPct)
	if lags := values(obs, "reporting_lag_days"); len(lags) > 0 {
		b.upper("reporting lag (days)", maxOf(lags), e.policy.MaxReportingLagDays)
	}
	return b.outcome("monitoring record completeness and freshness meet program policy")
}

// --- Species Verification ---------------------------------------------------

type speciesVerification struct {
	policy Policy
}

func (e *speciesVerification) Name() models.CheckName { return models.CheckSpeciesVerification }

var speciesMetrics = []string{"species_match_pct", "native_species_ratio_pct"}

func (e *speciesVerification) Evaluate(obs []models.Observation) models.CheckResult {
	return evaluate(e.Name(), e.policy, obs, speciesMetrics, e.score)
}

func (e *speciesVerification) score(obs []models.Observation) (outcome, bool) {
	matches := values(obs, "species_match_pct")
	if len(matches) == 0 {
		return outcome{rationale: "no species match measurements"}, false
	}

	b := newBounds()
	b.lower("species match (%)", mean(matches), e.policy.MinSpeciesMatchPct)
	if natives := values(obs, "native_species_ratio_pct"); len(natives) > 0 {
		b.lower("native species ratio (%)", mean(natives), e.policy.MinNativeRatioPct)
	}
	return b.outcome("observed species composition matches the restoration plan")
}

// --- Image Analysis ---------------------------------------------------------

type imageAnalysis struct {
	policy Policy
}

func (e *imageAnalysis) Name() models.CheckName { return models.CheckImageAnalysis }

var imageMetrics = []string{"vegetation_coverage_pct", "image_authenticity_score"}

func (e *imageAnalysis) Evaluate(obs []models.Observation) models.CheckResult {
	return evaluate(e.Name(), e.policy, obs, imageMetrics, e.score)
}

func (e *imageAnalysis) score(obs []models.Observation) (outcome, bool) {
	coverage := values(obs, "vegetation_coverage_pct")
	if len(coverage) == 0 {
		return outcome{rationale: "no vegetation coverage measurements"}, false
	}

	b := newBounds()
	b.lower("vegetation coverage (%)", mean(coverage), e.policy.MinVegetationCoveragePct)
	if auth := values(obs, "image_authenticity_score"); len(auth) > 0 {
		// Authenticity is gated on the weakest frame, not the average.
		b.lower("image authenticity", minOf(auth), e.policy.MinImageAuthenticity)
	}
	return b.outcome("imagery shows expected vegetation coverage and no manipulation signals")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
