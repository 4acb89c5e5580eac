package evaluator

// Policy holds the verification thresholds. The defaults encode current
// program policy; operators override individual values through configuration
// rather than editing code.
type Policy struct {
	// PassConfidence is the weighted-confidence floor for a Passed status.
	PassConfidence float64
	// FailConfidence is the weighted-confidence ceiling below which a check
	// that met its policy test is still marked Failed.
	FailConfidence float64

	// MinOwnershipMatch is the minimum registry ownership match score.
	MinOwnershipMatch float64
	// MaxGPSAccuracyM is the worst acceptable reported GPS accuracy.
	MaxGPSAccuracyM float64
	// MaxGPSOffsetM is the largest acceptable offset between the claimed
	// project boundary and the best corroborating channel.
	MaxGPSOffsetM float64
	// CarbonTolerance is the acceptable fractional deviation between the
	// reported sequestration rate and the ecosystem baseline model.
	CarbonTolerance float64
	// MinCompletenessPct is the minimum MRV data completeness.
	MinCompletenessPct float64
	// MaxReportingLagDays is the oldest acceptable reporting lag.
	MaxReportingLagDays float64
	// MinSpeciesMatchPct is the minimum claimed-vs-observed species match.
	MinSpeciesMatchPct float64
	// MinNativeRatioPct is the minimum native species share.
	MinNativeRatioPct float64
	// MinVegetationCoveragePct is the minimum vegetation coverage.
	MinVegetationCoveragePct float64
	// MinImageAuthenticity is the minimum image authenticity score.
	MinImageAuthenticity float64
}

// Default returns the standing policy thresholds.
func Default() Policy {
	return Policy{
		PassConfidence:           0.90,
		FailConfidence:           0.50,
		MinOwnershipMatch:        0.85,
		MaxGPSAccuracyM:          2.0,
		MaxGPSOffsetM:            5.0,
		CarbonTolerance:          0.10,
		MinCompletenessPct:       90,
		MaxReportingLagDays:      30,
		MinSpeciesMatchPct:       80,
		MinNativeRatioPct:        70,
		MinVegetationCoveragePct: 60,
		MinImageAuthenticity:     0.90,
	}
}

// baselineRates holds modeled sequestration rates per ecosystem type in
// tCO2e per hectare per year. Sources: program baseline tables, reviewed
// annually.
var baselineRates = map[string]float64{
	"mangrove":         6.0,
	"tropical_forest":  4.5,
	"temperate_forest": 3.0,
	"boreal_forest":    1.8,
	"grassland":        1.2,
	"wetland":          2.5,
}

// BaselineRate returns the modeled per-hectare sequestration rate for an
// ecosystem type.
func BaselineRate(ecosystem string) (float64, bool) {
	r, ok := baselineRates[ecosystem]
	return r, ok
}
