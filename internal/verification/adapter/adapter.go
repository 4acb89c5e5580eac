// Package adapter normalizes heterogeneous evidence payloads from the four
// channels into uniform Observation records. Adapters are pure functions of
// their input: no side effects, no clock, no I/O.
//
// Out-of-range values are rejected and reported, never clamped; a clamped
// value would read as a legitimate measurement downstream.
package adapter

import (
	"fmt"
	"math"

	"veriterra/internal/verification/models"
	dErrors "veriterra/pkg/domain-errors"
)

// metricSpec binds a metric identifier to its check, the channels allowed to
// produce it, and its physical bounds (numeric) or allowed labels
// (categorical).
type metricSpec struct {
	check    models.CheckName
	channels map[models.Channel]bool
	min, max float64
	unit     string
	// labels is non-nil for categorical metrics; values must match a key.
	labels map[string]bool
}

func (s metricSpec) categorical() bool {
	return s.labels != nil
}

func channels(cs ...models.Channel) map[models.Channel]bool {
	m := make(map[models.Channel]bool, len(cs))
	for _, c := range cs {
		m[c] = true
	}
	return m
}

func labels(ls ...string) map[string]bool {
	m := make(map[string]bool, len(ls))
	for _, l := range ls {
		m[l] = true
	}
	return m
}

// registry maps every known (metric, channel) combination to its check.
// Unknown combinations are rejected at ingestion, not silently dropped.
var registry = map[string]metricSpec{
	"ownership_match_score": {
		check:    models.CheckLandOwnership,
		channels: channels(models.ChannelRegistryCrossReference),
		min:      0, max: 1, unit: "score",
	},
	"deed_status": {
		check:    models.CheckLandOwnership,
		channels: channels(models.ChannelRegistryCrossReference),
		labels:   labels("valid", "disputed", "expired"),
	},
	"gps_accuracy_m": {
		check:    models.CheckGPSCoordinates,
		channels: channels(models.ChannelImagery, models.ChannelRemoteSensing),
		min:      0, max: 10000, unit: "m",
	},
	"gps_offset_m": {
		check:    models.CheckGPSCoordinates,
		channels: channels(models.ChannelImagery, models.ChannelRemoteSensing),
		min:      0, max: 100000, unit: "m",
	},
	"sequestration_rate_tco2e_per_year": {
		check:    models.CheckCarbonCalculations,
		channels: channels(models.ChannelRemoteSensing, models.ChannelThirdPartyAudit),
		min:      0, max: 1e6, unit: "tCO2e/yr",
	},
	"ecosystem_type": {
		check:    models.CheckCarbonCalculations,
		channels: channels(models.ChannelRemoteSensing, models.ChannelThirdPartyAudit),
		labels: labels(
			"mangrove", "tropical_forest", "temperate_forest",
			"boreal_forest", "grassland", "wetland",
		),
	},
	"project_area_ha": {
		check:    models.CheckCarbonCalculations,
		channels: channels(models.ChannelRegistryCrossReference, models.ChannelThirdPartyAudit),
		min:      0, max: 1e7, unit: "ha",
	},
	"data_completeness_pct": {
		check:    models.CheckDataQuality,
		channels: channels(models.ChannelImagery, models.ChannelRemoteSensing, models.ChannelThirdPartyAudit),
		min:      0, max: 100, unit: "%",
	},
	"reporting_lag_days": {
		check:    models.CheckDataQuality,
		channels: channels(models.ChannelRegistryCrossReference, models.ChannelThirdPartyAudit),
		min:      0, max: 3650, unit: "days",
	},
	"species_match_pct": {
		check:    models.CheckSpeciesVerification,
		channels: channels(models.ChannelImagery, models.ChannelThirdPartyAudit),
		min:      0, max: 100, unit: "%",
	},
	"native_species_ratio_pct": {
		check:    models.CheckSpeciesVerification,
		channels: channels(models.ChannelThirdPartyAudit),
		min:      0, max: 100, unit: "%",
	},
	"vegetation_coverage_pct": {
		check:    models.CheckImageAnalysis,
		channels: channels(models.ChannelImagery, models.ChannelRemoteSensing),
		min:      0, max: 100, unit: "%",
	},
	"image_authenticity_score": {
		check:    models.CheckImageAnalysis,
		channels: channels(models.ChannelImagery),
		min:      0, max: 1, unit: "score",
	},
}

// CheckFor resolves the check a metric belongs to.
func CheckFor(metric string) (models.CheckName, bool) {
	spec, ok := registry[metric]
	if !ok {
		return "", false
	}
	return spec.check, true
}

// Adapter normalizes raw evidence records.
type Adapter struct{}

// New creates an evidence adapter.
func New() *Adapter {
	return &Adapter{}
}

// Normalize converts one raw record into an Observation. seq disambiguates
// observation refs within a submission and must be unique per record.
//
// Failure modes: CodeUnknownMetric when the (channel, metric) pair does not
// map to a registered check; CodeOutOfRange when a numeric value violates
// its physical bound; CodeValidation for malformed records.
func (a *Adapter) Normalize(raw models.RawEvidence, seq int) (models.Observation, error) {
	var zero models.Observation

	channel, err := models.ParseChannel(raw.Channel)
	if err != nil {
		return zero, err
	}

	if raw.Metric == "" {
		return zero, dErrors.New(dErrors.CodeValidation, "metric is required")
	}
	spec, ok := registry[raw.Metric]
	if !ok {
		return zero, dErrors.Newf(dErrors.CodeUnknownMetric, "metric %q does not map to a registered check", raw.Metric)
	}
	if !spec.channels[channel] {
		return zero, dErrors.Newf(dErrors.CodeUnknownMetric, "channel %s does not produce metric %q", channel, raw.Metric)
	}

	if raw.CapturedAt.IsZero() {
		return zero, dErrors.New(dErrors.CodeValidation, "captured_at timestamp is required")
	}
	if raw.SourceConfidence < 0 || raw.SourceConfidence > 1 || math.IsNaN(raw.SourceConfidence) {
		return zero, dErrors.Newf(dErrors.CodeValidation, "source confidence %v outside [0,1]", raw.SourceConfidence)
	}

	obs := models.Observation{
		Ref:              fmt.Sprintf("%s/%s#%d", channel, raw.Metric, seq),
		Channel:          channel,
		Metric:           raw.Metric,
		CapturedAt:       raw.CapturedAt,
		SourceConfidence: raw.SourceConfidence,
	}

	if spec.categorical() {
		if raw.Label == "" {
			return zero, dErrors.Newf(dErrors.CodeValidation, "metric %q requires a categorical label", raw.Metric)
		}
		if !spec.labels[raw.Label] {
			return zero, dErrors.Newf(dErrors.CodeValidation, "label %q is not valid for metric %q", raw.Label, raw.Metric)
		}
		obs.Label = raw.Label
		return obs, nil
	}

	if raw.Value == nil {
		return zero, dErrors.Newf(dErrors.CodeValidation, "metric %q requires a numeric value", raw.Metric)
	}
	v := *raw.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return zero, dErrors.Newf(dErrors.CodeValidation, "metric %q value must be finite", raw.Metric)
	}
	if v < spec.min || v > spec.max {
		return zero, dErrors.Newf(dErrors.CodeOutOfRange,
			"metric %q value %v outside physical bounds [%v, %v] %s",
			raw.Metric, v, spec.min, spec.max, spec.unit)
	}
	obs.Value = v
	return obs, nil
}
