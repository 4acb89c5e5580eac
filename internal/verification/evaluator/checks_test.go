package evaluator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"veriterra/internal/verification/models"
)

type ChecksSuite struct {
	suite.Suite
	policy Policy
}

func TestChecksSuite(t *testing.T) {
	suite.Run(t, new(ChecksSuite))
}

func (s *ChecksSuite) SetupTest() {
	s.policy = Default()
}

func (s *ChecksSuite) evaluate(name models.CheckName, obs ...models.Observation) models.CheckResult {
	for _, ev := range ForPolicy(s.policy) {
		if ev.Name() == name {
			return ev.Evaluate(obs)
		}
	}
	s.FailNowf("missing evaluator", "no evaluator for %s", name)
	return models.CheckResult{}
}

func (s *ChecksSuite) TestLandOwnership() {
	s.Run("passes on strong registry match with valid deed", func() {
		result := s.evaluate(models.CheckLandOwnership,
			numeric(models.ChannelRegistryCrossReference, "ownership_match_score", 0.98, 0.97),
			categorical(models.ChannelRegistryCrossReference, "deed_status", "valid", 0.97),
		)
		s.Equal(models.StatusPassed, result.Status)
		s.InDelta(0.97, result.Confidence, 1e-9)
		s.Len(result.ContributingObservations, 2)
	})

	s.Run("fails on disputed deed even with perfect match score", func() {
		result := s.evaluate(models.CheckLandOwnership,
			numeric(models.ChannelRegistryCrossReference, "ownership_match_score", 1.0, 0.98),
			categorical(models.ChannelRegistryCrossReference, "deed_status", "disputed", 0.98),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.Contains(result.Rationale, "disputed")
	})

	s.Run("fails on low match score", func() {
		result := s.evaluate(models.CheckLandOwnership,
			numeric(models.ChannelRegistryCrossReference, "ownership_match_score", 0.40, 0.95),
		)
		s.Equal(models.StatusFailed, result.Status)
	})

	s.Run("inconclusive when only deed evidence present", func() {
		result := s.evaluate(models.CheckLandOwnership,
			categorical(models.ChannelRegistryCrossReference, "deed_status", "valid", 0.95),
		)
		s.Equal(models.StatusInconclusive, result.Status)
		s.Contains(result.Rationale, "match score missing")
	})
}

func (s *ChecksSuite) TestGPSCoordinates() {
	s.Run("passes when accuracy is within two meters", func() {
		result := s.evaluate(models.CheckGPSCoordinates,
			numeric(models.ChannelImagery, "gps_accuracy_m", 0.9, 0.98),
			numeric(models.ChannelImagery, "gps_offset_m", 1.1, 0.98),
		)
		s.Equal(models.StatusPassed, result.Status)
	})

	s.Run("fails when accuracy exceeds the limit", func() {
		result := s.evaluate(models.CheckGPSCoordinates,
			numeric(models.ChannelImagery, "gps_accuracy_m", 25, 0.98),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.Contains(result.Rationale, "GPS accuracy")
	})

	s.Run("best corroborating channel carries the offset test", func() {
		// One channel agrees with the declared boundary, the other is far
		// off. The check passes on the best channel; the disagreement itself
		// is the aggregator's discrepancy to flag.
		result := s.evaluate(models.CheckGPSCoordinates,
			numeric(models.ChannelImagery, "gps_offset_m", 2, 0.98),
			numeric(models.ChannelRemoteSensing, "gps_offset_m", 40, 0.98),
		)
		s.Equal(models.StatusPassed, result.Status)

		s.Require().NotNil(result.ChannelMeasures)
		s.InDelta(2, result.ChannelMeasures[models.ChannelImagery], 1e-9)
		s.InDelta(40, result.ChannelMeasures[models.ChannelRemoteSensing], 1e-9)
	})

	s.Run("records per-channel sub-scores for multi-channel evidence", func() {
		result := s.evaluate(models.CheckGPSCoordinates,
			numeric(models.ChannelImagery, "gps_accuracy_m", 0.5, 0.99),
			numeric(models.ChannelRemoteSensing, "gps_accuracy_m", 0.7, 0.95),
		)
		s.Require().NotNil(result.ChannelScores)
		s.Len(result.ChannelScores, 2)
	})
}

func (s *ChecksSuite) TestCarbonCalculations() {
	s.Run("passes when reported rate is within ten percent of the baseline", func() {
		// Grassland baseline 1.2 tCO2e/ha/yr over 100 ha -> expected 120.
		result := s.evaluate(models.CheckCarbonCalculations,
			numeric(models.ChannelRemoteSensing, "sequestration_rate_tco2e_per_year", 115, 0.97),
			categorical(models.ChannelRemoteSensing, "ecosystem_type", "grassland", 0.97),
			numeric(models.ChannelThirdPartyAudit, "project_area_ha", 100, 0.97),
		)
		s.Equal(models.StatusPassed, result.Status)
		s.Require().NotNil(result.Details)
		s.InDelta(115, result.Details["reported_rate_tco2e_per_year"], 1e-9)
		s.InDelta(120, result.Details["modeled_rate_tco2e_per_year"], 1e-9)
	})

	s.Run("fails decisively when the rate is triple the baseline", func() {
		// Reported 300% above the modeled rate, strong sources: this is a
		// confident failure, not missing signal.
		result := s.evaluate(models.CheckCarbonCalculations,
			numeric(models.ChannelThirdPartyAudit, "sequestration_rate_tco2e_per_year", 480, 0.93),
			categorical(models.ChannelRemoteSensing, "ecosystem_type", "grassland", 0.95),
			numeric(models.ChannelThirdPartyAudit, "project_area_ha", 100, 0.95),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.GreaterOrEqual(result.Confidence, 0.90)
		s.Contains(result.Rationale, "deviates")
	})

	s.Run("inconclusive without an ecosystem baseline", func() {
		result := s.evaluate(models.CheckCarbonCalculations,
			numeric(models.ChannelRemoteSensing, "sequestration_rate_tco2e_per_year", 4.4, 0.97),
		)
		s.Equal(models.StatusInconclusive, result.Status)
		s.Contains(result.Rationale, "ecosystem type missing")
	})

	s.Run("inconclusive on conflicting ecosystem classifications", func() {
		result := s.evaluate(models.CheckCarbonCalculations,
			numeric(models.ChannelRemoteSensing, "sequestration_rate_tco2e_per_year", 4.4, 0.97),
			categorical(models.ChannelRemoteSensing, "ecosystem_type", "wetland", 0.97),
			categorical(models.ChannelThirdPartyAudit, "ecosystem_type", "mangrove", 0.97),
		)
		s.Equal(models.StatusInconclusive, result.Status)
		s.Contains(result.Rationale, "conflicting")
	})

	s.Run("treats the reported rate as per-hectare when area is unknown", func() {
		result := s.evaluate(models.CheckCarbonCalculations,
			numeric(models.ChannelRemoteSensing, "sequestration_rate_tco2e_per_year", 4.4, 0.98),
			categorical(models.ChannelRemoteSensing, "ecosystem_type", "tropical_forest", 0.98),
		)
		s.Equal(models.StatusPassed, result.Status)
	})
}

func (s *ChecksSuite) TestDataQuality() {
	s.Run("passes on complete, fresh reporting", func() {
		result := s.evaluate(models.CheckDataQuality,
			numeric(models.ChannelRemoteSensing, "data_completeness_pct", 98, 0.98),
			numeric(models.ChannelThirdPartyAudit, "reporting_lag_days", 7, 0.98),
		)
		s.Equal(models.StatusPassed, result.Status)
	})

	s.Run("fails on stale reporting", func() {
		result := s.evaluate(models.CheckDataQuality,
			numeric(models.ChannelRemoteSensing, "data_completeness_pct", 98, 0.98),
			numeric(models.ChannelThirdPartyAudit, "reporting_lag_days", 200, 0.98),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.Contains(result.Rationale, "reporting lag")
	})

	s.Run("fails on incomplete data", func() {
		result := s.evaluate(models.CheckDataQuality,
			numeric(models.ChannelRemoteSensing, "data_completeness_pct", 45, 0.98),
		)
		s.Equal(models.StatusFailed, result.Status)
	})
}

func (s *ChecksSuite) TestSpeciesVerification() {
	s.Run("passes on high match and native ratio", func() {
		result := s.evaluate(models.CheckSpeciesVerification,
			numeric(models.ChannelImagery, "species_match_pct", 95, 0.97),
			numeric(models.ChannelThirdPartyAudit, "native_species_ratio_pct", 88, 0.97),
		)
		s.Equal(models.StatusPassed, result.Status)
	})

	s.Run("fails when native ratio is too low", func() {
		result := s.evaluate(models.CheckSpeciesVerification,
			numeric(models.ChannelImagery, "species_match_pct", 95, 0.97),
			numeric(models.ChannelThirdPartyAudit, "native_species_ratio_pct", 20, 0.97),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.Contains(result.Rationale, "native species ratio")
	})
}

func (s *ChecksSuite) TestImageAnalysis() {
	s.Run("passes on healthy coverage and authentic imagery", func() {
		result := s.evaluate(models.CheckImageAnalysis,
			numeric(models.ChannelImagery, "vegetation_coverage_pct", 82, 0.98),
			numeric(models.ChannelImagery, "image_authenticity_score", 0.99, 0.98),
		)
		s.Equal(models.StatusPassed, result.Status)
	})

	s.Run("fails when any frame looks manipulated", func() {
		result := s.evaluate(models.CheckImageAnalysis,
			numeric(models.ChannelImagery, "vegetation_coverage_pct", 82, 0.98),
			numeric(models.ChannelImagery, "image_authenticity_score", 0.99, 0.98),
			numeric(models.ChannelImagery, "image_authenticity_score", 0.30, 0.98),
		)
		s.Equal(models.StatusFailed, result.Status)
		s.Contains(result.Rationale, "authenticity")
	})
}
