package adapter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veriterra/internal/verification/models"
	dErrors "veriterra/pkg/domain-errors"
)

type AdapterSuite struct {
	suite.Suite
	adapter *Adapter
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterSuite))
}

func (s *AdapterSuite) SetupTest() {
	s.adapter = New()
}

func ptr(v float64) *float64 { return &v }

func (s *AdapterSuite) raw(channel, metric string, value *float64) models.RawEvidence {
	return models.RawEvidence{
		Channel:          channel,
		Metric:           metric,
		Value:            value,
		CapturedAt:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		SourceConfidence: 0.95,
	}
}

func (s *AdapterSuite) TestNormalize_Numeric() {
	s.Run("normalizes a valid GPS accuracy record", func() {
		obs, err := s.adapter.Normalize(s.raw("imagery", "gps_accuracy_m", ptr(1.4)), 0)
		s.Require().NoError(err)
		s.Equal(models.ChannelImagery, obs.Channel)
		s.Equal("gps_accuracy_m", obs.Metric)
		s.Equal(1.4, obs.Value)
		s.Equal("imagery/gps_accuracy_m#0", obs.Ref)
		s.False(obs.IsCategorical())
	})

	s.Run("rejects negative GPS accuracy as out of range", func() {
		_, err := s.adapter.Normalize(s.raw("imagery", "gps_accuracy_m", ptr(-0.5)), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeOutOfRange))
	})

	s.Run("rejects coverage percentage above 100 without clamping", func() {
		_, err := s.adapter.Normalize(s.raw("imagery", "vegetation_coverage_pct", ptr(108.2)), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeOutOfRange))
	})

	s.Run("rejects non-finite values", func() {
		_, err := s.adapter.Normalize(s.raw("imagery", "gps_accuracy_m", ptr(math.Inf(1))), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.adapter.Normalize(s.raw("imagery", "gps_accuracy_m", ptr(math.NaN())), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects missing numeric value", func() {
		_, err := s.adapter.Normalize(s.raw("imagery", "gps_accuracy_m", nil), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AdapterSuite) TestNormalize_Categorical() {
	s.Run("normalizes a valid deed status", func() {
		raw := s.raw("registry_cross_reference", "deed_status", nil)
		raw.Label = "valid"
		obs, err := s.adapter.Normalize(raw, 3)
		s.Require().NoError(err)
		s.Equal("valid", obs.Label)
		s.True(obs.IsCategorical())
		s.Equal("registry_cross_reference/deed_status#3", obs.Ref)
	})

	s.Run("rejects unknown label", func() {
		raw := s.raw("registry_cross_reference", "deed_status", nil)
		raw.Label = "notarized"
		_, err := s.adapter.Normalize(raw, 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AdapterSuite) TestNormalize_MetricResolution() {
	s.Run("rejects unknown metric", func() {
		_, err := s.adapter.Normalize(s.raw("imagery", "soil_ph", ptr(6.5)), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownMetric))
	})

	s.Run("rejects known metric from wrong channel", func() {
		// Sequestration rates come from remote sensing or audits, not imagery.
		_, err := s.adapter.Normalize(s.raw("imagery", "sequestration_rate_tco2e_per_year", ptr(4.2)), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownMetric))
	})

	s.Run("rejects unknown channel", func() {
		_, err := s.adapter.Normalize(s.raw("drone_swarm", "gps_accuracy_m", ptr(1.0)), 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AdapterSuite) TestNormalize_RecordHygiene() {
	s.Run("rejects missing timestamp", func() {
		raw := s.raw("imagery", "gps_accuracy_m", ptr(1.0))
		raw.CapturedAt = time.Time{}
		_, err := s.adapter.Normalize(raw, 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects source confidence outside unit interval", func() {
		raw := s.raw("imagery", "gps_accuracy_m", ptr(1.0))
		raw.SourceConfidence = 1.2
		_, err := s.adapter.Normalize(raw, 0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCheckFor(t *testing.T) {
	s := func(metric string, want models.CheckName) {
		got, ok := CheckFor(metric)
		if !ok || got != want {
			t.Fatalf("CheckFor(%q) = %v, %v; want %v", metric, got, ok, want)
		}
	}
	s("ownership_match_score", models.CheckLandOwnership)
	s("gps_offset_m", models.CheckGPSCoordinates)
	s("ecosystem_type", models.CheckCarbonCalculations)
	s("data_completeness_pct", models.CheckDataQuality)
	s("species_match_pct", models.CheckSpeciesVerification)
	s("image_authenticity_score", models.CheckImageAnalysis)

	if _, ok := CheckFor("soil_ph"); ok {
		t.Fatal("soil_ph should not resolve to a check")
	}
}
