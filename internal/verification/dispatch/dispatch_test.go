package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
)

func testVerdict(status models.VerdictStatus) *models.Verdict {
	return &models.Verdict{
		ProjectID:         id.MustProjectID("7f9c24e8-3b13-4a2f-a912-4ca19de0f2b1"),
		OverallStatus:     status,
		OverallConfidence: 0.97,
		Checks: []models.CheckResult{
			{CheckName: models.CheckLandOwnership, Status: models.StatusPassed, Confidence: 0.97},
			{CheckName: models.CheckCarbonCalculations, Status: models.StatusFailed, Confidence: 0.93, Rationale: "rate deviates"},
		},
		Discrepancies: []models.Discrepancy{
			{CheckName: models.CheckGPSCoordinates, ChannelA: models.ChannelImagery, ChannelB: models.ChannelRemoteSensing, Magnitude: 38, Unit: "m"},
		},
		Recommendations:        []string{"recompute the sequestration estimate against the ecosystem baseline model"},
		EstimatedAnnualCredits: 480,
	}
}

func TestRoute_VerifiedBecomesMintRequest(t *testing.T) {
	verdict := testVerdict(models.VerdictVerified)

	kind, payload, err := route(verdict)
	require.NoError(t, err)
	assert.Equal(t, "mint_request", kind)

	mint, ok := payload.(MintRequest)
	require.True(t, ok)
	assert.Equal(t, verdict.ProjectID, mint.ProjectID)
	assert.InDelta(t, 0.97, mint.OverallConfidence, 1e-9)
	assert.InDelta(t, 480, mint.EstimatedAnnualCredits, 1e-9)
}

func TestRoute_ReviewCarriesDiscrepanciesAndChecks(t *testing.T) {
	verdict := testVerdict(models.VerdictNeedsHumanReview)

	kind, payload, err := route(verdict)
	require.NoError(t, err)
	assert.Equal(t, "review_request", kind)

	review, ok := payload.(ReviewRequest)
	require.True(t, ok)
	assert.Len(t, review.Discrepancies, 1)
	assert.Len(t, review.Checks, 2)
}

func TestRoute_RejectionCarriesOnlyFailingChecks(t *testing.T) {
	verdict := testVerdict(models.VerdictRejected)

	kind, payload, err := route(verdict)
	require.NoError(t, err)
	assert.Equal(t, "rejection_notice", kind)

	notice, ok := payload.(RejectionNotice)
	require.True(t, ok)
	require.Len(t, notice.FailingChecks, 1)
	assert.Equal(t, models.CheckCarbonCalculations, notice.FailingChecks[0].CheckName)
	assert.NotEmpty(t, notice.Recommendations)
}

func TestRoute_UnknownStatusErrors(t *testing.T) {
	verdict := testVerdict(models.VerdictStatus("bogus"))

	_, _, err := route(verdict)
	assert.Error(t, err)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicMintRequests, topicFor(models.VerdictVerified))
	assert.Equal(t, TopicRejections, topicFor(models.VerdictRejected))
	assert.Equal(t, TopicReviewQueue, topicFor(models.VerdictNeedsHumanReview))
}
