package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodvardhan/project-pipeline/internal/models"
	"github.com/amodvardhan/project-pipeline/internal/pipeline"
)

func TestValidateAllowedTransitions(t *testing.T) {
	cases := []struct {
		from models.ProfileStatus
		to   models.ProfileStatus
	}{
		{models.ProfileStatusSubmitted, models.ProfileStatusUnderScreening},
		{models.ProfileStatusSubmitted, models.ProfileStatusRejected},
		{models.ProfileStatusSubmitted, models.ProfileStatusOnHold},
		{models.ProfileStatusUnderScreening, models.ProfileStatusShortlisted},
		{models.ProfileStatusShortlisted, models.ProfileStatusInterviewScheduled},
		{models.ProfileStatusInterviewScheduled, models.ProfileStatusInterviewCompleted},
		{models.ProfileStatusInterviewCompleted, models.ProfileStatusTechnicalRoundScheduled},
		{models.ProfileStatusInterviewCompleted, models.ProfileStatusSelected},
		{models.ProfileStatusTechnicalRoundScheduled, models.ProfileStatusTechnicalRoundCompleted},
		{models.ProfileStatusTechnicalRoundCompleted, models.ProfileStatusSelected},
		{models.ProfileStatusSelected, models.ProfileStatusOfferExtended},
		{models.ProfileStatusOfferExtended, models.ProfileStatusOfferAccepted},
		{models.ProfileStatusOfferExtended, models.ProfileStatusOfferDeclined},
		{models.ProfileStatusOfferAccepted, models.ProfileStatusJoined},
		{models.ProfileStatusOfferAccepted, models.ProfileStatusDroppedOut},
		{models.ProfileStatusOnHold, models.ProfileStatusUnderScreening},
		{models.ProfileStatusOnHold, models.ProfileStatusShortlisted},
		{models.ProfileStatusOnHold, models.ProfileStatusRejected},
	}
	for _, tc := range cases {
		assert.Truef(t, pipeline.Validate(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestValidateRejectsJumps(t *testing.T) {
	cases := []struct {
		from models.ProfileStatus
		to   models.ProfileStatus
	}{
		{models.ProfileStatusSubmitted, models.ProfileStatusSelected},
		{models.ProfileStatusSubmitted, models.ProfileStatusShortlisted},
		{models.ProfileStatusShortlisted, models.ProfileStatusSelected},
		{models.ProfileStatusUnderScreening, models.ProfileStatusUnderScreening},
		{models.ProfileStatusInterviewCompleted, models.ProfileStatusOnHold},
		{models.ProfileStatusSelected, models.ProfileStatusJoined},
		{models.ProfileStatusOfferExtended, models.ProfileStatusRejected},
		{models.ProfileStatus("BOGUS"), models.ProfileStatusSubmitted},
		{models.ProfileStatusSubmitted, models.ProfileStatus("BOGUS")},
	}
	for _, tc := range cases {
		assert.Falsef(t, pipeline.Validate(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []models.ProfileStatus{
		models.ProfileStatusJoined,
		models.ProfileStatusDroppedOut,
		models.ProfileStatusRejected,
		models.ProfileStatusOfferDeclined,
	}
	for _, from := range terminals {
		assert.True(t, pipeline.IsTerminal(from), "%s should be terminal", from)
		assert.Empty(t, pipeline.AllowedTransitions(from))
		for _, to := range models.ProfileStatuses {
			assert.Falsef(t, pipeline.Validate(from, to), "terminal %s must not reach %s", from, to)
		}
	}
}

func TestNonTerminalStatesHaveSuccessors(t *testing.T) {
	for _, s := range models.ProfileStatuses {
		switch s {
		case models.ProfileStatusJoined, models.ProfileStatusDroppedOut,
			models.ProfileStatusRejected, models.ProfileStatusOfferDeclined:
			continue
		}
		assert.False(t, pipeline.IsTerminal(s), "%s should have successors", s)
	}
}

func TestAllowedTransitionsOrdered(t *testing.T) {
	got := pipeline.AllowedTransitions(models.ProfileStatusSubmitted)
	require.Equal(t, []models.ProfileStatus{
		models.ProfileStatusUnderScreening,
		models.ProfileStatusRejected,
		models.ProfileStatusOnHold,
	}, got)
}

func TestClassificationSetsConsistent(t *testing.T) {
	for _, s := range models.ProfileStatuses {
		if pipeline.IsAtOrPastSelected(s) {
			assert.Truef(t, pipeline.IsAtOrPastShortlisted(s), "%s is selected but not shortlisted", s)
		}
	}

	// Anything reachable from a selected-or-beyond stage stays selected-or-beyond
	// unless it leaves the pipeline entirely.
	exits := map[models.ProfileStatus]bool{
		models.ProfileStatusRejected:      true,
		models.ProfileStatusOfferDeclined: true,
		models.ProfileStatusDroppedOut:    true,
	}
	for _, from := range models.ProfileStatuses {
		if !pipeline.IsAtOrPastSelected(from) {
			continue
		}
		for _, to := range pipeline.AllowedTransitions(from) {
			assert.Truef(t, pipeline.IsAtOrPastSelected(to) || exits[to], "%s -> %s drops out of selected set", from, to)
		}
	}

	assert.False(t, pipeline.IsAtOrPastShortlisted(models.ProfileStatusUnderScreening))
	assert.False(t, pipeline.IsAtOrPastShortlisted(models.ProfileStatusOnHold))
	assert.False(t, pipeline.IsAtOrPastSelected(models.ProfileStatusTechnicalRoundCompleted))
	assert.True(t, pipeline.IsAtOrPastSelected(models.ProfileStatusJoined))
}

func TestHappyPathIsConnected(t *testing.T) {
	path := []models.ProfileStatus{
		models.ProfileStatusSubmitted,
		models.ProfileStatusUnderScreening,
		models.ProfileStatusShortlisted,
		models.ProfileStatusInterviewScheduled,
		models.ProfileStatusInterviewCompleted,
		models.ProfileStatusTechnicalRoundScheduled,
		models.ProfileStatusTechnicalRoundCompleted,
		models.ProfileStatusSelected,
		models.ProfileStatusOfferExtended,
		models.ProfileStatusOfferAccepted,
		models.ProfileStatusJoined,
	}
	for i := 1; i < len(path); i++ {
		require.Truef(t, pipeline.Validate(path[i-1], path[i]), "%s -> %s", path[i-1], path[i])
	}
}
