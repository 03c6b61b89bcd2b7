// Package pipeline defines the recruiting state machine for profile
// submissions.
//
// Forward path:
//
//	SUBMITTED ─► UNDER_SCREENING ─► SHORTLISTED ─► INTERVIEW_SCHEDULED ─► INTERVIEW_COMPLETED
//	                                                                          │         │
//	                                      TECHNICAL_ROUND_SCHEDULED ◄─────────┘         │
//	                                                │                                   │
//	                                      TECHNICAL_ROUND_COMPLETED ─► SELECTED ◄───────┘
//	                                                                      │
//	                                  OFFER_EXTENDED ◄────────────────────┘
//	                                   │          │
//	                        OFFER_ACCEPTED     OFFER_DECLINED
//	                          │       │
//	                       JOINED  DROPPED_OUT
//
// Most pre-offer stages may also move to REJECTED or ON_HOLD; ON_HOLD resumes
// to UNDER_SCREENING or SHORTLISTED. JOINED, DROPPED_OUT, REJECTED and
// OFFER_DECLINED are terminal.
package pipeline

import (
	"sort"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

type statusSet map[models.ProfileStatus]struct{}

func setOf(statuses ...models.ProfileStatus) statusSet {
	set := make(statusSet, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// transitions lists every allowed (from -> to) pair. Terminal states have no entry.
var transitions = map[models.ProfileStatus]statusSet{
	models.ProfileStatusSubmitted: setOf(
		models.ProfileStatusUnderScreening, models.ProfileStatusRejected, models.ProfileStatusOnHold),
	models.ProfileStatusUnderScreening: setOf(
		models.ProfileStatusShortlisted, models.ProfileStatusRejected, models.ProfileStatusOnHold),
	models.ProfileStatusShortlisted: setOf(
		models.ProfileStatusInterviewScheduled, models.ProfileStatusRejected, models.ProfileStatusOnHold),
	models.ProfileStatusInterviewScheduled: setOf(
		models.ProfileStatusInterviewCompleted, models.ProfileStatusRejected, models.ProfileStatusOnHold),
	models.ProfileStatusInterviewCompleted: setOf(
		models.ProfileStatusTechnicalRoundScheduled, models.ProfileStatusSelected, models.ProfileStatusRejected),
	models.ProfileStatusTechnicalRoundScheduled: setOf(
		models.ProfileStatusTechnicalRoundCompleted, models.ProfileStatusRejected, models.ProfileStatusOnHold),
	models.ProfileStatusTechnicalRoundCompleted: setOf(
		models.ProfileStatusSelected, models.ProfileStatusRejected),
	models.ProfileStatusSelected: setOf(
		models.ProfileStatusOfferExtended, models.ProfileStatusRejected),
	models.ProfileStatusOfferExtended: setOf(
		models.ProfileStatusOfferAccepted, models.ProfileStatusOfferDeclined),
	models.ProfileStatusOfferAccepted: setOf(
		models.ProfileStatusJoined, models.ProfileStatusDroppedOut),
	models.ProfileStatusOnHold: setOf(
		models.ProfileStatusUnderScreening, models.ProfileStatusShortlisted, models.ProfileStatusRejected),
}

var atOrPastShortlisted = setOf(
	models.ProfileStatusShortlisted,
	models.ProfileStatusInterviewScheduled,
	models.ProfileStatusInterviewCompleted,
	models.ProfileStatusTechnicalRoundScheduled,
	models.ProfileStatusTechnicalRoundCompleted,
	models.ProfileStatusSelected,
	models.ProfileStatusOfferExtended,
	models.ProfileStatusOfferAccepted,
	models.ProfileStatusJoined,
)

var atOrPastSelected = setOf(
	models.ProfileStatusSelected,
	models.ProfileStatusOfferExtended,
	models.ProfileStatusOfferAccepted,
	models.ProfileStatusJoined,
)

// Validate returns true when moving from -> to is permitted by the state machine.
func Validate(from, to models.ProfileStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false // terminal or unknown
	}
	_, ok = allowed[to]
	return ok
}

// AllowedTransitions returns the successors of from in workflow order.
func AllowedTransitions(from models.ProfileStatus) []models.ProfileStatus {
	allowed := transitions[from]
	out := make([]models.ProfileStatus, 0, len(allowed))
	for s := range allowed {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal() < out[j].Ordinal() })
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.ProfileStatus) bool {
	return len(transitions[s]) == 0
}

// IsAtOrPastShortlisted reports whether s counts toward a project's shortlisted total.
func IsAtOrPastShortlisted(s models.ProfileStatus) bool {
	_, ok := atOrPastShortlisted[s]
	return ok
}

// IsAtOrPastSelected reports whether s counts toward a project's selected total.
func IsAtOrPastSelected(s models.ProfileStatus) bool {
	_, ok := atOrPastSelected[s]
	return ok
}
