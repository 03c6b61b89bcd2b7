package models

import (
	"fmt"
	"strings"
)

// ProfileStatus captures the recruiting stage of a profile submission.
type ProfileStatus string

const (
	ProfileStatusSubmitted               ProfileStatus = "SUBMITTED"
	ProfileStatusUnderScreening          ProfileStatus = "UNDER_SCREENING"
	ProfileStatusShortlisted             ProfileStatus = "SHORTLISTED"
	ProfileStatusInterviewScheduled      ProfileStatus = "INTERVIEW_SCHEDULED"
	ProfileStatusInterviewCompleted      ProfileStatus = "INTERVIEW_COMPLETED"
	ProfileStatusTechnicalRoundScheduled ProfileStatus = "TECHNICAL_ROUND_SCHEDULED"
	ProfileStatusTechnicalRoundCompleted ProfileStatus = "TECHNICAL_ROUND_COMPLETED"
	ProfileStatusSelected                ProfileStatus = "SELECTED"
	ProfileStatusRejected                ProfileStatus = "REJECTED"
	ProfileStatusOnHold                  ProfileStatus = "ON_HOLD"
	ProfileStatusOfferExtended           ProfileStatus = "OFFER_EXTENDED"
	ProfileStatusOfferAccepted           ProfileStatus = "OFFER_ACCEPTED"
	ProfileStatusOfferDeclined           ProfileStatus = "OFFER_DECLINED"
	ProfileStatusJoined                  ProfileStatus = "JOINED"
	ProfileStatusDroppedOut              ProfileStatus = "DROPPED_OUT"
)

// ProfileStatuses lists every stage in workflow order.
var ProfileStatuses = []ProfileStatus{
	ProfileStatusSubmitted,
	ProfileStatusUnderScreening,
	ProfileStatusShortlisted,
	ProfileStatusInterviewScheduled,
	ProfileStatusInterviewCompleted,
	ProfileStatusTechnicalRoundScheduled,
	ProfileStatusTechnicalRoundCompleted,
	ProfileStatusSelected,
	ProfileStatusRejected,
	ProfileStatusOnHold,
	ProfileStatusOfferExtended,
	ProfileStatusOfferAccepted,
	ProfileStatusOfferDeclined,
	ProfileStatusJoined,
	ProfileStatusDroppedOut,
}

// String returns the canonical representation of the status.
func (s ProfileStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known stages.
func (s ProfileStatus) IsValid() bool {
	return s.Ordinal() > 0
}

// Ordinal returns the 1-based stage number, or 0 for unknown values.
func (s ProfileStatus) Ordinal() int {
	for i, status := range ProfileStatuses {
		if status == s {
			return i + 1
		}
	}
	return 0
}

// ParseProfileStatus accepts either the canonical value (UNDER_SCREENING) or
// the display name (UnderScreening), case-insensitively.
func ParseProfileStatus(raw string) (ProfileStatus, error) {
	key := normaliseStatusKey(raw)
	if key == "" {
		return "", fmt.Errorf("status is required")
	}
	for _, status := range ProfileStatuses {
		if normaliseStatusKey(string(status)) == key {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown profile status %q", raw)
}

func normaliseStatusKey(raw string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(raw)))
}
