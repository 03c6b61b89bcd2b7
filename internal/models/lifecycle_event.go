package models

import "time"

// LifecycleEventType names notifications emitted after a committed change.
type LifecycleEventType string

const (
	LifecycleEventSubmitted     LifecycleEventType = "profile.submitted"
	LifecycleEventStatusChanged LifecycleEventType = "profile.status_changed"
	LifecycleEventDeleted       LifecycleEventType = "profile.deleted"
	LifecycleEventOverdue       LifecycleEventType = "profile.overdue"
)

// LifecycleEvent is the payload published for downstream consumers.
type LifecycleEvent struct {
	ID         string             `json:"id"`
	Type       LifecycleEventType `json:"type"`
	ProfileID  int64              `json:"profileId"`
	ProjectID  int64              `json:"projectId"`
	FromStatus ProfileStatus      `json:"fromStatus,omitempty"`
	ToStatus   ProfileStatus      `json:"toStatus,omitempty"`
	ActorID    string             `json:"actorId,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}
