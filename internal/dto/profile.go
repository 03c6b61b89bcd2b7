package dto

import (
	"time"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// CreateProfileSubmissionRequest carries candidate facts for a new submission.
type CreateProfileSubmissionRequest struct {
	ProjectID       int64    `json:"projectId" validate:"required,gt=0"`
	CandidateName   string   `json:"candidateName" validate:"required,max=100"`
	CandidateEmail  string   `json:"candidateEmail" validate:"required,email,max=200"`
	CandidatePhone  string   `json:"candidatePhone" validate:"omitempty,max=20"`
	Position        string   `json:"position" validate:"required,max=100"`
	Technology      string   `json:"technology" validate:"required,max=100"`
	ExperienceYears int      `json:"experienceYears" validate:"gte=0,lte=50"`
	ExpectedSalary  *float64 `json:"expectedSalary" validate:"omitempty,gte=0"`
	ResumePath      string   `json:"resumePath" validate:"omitempty,max=500"`
	InitialComments string   `json:"initialComments" validate:"omitempty,max=1000"`
}

// TransitionRequest moves a single profile to a new status. Only the fields
// relevant to the target status are applied.
type TransitionRequest struct {
	Status              string     `json:"status" validate:"required"`
	Comments            string     `json:"comments" validate:"omitempty,max=1000"`
	Reason              string     `json:"reason" validate:"omitempty,max=200"`
	InterviewDate       *time.Time `json:"interviewDate"`
	InterviewerName     string     `json:"interviewerName" validate:"omitempty,max=100"`
	InterviewScore      *float64   `json:"interviewScore" validate:"omitempty,gte=0,lte=10"`
	InterviewFeedback   string     `json:"interviewFeedback" validate:"omitempty,max=1000"`
	TechnicalScore      *float64   `json:"technicalScore" validate:"omitempty,gte=0,lte=10"`
	TechnicalFeedback   string     `json:"technicalFeedback" validate:"omitempty,max=1000"`
	ExpectedJoiningDate *time.Time `json:"expectedJoiningDate"`
	OfferedSalary       *float64   `json:"offeredSalary" validate:"omitempty,gte=0"`
}

// BulkTransitionRequest applies one target status to many profiles.
type BulkTransitionRequest struct {
	ProfileIDs []int64 `json:"profileIds" validate:"required,min=1,dive,gt=0"`
	Status     string  `json:"status" validate:"required"`
	Reason     string  `json:"reason" validate:"omitempty,max=200"`
}

// BulkTransitionResult reports the per-profile outcome of a bulk transition.
type BulkTransitionResult struct {
	Status    models.ProfileStatus `json:"status"`
	Requested int                  `json:"requested"`
	Updated   []int64              `json:"updated"`
	Skipped   []int64              `json:"skipped"`
	Rejected  map[int64]string     `json:"rejected,omitempty"`
}

// ProfileDetail is a submission together with its full status history.
type ProfileDetail struct {
	Profile            models.ProfileSubmission `json:"profile"`
	DaysInPipeline     int                      `json:"daysInPipeline"`
	AllowedNext        []models.ProfileStatus   `json:"allowedNext"`
	StatusHistory      []models.StatusHistory   `json:"statusHistory"`
	StatusHistoryCount int                      `json:"statusHistoryCount"`
}

// ProfileAnalytics summarises a project's pipeline.
type ProfileAnalytics struct {
	ProjectID             int64                        `json:"projectId"`
	TotalProfiles         int                          `json:"totalProfiles"`
	StatusDistribution    map[models.ProfileStatus]int `json:"statusDistribution"`
	SubmittedCount        int                          `json:"submittedCount"`
	ShortlistedCount      int                          `json:"shortlistedCount"`
	SelectedCount         int                          `json:"selectedCount"`
	RejectedCount         int                          `json:"rejectedCount"`
	OnHoldCount           int                          `json:"onHoldCount"`
	JoinedCount           int                          `json:"joinedCount"`
	ConversionRate        float64                      `json:"conversionRate"`
	AverageTimeToHireDays float64                      `json:"averageTimeToHireDays"`
}
