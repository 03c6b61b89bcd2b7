package models

import "time"

// ProfileSubmission is a candidate submitted against a project.
type ProfileSubmission struct {
	ID        int64 `db:"id" json:"id"`
	ProjectID int64 `db:"project_id" json:"projectId"`

	CandidateName   string   `db:"candidate_name" json:"candidateName"`
	CandidateEmail  string   `db:"candidate_email" json:"candidateEmail"`
	CandidatePhone  *string  `db:"candidate_phone" json:"candidatePhone,omitempty"`
	Position        string   `db:"position" json:"position"`
	Technology      string   `db:"technology" json:"technology"`
	ExperienceYears int      `db:"experience_years" json:"experienceYears"`
	ExpectedSalary  *float64 `db:"expected_salary" json:"expectedSalary,omitempty"`
	OfferedSalary   *float64 `db:"offered_salary" json:"offeredSalary,omitempty"`
	ResumePath      *string  `db:"resume_path" json:"resumePath,omitempty"`

	Status          ProfileStatus `db:"status" json:"status"`
	StatusComments  *string       `db:"status_comments" json:"statusComments,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejectionReason,omitempty"`
	HoldReason      *string       `db:"hold_reason" json:"holdReason,omitempty"`

	SubmissionDate      time.Time  `db:"submission_date" json:"submissionDate"`
	ScreeningDate       *time.Time `db:"screening_date" json:"screeningDate,omitempty"`
	ShortlistDate       *time.Time `db:"shortlist_date" json:"shortlistDate,omitempty"`
	InterviewDate       *time.Time `db:"interview_date" json:"interviewDate,omitempty"`
	SelectionDate       *time.Time `db:"selection_date" json:"selectionDate,omitempty"`
	RejectionDate       *time.Time `db:"rejection_date" json:"rejectionDate,omitempty"`
	ExpectedJoiningDate *time.Time `db:"expected_joining_date" json:"expectedJoiningDate,omitempty"`
	ActualJoiningDate   *time.Time `db:"actual_joining_date" json:"actualJoiningDate,omitempty"`

	InterviewScore    *float64 `db:"interview_score" json:"interviewScore,omitempty"`
	InterviewFeedback *string  `db:"interview_feedback" json:"interviewFeedback,omitempty"`
	InterviewerName   *string  `db:"interviewer_name" json:"interviewerName,omitempty"`
	TechnicalScore    *float64 `db:"technical_score" json:"technicalScore,omitempty"`
	TechnicalFeedback *string  `db:"technical_feedback" json:"technicalFeedback,omitempty"`

	SubmittedBy   string     `db:"submitted_by" json:"submittedBy"`
	LastUpdatedBy *string    `db:"last_updated_by" json:"lastUpdatedBy,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	IsDeleted     bool       `db:"is_deleted" json:"-"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
	DeletedBy     *string    `db:"deleted_by" json:"-"`
}

// DaysInPipeline returns whole days elapsed since submission.
func (p *ProfileSubmission) DaysInPipeline(now time.Time) int {
	if p == nil || p.SubmissionDate.IsZero() || now.Before(p.SubmissionDate) {
		return 0
	}
	return int(now.Sub(p.SubmissionDate).Hours() / 24)
}

// StatusHistory is one immutable entry of a profile's audit trail.
type StatusHistory struct {
	ID                  int64         `db:"id" json:"id"`
	ProfileSubmissionID int64         `db:"profile_submission_id" json:"profileSubmissionId"`
	FromStatus          ProfileStatus `db:"from_status" json:"fromStatus"`
	ToStatus            ProfileStatus `db:"to_status" json:"toStatus"`
	Comments            *string       `db:"comments" json:"comments,omitempty"`
	Reason              *string       `db:"reason" json:"reason,omitempty"`
	ChangedBy           string        `db:"changed_by" json:"changedBy"`
	ChangedAt           time.Time     `db:"changed_at" json:"changedAt"`
}
