package models

import "time"

// Project is the slice of the external project entity the lifecycle engine
// reads and maintains.
type Project struct {
	ID                  int64      `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	ProfilesSubmitted   int        `db:"profiles_submitted" json:"profilesSubmitted"`
	ProfilesShortlisted int        `db:"profiles_shortlisted" json:"profilesShortlisted"`
	ProfilesSelected    int        `db:"profiles_selected" json:"profilesSelected"`
	UpdatedAt           *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// Counters returns the rollup counters currently stored on the project.
func (p Project) Counters() ProjectCounters {
	return ProjectCounters{
		ProjectID:           p.ID,
		ProfilesSubmitted:   p.ProfilesSubmitted,
		ProfilesShortlisted: p.ProfilesShortlisted,
		ProfilesSelected:    p.ProfilesSelected,
	}
}

// ProjectCounters are the denormalised pipeline totals kept on a project.
type ProjectCounters struct {
	ProjectID           int64 `db:"project_id" json:"projectId"`
	ProfilesSubmitted   int   `db:"profiles_submitted" json:"profilesSubmitted"`
	ProfilesShortlisted int   `db:"profiles_shortlisted" json:"profilesShortlisted"`
	ProfilesSelected    int   `db:"profiles_selected" json:"profilesSelected"`
}
