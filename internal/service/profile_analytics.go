package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amodvardhan/project-pipeline/internal/dto"
	"github.com/amodvardhan/project-pipeline/internal/models"
)

const hoursPerDay = 24

// Analyze summarises a project's live profiles. Results are served from the
// analytics cache when available; the project must still be live either way.
func (s *ProfileLifecycleService) Analyze(ctx context.Context, projectID int64) (analytics *dto.ProfileAnalytics, err error) {
	defer func() { s.trackFailure("analyze", err) }()

	if _, err = s.projects.FindActiveByID(ctx, projectID); err != nil {
		err = notFoundOr(err, fmt.Sprintf("project %d not found", projectID), "failed to load project")
		return nil, err
	}
	cached, generation, ok := s.cache.GetAnalytics(ctx, projectID)
	if ok {
		return cached, nil
	}
	profiles, listErr := s.profiles.ListByProject(ctx, nil, projectID)
	if listErr != nil {
		err = notFoundOr(listErr, "", "failed to list project profiles")
		return nil, err
	}

	analytics = Summarize(projectID, profiles)
	s.cache.StoreAnalytics(ctx, analytics, generation)
	return analytics, nil
}

// Summarize computes pipeline analytics over the live profiles of a project.
func Summarize(projectID int64, profiles []models.ProfileSubmission) *dto.ProfileAnalytics {
	out := &dto.ProfileAnalytics{
		ProjectID:          projectID,
		StatusDistribution: make(map[models.ProfileStatus]int),
	}
	var hireDays float64
	var hires int
	for i := range profiles {
		p := &profiles[i]
		if p.IsDeleted {
			continue
		}
		out.TotalProfiles++
		out.StatusDistribution[p.Status]++

		switch p.Status {
		case models.ProfileStatusSubmitted:
			out.SubmittedCount++
		case models.ProfileStatusShortlisted:
			out.ShortlistedCount++
		case models.ProfileStatusSelected:
			out.SelectedCount++
		case models.ProfileStatusRejected:
			out.RejectedCount++
		case models.ProfileStatusOnHold:
			out.OnHoldCount++
		case models.ProfileStatusJoined:
			out.JoinedCount++
			out.SelectedCount++
			if p.ActualJoiningDate != nil {
				hireDays += p.ActualJoiningDate.Sub(p.SubmissionDate).Hours() / hoursPerDay
				hires++
			}
		}
	}
	if out.TotalProfiles > 0 {
		out.ConversionRate = float64(out.SelectedCount) / float64(out.TotalProfiles)
	}
	if hires > 0 {
		out.AverageTimeToHireDays = hireDays / float64(hires)
	}
	return out
}

// FindOverdue returns live profiles still in SUBMITTED that were submitted
// more than days ago.
func (s *ProfileLifecycleService) FindOverdue(ctx context.Context, days int) (profiles []models.ProfileSubmission, err error) {
	defer func() { s.trackFailure("find_overdue", err) }()

	if days < 0 {
		err = fieldError("days", "must be at least 0")
		return nil, err
	}
	cutoff := s.now().Add(-time.Duration(days) * hoursPerDay * time.Hour)
	if profiles, err = s.profiles.ListOverdue(ctx, cutoff); err != nil {
		err = notFoundOr(err, "", "failed to list overdue profiles")
		return nil, err
	}
	if profiles == nil {
		profiles = []models.ProfileSubmission{}
	}
	return profiles, nil
}

// SweepOverdue runs FindOverdue with the configured SLA, publishes one
// overdue event per profile and records the count.
func (s *ProfileLifecycleService) SweepOverdue(ctx context.Context) (int, error) {
	profiles, err := s.FindOverdue(ctx, s.config.OverdueDays)
	if err != nil {
		return 0, err
	}
	s.metrics.SetOverdueProfiles(len(profiles))
	now := s.now()
	events := make([]models.LifecycleEvent, 0, len(profiles))
	for i := range profiles {
		events = append(events, s.newEvent(models.LifecycleEventOverdue, &profiles[i], "", profiles[i].Status, "", now))
	}
	s.afterCommit(ctx, nil, events...)
	s.logger.Info("overdue sweep completed", zap.Int("overdue", len(profiles)), zap.Int("sla_days", s.config.OverdueDays))
	return len(profiles), nil
}
