package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amodvardhan/project-pipeline/internal/models"
	"github.com/amodvardhan/project-pipeline/internal/pipeline"
	appErrors "github.com/amodvardhan/project-pipeline/pkg/errors"
)

type counterProfileLister interface {
	ListByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) ([]models.ProfileSubmission, error)
}

type counterProjectWriter interface {
	LockActiveByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error)
	UpdateCounters(ctx context.Context, exec sqlx.ExtContext, counters models.ProjectCounters, at time.Time) error
}

// Tally counts the rollup totals for a project from its profiles. Deleted
// profiles contribute nothing.
func Tally(projectID int64, profiles []models.ProfileSubmission) models.ProjectCounters {
	counters := models.ProjectCounters{ProjectID: projectID}
	for i := range profiles {
		p := &profiles[i]
		if p.IsDeleted || p.ProjectID != projectID {
			continue
		}
		counters.ProfilesSubmitted++
		if pipeline.IsAtOrPastShortlisted(p.Status) {
			counters.ProfilesShortlisted++
		}
		if pipeline.IsAtOrPastSelected(p.Status) {
			counters.ProfilesSelected++
		}
	}
	return counters
}

// CounterAggregator overwrites a project's rollup counters with a fresh
// tally of its profiles. It never increments.
type CounterAggregator struct {
	profiles counterProfileLister
	projects counterProjectWriter
	metrics  *MetricsService
	now      func() time.Time
}

// NewCounterAggregator constructs the aggregator.
func NewCounterAggregator(profiles counterProfileLister, projects counterProjectWriter, metrics *MetricsService, now func() time.Time) *CounterAggregator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &CounterAggregator{profiles: profiles, projects: projects, metrics: metrics, now: now}
}

// Recompute locks the project row, scans its live profiles through exec and
// stores the result. exec is normally the caller's transaction.
func (a *CounterAggregator) Recompute(ctx context.Context, exec sqlx.ExtContext, projectID int64) (models.ProjectCounters, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveRecompute(time.Since(start)) }()

	if _, err := a.projects.LockActiveByID(ctx, exec, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProjectCounters{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("project %d not found", projectID))
		}
		return models.ProjectCounters{}, appErrors.Storage(err, "failed to lock project")
	}
	profiles, err := a.profiles.ListByProject(ctx, exec, projectID)
	if err != nil {
		return models.ProjectCounters{}, appErrors.Storage(err, "failed to scan project profiles")
	}
	counters := Tally(projectID, profiles)
	if err := a.projects.UpdateCounters(ctx, exec, counters, a.now()); err != nil {
		return models.ProjectCounters{}, appErrors.Storage(err, "failed to update project counters")
	}
	return counters, nil
}
