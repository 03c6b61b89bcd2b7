// Command counter_audit compares the rollup counters stored on each active
// project with a fresh tally of its profiles and reports any drift. With
// -fix it rewrites drifted projects through the lifecycle service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amodvardhan/project-pipeline/internal/models"
	"github.com/amodvardhan/project-pipeline/internal/repository"
	"github.com/amodvardhan/project-pipeline/internal/service"
	"github.com/amodvardhan/project-pipeline/pkg/config"
	"github.com/amodvardhan/project-pipeline/pkg/database"
)

type projectReader interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Project, error)
}

type profileLister interface {
	ListByProject(ctx context.Context, projectID int64) ([]models.ProfileSubmission, error)
}

type repairer interface {
	RecomputeCounters(ctx context.Context, projectID int64) (models.ProjectCounters, error)
}

type comparison struct {
	ProjectID int64
	Stored    models.ProjectCounters
	Actual    models.ProjectCounters
	Fixed     bool
	Error     error
}

func (c comparison) drifted() bool {
	return c.Error == nil && c.Stored != c.Actual
}

func main() {
	var (
		fix     bool
		timeout time.Duration
	)
	flag.BoolVar(&fix, "fix", false, "Recompute counters for drifted projects")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall audit timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	profiles := repository.NewProfileRepository(db)
	projects := repository.NewProjectRepository(db)

	var fixer repairer
	if fix {
		fixer = service.NewProfileLifecycleService(service.ProfileLifecycleServiceParams{
			Profiles: profiles,
			History:  repository.NewStatusHistoryRepository(db),
			Projects: projects,
			Tx:       db,
		})
	}

	results, err := audit(ctx, projects, profileListerFunc(func(ctx context.Context, id int64) ([]models.ProfileSubmission, error) {
		return profiles.ListByProject(ctx, nil, id)
	}), fixer)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	drifted, failed := printReport(results)
	fmt.Printf("Drifted projects: %d, Errors: %d\n", drifted, failed)
	if failed > 0 || (drifted > 0 && !fix) {
		os.Exit(1)
	}
}

type profileListerFunc func(ctx context.Context, projectID int64) ([]models.ProfileSubmission, error)

func (f profileListerFunc) ListByProject(ctx context.Context, projectID int64) ([]models.ProfileSubmission, error) {
	return f(ctx, projectID)
}

func audit(ctx context.Context, projects projectReader, profiles profileLister, fixer repairer) ([]comparison, error) {
	ids, err := projects.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	results := make([]comparison, 0, len(ids))
	for _, id := range ids {
		comp := compareProject(ctx, projects, profiles, id)
		if comp.drifted() && fixer != nil {
			if _, err := fixer.RecomputeCounters(ctx, id); err != nil {
				comp.Error = fmt.Errorf("recompute: %w", err)
			} else {
				comp.Fixed = true
			}
		}
		results = append(results, comp)
	}
	return results, nil
}

func compareProject(ctx context.Context, projects projectReader, profiles profileLister, id int64) comparison {
	comp := comparison{ProjectID: id}

	project, err := projects.FindActiveByID(ctx, id)
	if err != nil {
		comp.Error = fmt.Errorf("load project: %w", err)
		return comp
	}
	list, err := profiles.ListByProject(ctx, id)
	if err != nil {
		comp.Error = fmt.Errorf("list profiles: %w", err)
		return comp
	}

	comp.Stored = project.Counters()
	comp.Actual = service.Tally(id, list)
	return comp
}

func printReport(results []comparison) (drifted, failed int) {
	fmt.Println("Counter Audit Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
			failed++
		case res.drifted() && res.Fixed:
			status = "FIXED"
			drifted++
		case res.drifted():
			status = "DRIFT"
			drifted++
		}
		fmt.Printf("[%s] project %d\n", status, res.ProjectID)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		if res.drifted() {
			fmt.Printf("  Stored: submitted=%d shortlisted=%d selected=%d\n",
				res.Stored.ProfilesSubmitted, res.Stored.ProfilesShortlisted, res.Stored.ProfilesSelected)
			fmt.Printf("  Actual: submitted=%d shortlisted=%d selected=%d\n",
				res.Actual.ProfilesSubmitted, res.Actual.ProfilesShortlisted, res.Actual.ProfilesSelected)
		}
	}
	return drifted, failed
}
