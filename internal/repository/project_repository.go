package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// ProjectRepository reads live projects and maintains their pipeline counters.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindActiveByID fetches a project that has not been deleted.
func (r *ProjectRepository) FindActiveByID(ctx context.Context, id int64) (*models.Project, error) {
	const query = `SELECT id, name, profiles_submitted, profiles_shortlisted, profiles_selected, updated_at
FROM projects WHERE id = $1 AND is_deleted = false`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// LockActiveByID fetches a live project and locks its row for the transaction.
func (r *ProjectRepository) LockActiveByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error) {
	const query = `SELECT id, name, profiles_submitted, profiles_shortlisted, profiles_selected, updated_at
FROM projects WHERE id = $1 AND is_deleted = false FOR UPDATE`
	var project models.Project
	if err := sqlx.GetContext(ctx, r.exec(exec), &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateCounters overwrites the three rollup counters of a project.
func (r *ProjectRepository) UpdateCounters(ctx context.Context, exec sqlx.ExtContext, counters models.ProjectCounters, at time.Time) error {
	const query = `UPDATE projects
SET profiles_submitted = $2, profiles_shortlisted = $3, profiles_selected = $4, updated_at = $5
WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query,
		counters.ProjectID,
		counters.ProfilesSubmitted,
		counters.ProfilesShortlisted,
		counters.ProfilesSelected,
		at,
	)
	if err != nil {
		return fmt.Errorf("update project counters: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check project counter rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveIDs returns identifiers of every live project.
func (r *ProjectRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM projects WHERE is_deleted = false ORDER BY id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}
	return ids, nil
}
