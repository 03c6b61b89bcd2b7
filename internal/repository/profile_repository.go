package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

const profileColumns = `id, project_id, candidate_name, candidate_email, candidate_phone, position, technology,
       experience_years, expected_salary, offered_salary, resume_path, status, status_comments,
       rejection_reason, hold_reason, submission_date, screening_date, shortlist_date, interview_date,
       selection_date, rejection_date, expected_joining_date, actual_joining_date, interview_score,
       interview_feedback, interviewer_name, technical_score, technical_feedback, submitted_by,
       last_updated_by, created_at, updated_at, is_deleted, deleted_at, deleted_by`

// ProfileRepository persists profile submissions.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a submission and stores the generated identifier on it.
func (r *ProfileRepository) Create(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error {
	const query = `INSERT INTO profile_submissions
	(project_id, candidate_name, candidate_email, candidate_phone, position, technology, experience_years,
	 expected_salary, resume_path, status, status_comments, submission_date, submitted_by, created_at, is_deleted)
	VALUES (:project_id, :candidate_name, :candidate_email, :candidate_phone, :position, :technology, :experience_years,
	 :expected_salary, :resume_path, :status, :status_comments, :submission_date, :submitted_by, :created_at, false)
	RETURNING id`
	target := r.exec(exec)
	bound, args, err := target.BindNamed(query, profile)
	if err != nil {
		return fmt.Errorf("bind profile insert: %w", err)
	}
	if err := target.QueryRowxContext(ctx, bound, args...).Scan(&profile.ID); err != nil {
		return fmt.Errorf("create profile submission: %w", err)
	}
	return nil
}

// FindByID fetches a submission regardless of its deleted flag.
func (r *ProfileRepository) FindByID(ctx context.Context, id int64) (*models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions WHERE id = $1`
	var profile models.ProfileSubmission
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LockByID fetches a submission and holds a row lock until the transaction ends.
func (r *ProfileRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions WHERE id = $1 FOR UPDATE`
	var profile models.ProfileSubmission
	if err := sqlx.GetContext(ctx, r.exec(exec), &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ExistsActiveEmail reports whether a live submission for the email exists in the project.
func (r *ProfileRepository) ExistsActiveEmail(ctx context.Context, exec sqlx.ExtContext, projectID int64, email string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM profile_submissions
	WHERE project_id = $1 AND lower(candidate_email) = lower($2) AND is_deleted = false
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, projectID, email); err != nil {
		return false, fmt.Errorf("check duplicate candidate: %w", err)
	}
	return exists, nil
}

// Update persists the workflow, timeline and assessment columns of a live submission.
func (r *ProfileRepository) Update(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error {
	const query = `UPDATE profile_submissions SET
	status = :status,
	status_comments = :status_comments,
	rejection_reason = :rejection_reason,
	hold_reason = :hold_reason,
	offered_salary = :offered_salary,
	screening_date = :screening_date,
	shortlist_date = :shortlist_date,
	interview_date = :interview_date,
	selection_date = :selection_date,
	rejection_date = :rejection_date,
	expected_joining_date = :expected_joining_date,
	actual_joining_date = :actual_joining_date,
	interview_score = :interview_score,
	interview_feedback = :interview_feedback,
	interviewer_name = :interviewer_name,
	technical_score = :technical_score,
	technical_feedback = :technical_feedback,
	last_updated_by = :last_updated_by,
	updated_at = :updated_at
WHERE id = :id AND is_deleted = false`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, profile)
	if err != nil {
		return fmt.Errorf("update profile submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check profile update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete flags a live submission as deleted. History rows are untouched.
func (r *ProfileRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, id int64, actorID string, at time.Time) error {
	const query = `UPDATE profile_submissions
SET is_deleted = true, deleted_at = $2, deleted_by = $3, updated_at = $2, last_updated_by = $3
WHERE id = $1 AND is_deleted = false`
	result, err := r.exec(exec).ExecContext(ctx, query, id, at, actorID)
	if err != nil {
		return fmt.Errorf("soft delete profile submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check profile delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByProject returns live submissions of a project, newest first.
func (r *ProfileRepository) ListByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) ([]models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions
WHERE project_id = $1 AND is_deleted = false
ORDER BY submission_date DESC, id DESC`
	var profiles []models.ProfileSubmission
	if err := sqlx.SelectContext(ctx, r.exec(exec), &profiles, query, projectID); err != nil {
		return nil, fmt.Errorf("list profiles by project: %w", err)
	}
	return profiles, nil
}

// ListByStatus returns live submissions currently in status, newest first.
func (r *ProfileRepository) ListByStatus(ctx context.Context, status models.ProfileStatus) ([]models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions
WHERE status = $1 AND is_deleted = false
ORDER BY submission_date DESC, id DESC`
	var profiles []models.ProfileSubmission
	if err := r.db.SelectContext(ctx, &profiles, query, status); err != nil {
		return nil, fmt.Errorf("list profiles by status: %w", err)
	}
	return profiles, nil
}

// ListBySubmitter returns live submissions created by the given actor.
func (r *ProfileRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions
WHERE submitted_by = $1 AND is_deleted = false
ORDER BY submission_date DESC, id DESC`
	var profiles []models.ProfileSubmission
	if err := r.db.SelectContext(ctx, &profiles, query, submitterID); err != nil {
		return nil, fmt.Errorf("list profiles by submitter: %w", err)
	}
	return profiles, nil
}

// ListOverdue returns live submissions still in SUBMITTED that were submitted before cutoff.
func (r *ProfileRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]models.ProfileSubmission, error) {
	query := `SELECT ` + profileColumns + ` FROM profile_submissions
WHERE status = $1 AND submission_date < $2 AND is_deleted = false
ORDER BY submission_date ASC, id ASC`
	var profiles []models.ProfileSubmission
	if err := r.db.SelectContext(ctx, &profiles, query, models.ProfileStatusSubmitted, cutoff); err != nil {
		return nil, fmt.Errorf("list overdue profiles: %w", err)
	}
	return profiles, nil
}
