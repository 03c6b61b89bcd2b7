package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// StatusHistoryRepository stores the append-only audit trail of profile
// transitions. It exposes no update or delete.
type StatusHistoryRepository struct {
	db *sqlx.DB
}

// NewStatusHistoryRepository constructs the repository.
func NewStatusHistoryRepository(db *sqlx.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

func (r *StatusHistoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Append writes a new history entry and stores its identifier.
func (r *StatusHistoryRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusHistory) error {
	const query = `INSERT INTO profile_status_history
	(profile_submission_id, from_status, to_status, comments, reason, changed_by, changed_at)
	VALUES (:profile_submission_id, :from_status, :to_status, :comments, :reason, :changed_by, :changed_at)
	RETURNING id`
	target := r.exec(exec)
	bound, args, err := target.BindNamed(query, entry)
	if err != nil {
		return fmt.Errorf("bind status history insert: %w", err)
	}
	if err := target.QueryRowxContext(ctx, bound, args...).Scan(&entry.ID); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// ListByProfile returns the trail of a profile in ascending time order.
func (r *StatusHistoryRepository) ListByProfile(ctx context.Context, profileID int64) ([]models.StatusHistory, error) {
	const query = `SELECT id, profile_submission_id, from_status, to_status, comments, reason, changed_by, changed_at
FROM profile_status_history WHERE profile_submission_id = $1
ORDER BY changed_at ASC, id ASC`
	var entries []models.StatusHistory
	if err := r.db.SelectContext(ctx, &entries, query, profileID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

// LatestChangedAt returns the timestamp of the newest entry, or nil when the trail is empty.
func (r *StatusHistoryRepository) LatestChangedAt(ctx context.Context, exec sqlx.ExtContext, profileID int64) (*time.Time, error) {
	const query = `SELECT MAX(changed_at) FROM profile_status_history WHERE profile_submission_id = $1`
	var latest sql.NullTime
	if err := sqlx.GetContext(ctx, r.exec(exec), &latest, query, profileID); err != nil {
		return nil, fmt.Errorf("latest status history: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}
