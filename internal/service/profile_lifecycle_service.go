package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/amodvardhan/project-pipeline/internal/dto"
	"github.com/amodvardhan/project-pipeline/internal/models"
	"github.com/amodvardhan/project-pipeline/internal/pipeline"
	appErrors "github.com/amodvardhan/project-pipeline/pkg/errors"
)

const (
	defaultInitialComment = "profile submitted"
	pqUniqueViolation     = "23505"
)

type profileStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error
	FindByID(ctx context.Context, id int64) (*models.ProfileSubmission, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ProfileSubmission, error)
	ExistsActiveEmail(ctx context.Context, exec sqlx.ExtContext, projectID int64, email string) (bool, error)
	Update(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, id int64, actorID string, at time.Time) error
	ListByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) ([]models.ProfileSubmission, error)
	ListByStatus(ctx context.Context, status models.ProfileStatus) ([]models.ProfileSubmission, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]models.ProfileSubmission, error)
	ListOverdue(ctx context.Context, cutoff time.Time) ([]models.ProfileSubmission, error)
}

type statusHistoryStore interface {
	Append(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusHistory) error
	ListByProfile(ctx context.Context, profileID int64) ([]models.StatusHistory, error)
	LatestChangedAt(ctx context.Context, exec sqlx.ExtContext, profileID int64) (*time.Time, error)
}

type projectStore interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Project, error)
	LockActiveByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error)
	UpdateCounters(ctx context.Context, exec sqlx.ExtContext, counters models.ProjectCounters, at time.Time) error
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type lifecycleEventPublisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

// LifecycleConfig tunes the lifecycle engine.
type LifecycleConfig struct {
	OverdueDays int
}

// ProfileLifecycleServiceParams groups the collaborators of the lifecycle service.
type ProfileLifecycleServiceParams struct {
	Profiles  profileStore
	History   statusHistoryStore
	Projects  projectStore
	Tx        txProvider
	Cache     *CacheService
	Events    lifecycleEventPublisher
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Now       func() time.Time
	Config    LifecycleConfig
}

// ProfileLifecycleService moves profile submissions through the recruiting
// workflow. Every mutation runs in one transaction that covers the profile
// row, its history entry and the project counters.
type ProfileLifecycleService struct {
	profiles  profileStore
	history   statusHistoryStore
	projects  projectStore
	tx        txProvider
	counters  *CounterAggregator
	cache     *CacheService
	events    lifecycleEventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	config    LifecycleConfig
}

// NewProfileLifecycleService wires the service with defaults for optional collaborators.
func NewProfileLifecycleService(params ProfileLifecycleServiceParams) *ProfileLifecycleService {
	if params.Validator == nil {
		params.Validator = NewValidator()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	if params.Config.OverdueDays <= 0 {
		params.Config.OverdueDays = 7
	}
	return &ProfileLifecycleService{
		profiles:  params.Profiles,
		history:   params.History,
		projects:  params.Projects,
		tx:        params.Tx,
		counters:  NewCounterAggregator(params.Profiles, params.Projects, params.Metrics, params.Now),
		cache:     params.Cache,
		events:    params.Events,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		now:       params.Now,
		config:    params.Config,
	}
}

// CreateSubmission registers a candidate against a project in SUBMITTED and
// writes the opening history entry.
func (s *ProfileLifecycleService) CreateSubmission(ctx context.Context, req dto.CreateProfileSubmissionRequest, actorID string) (profile *models.ProfileSubmission, err error) {
	defer func() { s.trackFailure("create_submission", err) }()

	req.CandidateName = strings.TrimSpace(req.CandidateName)
	req.CandidateEmail = normaliseEmail(req.CandidateEmail)
	if err = s.validator.Struct(req); err != nil {
		err = validationError(err)
		return nil, err
	}

	var tx *sqlx.Tx
	if tx, err = s.begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.projects.LockActiveByID(ctx, tx, req.ProjectID); err != nil {
		err = notFoundOr(err, fmt.Sprintf("project %d not found", req.ProjectID), "failed to load project")
		return nil, err
	}

	var exists bool
	if exists, err = s.profiles.ExistsActiveEmail(ctx, tx, req.ProjectID, req.CandidateEmail); err != nil {
		err = appErrors.Storage(err, "failed to check for duplicate candidate")
		return nil, err
	}
	if exists {
		err = duplicateCandidate(req.CandidateEmail, req.ProjectID)
		return nil, err
	}

	now := s.now()
	profile = &models.ProfileSubmission{
		ProjectID:       req.ProjectID,
		CandidateName:   req.CandidateName,
		CandidateEmail:  req.CandidateEmail,
		CandidatePhone:  optionalString(req.CandidatePhone),
		Position:        strings.TrimSpace(req.Position),
		Technology:      strings.TrimSpace(req.Technology),
		ExperienceYears: req.ExperienceYears,
		ExpectedSalary:  req.ExpectedSalary,
		ResumePath:      optionalString(req.ResumePath),
		Status:          models.ProfileStatusSubmitted,
		StatusComments:  optionalString(req.InitialComments),
		SubmissionDate:  now,
		SubmittedBy:     actorID,
		CreatedAt:       now,
	}
	if err = s.profiles.Create(ctx, tx, profile); err != nil {
		if isUniqueViolation(err) {
			err = duplicateCandidate(req.CandidateEmail, req.ProjectID)
		} else {
			err = appErrors.Storage(err, "failed to create profile submission")
		}
		return nil, err
	}

	comment := strings.TrimSpace(req.InitialComments)
	if comment == "" {
		comment = defaultInitialComment
	}
	entry := &models.StatusHistory{
		ProfileSubmissionID: profile.ID,
		FromStatus:          models.ProfileStatusSubmitted,
		ToStatus:            models.ProfileStatusSubmitted,
		Comments:            &comment,
		ChangedBy:           actorID,
		ChangedAt:           now,
	}
	if err = s.history.Append(ctx, tx, entry); err != nil {
		err = appErrors.Storage(err, "failed to record status history")
		return nil, err
	}

	if _, err = s.counters.Recompute(ctx, tx, req.ProjectID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit profile submission")
		return nil, err
	}

	s.logger.Info("profile submitted",
		zap.Int64("profile_id", profile.ID),
		zap.Int64("project_id", profile.ProjectID),
		zap.String("actor", actorID),
	)
	s.afterCommit(ctx, []int64{profile.ProjectID}, s.newEvent(models.LifecycleEventSubmitted, profile, "", models.ProfileStatusSubmitted, actorID, now))
	return profile, nil
}

// ApplyTransition moves one profile to the requested status. An illegal move
// fails with INVALID_TRANSITION and writes nothing.
func (s *ProfileLifecycleService) ApplyTransition(ctx context.Context, profileID int64, req dto.TransitionRequest, actorID string) (profile *models.ProfileSubmission, err error) {
	defer func() { s.trackFailure("apply_transition", err) }()

	var target models.ProfileStatus
	if target, err = s.parseTransition(req); err != nil {
		return nil, err
	}

	var tx *sqlx.Tx
	if tx, err = s.begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if profile, err = s.lockLiveProfile(ctx, tx, profileID); err != nil {
		return nil, err
	}
	from := profile.Status
	if !pipeline.Validate(from, target) {
		err = appErrors.InvalidTransition(from, target)
		return nil, err
	}

	now := s.now()
	if err = s.writeTransition(ctx, tx, profile, target, req, actorID, now); err != nil {
		return nil, err
	}
	if _, err = s.counters.Recompute(ctx, tx, profile.ProjectID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit status transition")
		return nil, err
	}

	s.metrics.ObserveTransition(from, target)
	s.logger.Info("profile status changed",
		zap.Int64("profile_id", profile.ID),
		zap.String("from", from.String()),
		zap.String("to", target.String()),
		zap.String("actor", actorID),
	)
	s.afterCommit(ctx, []int64{profile.ProjectID}, s.newEvent(models.LifecycleEventStatusChanged, profile, from, target, actorID, now))
	return profile, nil
}

// BulkApplyTransition applies one target status to many profiles in a single
// transaction. Missing or deleted profiles are skipped, profiles that cannot
// legally reach the target are reported as rejected, and any storage error
// aborts the whole batch.
func (s *ProfileLifecycleService) BulkApplyTransition(ctx context.Context, req dto.BulkTransitionRequest, actorID string) (result *dto.BulkTransitionResult, err error) {
	defer func() { s.trackFailure("bulk_apply_transition", err) }()

	if err = s.validator.Struct(req); err != nil {
		err = validationError(err)
		return nil, err
	}
	var target models.ProfileStatus
	if target, err = models.ParseProfileStatus(req.Status); err != nil {
		err = fieldError("status", err.Error())
		return nil, err
	}

	ids := uniqueSortedIDs(req.ProfileIDs)
	result = &dto.BulkTransitionResult{
		Status:    target,
		Requested: len(ids),
		Updated:   []int64{},
		Skipped:   []int64{},
		Rejected:  map[int64]string{},
	}

	var tx *sqlx.Tx
	if tx, err = s.begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	fields := dto.TransitionRequest{Status: req.Status, Comments: req.Reason, Reason: req.Reason}
	projects := map[int64]struct{}{}
	var events []models.LifecycleEvent
	var moves [][2]models.ProfileStatus

	for _, id := range ids {
		var profile *models.ProfileSubmission
		profile, err = s.lockLiveProfile(ctx, tx, id)
		if appErrors.Is(err, appErrors.ErrNotFound) {
			err = nil
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		from := profile.Status
		if !pipeline.Validate(from, target) {
			result.Rejected[id] = appErrors.InvalidTransition(from, target).Message
			continue
		}
		if err = s.writeTransition(ctx, tx, profile, target, fields, actorID, now); err != nil {
			return nil, err
		}
		result.Updated = append(result.Updated, id)
		projects[profile.ProjectID] = struct{}{}
		moves = append(moves, [2]models.ProfileStatus{from, target})
		events = append(events, s.newEvent(models.LifecycleEventStatusChanged, profile, from, target, actorID, now))
	}

	projectIDs := sortedKeys(projects)
	for _, projectID := range projectIDs {
		if _, err = s.counters.Recompute(ctx, tx, projectID); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit bulk transition")
		return nil, err
	}

	for _, move := range moves {
		s.metrics.ObserveTransition(move[0], move[1])
	}
	s.logger.Info("bulk status change applied",
		zap.String("to", target.String()),
		zap.Int("requested", result.Requested),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("rejected", len(result.Rejected)),
		zap.String("actor", actorID),
	)
	s.afterCommit(ctx, projectIDs, events...)
	return result, nil
}

// DeleteSubmission soft-deletes a profile and drops its counter contribution.
// The status history is left untouched.
func (s *ProfileLifecycleService) DeleteSubmission(ctx context.Context, profileID int64, actorID string) (err error) {
	defer func() { s.trackFailure("delete_submission", err) }()

	var tx *sqlx.Tx
	if tx, err = s.begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var profile *models.ProfileSubmission
	if profile, err = s.lockLiveProfile(ctx, tx, profileID); err != nil {
		return err
	}
	now := s.now()
	if err = s.profiles.SoftDelete(ctx, tx, profileID, actorID, now); err != nil {
		err = notFoundOr(err, fmt.Sprintf("profile submission %d not found", profileID), "failed to delete profile submission")
		return err
	}
	if _, err = s.counters.Recompute(ctx, tx, profile.ProjectID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit profile deletion")
		return err
	}

	s.logger.Info("profile deleted", zap.Int64("profile_id", profileID), zap.String("actor", actorID))
	s.afterCommit(ctx, []int64{profile.ProjectID}, s.newEvent(models.LifecycleEventDeleted, profile, profile.Status, "", actorID, now))
	return nil
}

// GetSubmission returns a live profile with its full history.
func (s *ProfileLifecycleService) GetSubmission(ctx context.Context, profileID int64) (*dto.ProfileDetail, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("profile submission %d not found", profileID), "failed to load profile submission")
	}
	if profile.IsDeleted {
		return nil, profileNotFound(profileID)
	}
	history, err := s.history.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load status history")
	}
	if history == nil {
		history = []models.StatusHistory{}
	}
	return &dto.ProfileDetail{
		Profile:            *profile,
		DaysInPipeline:     profile.DaysInPipeline(s.now()),
		AllowedNext:        pipeline.AllowedTransitions(profile.Status),
		StatusHistory:      history,
		StatusHistoryCount: len(history),
	}, nil
}

// History returns the ordered status history of a profile, including one that
// has since been deleted.
func (s *ProfileLifecycleService) History(ctx context.Context, profileID int64) ([]models.StatusHistory, error) {
	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("profile submission %d not found", profileID), "failed to load profile submission")
	}
	history, err := s.history.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load status history")
	}
	return history, nil
}

// ListByProject returns live profiles of a project, newest first.
func (s *ProfileLifecycleService) ListByProject(ctx context.Context, projectID int64) ([]models.ProfileSubmission, error) {
	if _, err := s.projects.FindActiveByID(ctx, projectID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("project %d not found", projectID), "failed to load project")
	}
	profiles, err := s.profiles.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list project profiles")
	}
	return profiles, nil
}

// ListByStatus returns live profiles currently in the given status.
func (s *ProfileLifecycleService) ListByStatus(ctx context.Context, rawStatus string) ([]models.ProfileSubmission, error) {
	status, err := models.ParseProfileStatus(rawStatus)
	if err != nil {
		return nil, fieldError("status", err.Error())
	}
	profiles, err := s.profiles.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list profiles by status")
	}
	return profiles, nil
}

// ListBySubmitter returns live profiles created by the actor.
func (s *ProfileLifecycleService) ListBySubmitter(ctx context.Context, submitterID string) ([]models.ProfileSubmission, error) {
	if strings.TrimSpace(submitterID) == "" {
		return nil, fieldError("submittedBy", "is required")
	}
	profiles, err := s.profiles.ListBySubmitter(ctx, submitterID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list profiles by submitter")
	}
	return profiles, nil
}

// RecomputeCounters rebuilds one project's counters in its own transaction.
func (s *ProfileLifecycleService) RecomputeCounters(ctx context.Context, projectID int64) (counters models.ProjectCounters, err error) {
	defer func() { s.trackFailure("recompute_counters", err) }()

	var tx *sqlx.Tx
	if tx, err = s.begin(ctx); err != nil {
		return models.ProjectCounters{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if counters, err = s.counters.Recompute(ctx, tx, projectID); err != nil {
		return models.ProjectCounters{}, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Storage(err, "failed to commit counter recompute")
		return models.ProjectCounters{}, err
	}
	s.afterCommit(ctx, []int64{projectID})
	return counters, nil
}

// ReconcileAllCounters recomputes every live project. A failing project is
// logged and skipped; the returned error reports how many failed.
func (s *ProfileLifecycleService) ReconcileAllCounters(ctx context.Context) (int, error) {
	ids, err := s.projects.ListActiveIDs(ctx)
	if err != nil {
		return 0, appErrors.Storage(err, "failed to list projects")
	}
	var reconciled, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return reconciled, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "counter reconciliation interrupted")
		}
		if _, err := s.RecomputeCounters(ctx, id); err != nil {
			failed++
			s.logger.Warn("counter reconciliation failed", zap.Int64("project_id", id), zap.Error(err))
			continue
		}
		reconciled++
	}
	s.logger.Info("project counters reconciled", zap.Int("projects", reconciled), zap.Int("failed", failed))
	if failed > 0 {
		return reconciled, appErrors.Clone(appErrors.ErrStorage, fmt.Sprintf("counter reconciliation failed for %d of %d projects", failed, len(ids)))
	}
	return reconciled, nil
}

func (s *ProfileLifecycleService) parseTransition(req dto.TransitionRequest) (models.ProfileStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err)
	}
	target, err := models.ParseProfileStatus(req.Status)
	if err != nil {
		return "", fieldError("status", err.Error())
	}
	return target, nil
}

func (s *ProfileLifecycleService) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to begin transaction")
	}
	return tx, nil
}

func (s *ProfileLifecycleService) lockLiveProfile(ctx context.Context, tx *sqlx.Tx, profileID int64) (*models.ProfileSubmission, error) {
	profile, err := s.profiles.LockByID(ctx, tx, profileID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("profile submission %d not found", profileID), "failed to load profile submission")
	}
	if profile.IsDeleted {
		return nil, profileNotFound(profileID)
	}
	return profile, nil
}

// writeTransition mutates the locked profile, persists it and appends the
// matching history entry.
func (s *ProfileLifecycleService) writeTransition(ctx context.Context, tx *sqlx.Tx, profile *models.ProfileSubmission, target models.ProfileStatus, req dto.TransitionRequest, actorID string, now time.Time) error {
	from := profile.Status
	applyStatusEffects(profile, target, req, now)
	profile.LastUpdatedBy = &actorID
	profile.UpdatedAt = &now

	if err := s.profiles.Update(ctx, tx, profile); err != nil {
		return notFoundOr(err, fmt.Sprintf("profile submission %d not found", profile.ID), "failed to update profile submission")
	}

	changedAt := now
	latest, err := s.history.LatestChangedAt(ctx, tx, profile.ID)
	if err != nil {
		return appErrors.Storage(err, "failed to read status history")
	}
	if latest != nil && changedAt.Before(*latest) {
		changedAt = *latest
	}
	entry := &models.StatusHistory{
		ProfileSubmissionID: profile.ID,
		FromStatus:          from,
		ToStatus:            target,
		Comments:            optionalString(req.Comments),
		Reason:              optionalString(req.Reason),
		ChangedBy:           actorID,
		ChangedAt:           changedAt,
	}
	if err := s.history.Append(ctx, tx, entry); err != nil {
		return appErrors.Storage(err, "failed to record status history")
	}
	return nil
}

// applyStatusEffects sets the fields owned by the status being entered.
// Milestone timestamps are only written the first time.
func applyStatusEffects(profile *models.ProfileSubmission, target models.ProfileStatus, req dto.TransitionRequest, now time.Time) {
	profile.Status = target
	profile.StatusComments = optionalString(req.Comments)

	switch target {
	case models.ProfileStatusUnderScreening:
		setOnce(&profile.ScreeningDate, now)
	case models.ProfileStatusShortlisted:
		setOnce(&profile.ShortlistDate, now)
	case models.ProfileStatusRejected:
		profile.RejectionReason = optionalString(req.Reason)
		setOnce(&profile.RejectionDate, now)
	case models.ProfileStatusOnHold:
		profile.HoldReason = optionalString(req.Reason)
	case models.ProfileStatusInterviewScheduled:
		if req.InterviewDate != nil {
			at := req.InterviewDate.UTC()
			profile.InterviewDate = &at
		}
		if name := optionalString(req.InterviewerName); name != nil {
			profile.InterviewerName = name
		}
	case models.ProfileStatusInterviewCompleted:
		if req.InterviewScore != nil {
			profile.InterviewScore = req.InterviewScore
		}
		if feedback := optionalString(req.InterviewFeedback); feedback != nil {
			profile.InterviewFeedback = feedback
		}
	case models.ProfileStatusTechnicalRoundCompleted:
		if req.TechnicalScore != nil {
			profile.TechnicalScore = req.TechnicalScore
		}
		if feedback := optionalString(req.TechnicalFeedback); feedback != nil {
			profile.TechnicalFeedback = feedback
		}
	case models.ProfileStatusSelected:
		setOnce(&profile.SelectionDate, now)
		if req.ExpectedJoiningDate != nil {
			at := req.ExpectedJoiningDate.UTC()
			profile.ExpectedJoiningDate = &at
		}
		if req.OfferedSalary != nil {
			profile.OfferedSalary = req.OfferedSalary
		}
	case models.ProfileStatusJoined:
		setOnce(&profile.ActualJoiningDate, now)
	}
}

// afterCommit runs the best-effort side channels of a committed mutation.
func (s *ProfileLifecycleService) afterCommit(ctx context.Context, projectIDs []int64, events ...models.LifecycleEvent) {
	for _, projectID := range projectIDs {
		s.cache.InvalidateProject(ctx, projectID)
	}
	if s.events == nil {
		return
	}
	for _, event := range events {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("lifecycle event not published",
				zap.String("event_type", string(event.Type)),
				zap.Int64("profile_id", event.ProfileID),
				zap.Error(err),
			)
		}
	}
}

func (s *ProfileLifecycleService) newEvent(eventType models.LifecycleEventType, profile *models.ProfileSubmission, from, to models.ProfileStatus, actorID string, at time.Time) models.LifecycleEvent {
	return models.LifecycleEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		ProfileID:  profile.ID,
		ProjectID:  profile.ProjectID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

func (s *ProfileLifecycleService) trackFailure(operation string, err error) {
	if err == nil {
		return
	}
	s.metrics.RecordFailure(operation, err)
	appErr := appErrors.FromError(err)
	if appErr.Status >= 500 {
		s.logger.Error("lifecycle operation failed", zap.String("operation", operation), zap.String("code", appErr.Code), zap.Error(err))
		return
	}
	s.logger.Debug("lifecycle operation refused", zap.String("operation", operation), zap.String("code", appErr.Code), zap.String("reason", appErr.Message))
}

func notFoundOr(err error, notFoundMsg, storageMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Storage(err, storageMsg)
}

func profileNotFound(id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("profile submission %d not found", id))
}

func duplicateCandidate(email string, projectID int64) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("candidate %s is already submitted for project %d", email, projectID))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func setOnce(field **time.Time, at time.Time) {
	if *field == nil {
		stamp := at
		*field = &stamp
	}
}

func uniqueSortedIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
