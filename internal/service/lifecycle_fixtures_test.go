package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// memoryPipelineStore backs profiles, history and projects with maps. The
// executor argument is ignored; instead the store is told about transaction
// boundaries by the driver behind txProviderMock, snapshots its state on
// begin and restores it on rollback.
type memoryPipelineStore struct {
	mu            sync.Mutex
	nextProfileID int64
	nextHistoryID int64
	profiles      map[int64]models.ProfileSubmission
	history       []models.StatusHistory
	projects      map[int64]models.Project
	deleted       map[int64]bool
	failures      map[string]error

	pending   *memorySnapshot
	commits   int
	rollbacks int
}

type memorySnapshot struct {
	nextProfileID int64
	nextHistoryID int64
	profiles      map[int64]models.ProfileSubmission
	history       []models.StatusHistory
	projects      map[int64]models.Project
}

func (m *memoryPipelineStore) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &memorySnapshot{
		nextProfileID: m.nextProfileID,
		nextHistoryID: m.nextHistoryID,
		profiles:      make(map[int64]models.ProfileSubmission, len(m.profiles)),
		history:       append([]models.StatusHistory(nil), m.history...),
		projects:      make(map[int64]models.Project, len(m.projects)),
	}
	for id, p := range m.profiles {
		snap.profiles[id] = p
	}
	for id, p := range m.projects {
		snap.projects[id] = p
	}
	m.pending = snap
}

func (m *memoryPipelineStore) commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.commits++
}

func (m *memoryPipelineStore) rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return
	}
	m.nextProfileID = m.pending.nextProfileID
	m.nextHistoryID = m.pending.nextHistoryID
	m.profiles = m.pending.profiles
	m.history = m.pending.history
	m.projects = m.pending.projects
	m.pending = nil
	m.rollbacks++
}

func (m *memoryPipelineStore) historyLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func newMemoryPipelineStore(projectIDs ...int64) *memoryPipelineStore {
	store := &memoryPipelineStore{
		profiles: map[int64]models.ProfileSubmission{},
		projects: map[int64]models.Project{},
		deleted:  map[int64]bool{},
		failures: map[string]error{},
	}
	for _, id := range projectIDs {
		store.projects[id] = models.Project{ID: id, Name: "project"}
	}
	return store
}

func (m *memoryPipelineStore) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

func (m *memoryPipelineStore) fail(method string) error {
	return m.failures[method]
}

func (m *memoryPipelineStore) Create(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return err
	}
	m.nextProfileID++
	profile.ID = m.nextProfileID
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memoryPipelineStore) FindByID(ctx context.Context, id int64) (*models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func (m *memoryPipelineStore) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LockByID"); err != nil {
		return nil, err
	}
	profile, ok := m.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func (m *memoryPipelineStore) ExistsActiveEmail(ctx context.Context, exec sqlx.ExtContext, projectID int64, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.ProjectID == projectID && !p.IsDeleted && strings.EqualFold(p.CandidateEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryPipelineStore) Update(ctx context.Context, exec sqlx.ExtContext, profile *models.ProfileSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Update"); err != nil {
		return err
	}
	current, ok := m.profiles[profile.ID]
	if !ok || current.IsDeleted {
		return sql.ErrNoRows
	}
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memoryPipelineStore) SoftDelete(ctx context.Context, exec sqlx.ExtContext, id int64, actorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok || profile.IsDeleted {
		return sql.ErrNoRows
	}
	profile.IsDeleted = true
	profile.DeletedAt = &at
	profile.DeletedBy = &actorID
	m.profiles[id] = profile
	return nil
}

func (m *memoryPipelineStore) live(filter func(models.ProfileSubmission) bool) []models.ProfileSubmission {
	out := []models.ProfileSubmission{}
	for _, p := range m.profiles {
		if !p.IsDeleted && filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryPipelineStore) ListByProject(ctx context.Context, exec sqlx.ExtContext, projectID int64) ([]models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListByProject"); err != nil {
		return nil, err
	}
	return m.live(func(p models.ProfileSubmission) bool { return p.ProjectID == projectID }), nil
}

func (m *memoryPipelineStore) ListByStatus(ctx context.Context, status models.ProfileStatus) ([]models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(func(p models.ProfileSubmission) bool { return p.Status == status }), nil
}

func (m *memoryPipelineStore) ListBySubmitter(ctx context.Context, submitterID string) ([]models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(func(p models.ProfileSubmission) bool { return p.SubmittedBy == submitterID }), nil
}

func (m *memoryPipelineStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]models.ProfileSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(func(p models.ProfileSubmission) bool {
		return p.Status == models.ProfileStatusSubmitted && p.SubmissionDate.Before(cutoff)
	}), nil
}

func (m *memoryPipelineStore) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Append"); err != nil {
		return err
	}
	m.nextHistoryID++
	entry.ID = m.nextHistoryID
	m.history = append(m.history, *entry)
	return nil
}

func (m *memoryPipelineStore) ListByProfile(ctx context.Context, profileID int64) ([]models.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.StatusHistory{}
	for _, h := range m.history {
		if h.ProfileSubmissionID == profileID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ChangedAt.Before(out[j].ChangedAt)
	})
	return out, nil
}

func (m *memoryPipelineStore) LatestChangedAt(ctx context.Context, exec sqlx.ExtContext, profileID int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *time.Time
	for _, h := range m.history {
		if h.ProfileSubmissionID != profileID {
			continue
		}
		if latest == nil || h.ChangedAt.After(*latest) {
			at := h.ChangedAt
			latest = &at
		}
	}
	return latest, nil
}

func (m *memoryPipelineStore) FindActiveByID(ctx context.Context, id int64) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok || m.deleted[id] {
		return nil, sql.ErrNoRows
	}
	return &project, nil
}

func (m *memoryPipelineStore) LockActiveByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Project, error) {
	return m.FindActiveByID(ctx, id)
}

func (m *memoryPipelineStore) UpdateCounters(ctx context.Context, exec sqlx.ExtContext, counters models.ProjectCounters, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateCounters"); err != nil {
		return err
	}
	project, ok := m.projects[counters.ProjectID]
	if !ok {
		return sql.ErrNoRows
	}
	project.ProfilesSubmitted = counters.ProfilesSubmitted
	project.ProfilesShortlisted = counters.ProfilesShortlisted
	project.ProfilesSelected = counters.ProfilesSelected
	project.UpdatedAt = &at
	m.projects[counters.ProjectID] = project
	return nil
}

func (m *memoryPipelineStore) ListActiveIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int64{}
	for id := range m.projects {
		if !m.deleted[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memoryPipelineStore) profile(id int64) models.ProfileSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id]
}

func (m *memoryPipelineStore) project(id int64) models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id]
}

func (m *memoryPipelineStore) setProjectCounters(counters models.ProjectCounters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project := m.projects[counters.ProjectID]
	project.ProfilesSubmitted = counters.ProfilesSubmitted
	project.ProfilesShortlisted = counters.ProfilesShortlisted
	project.ProfilesSelected = counters.ProfilesSelected
	m.projects[counters.ProjectID] = project
}

func (m *memoryPipelineStore) allProfiles() []models.ProfileSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ProfileSubmission, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out
}

type txHooks interface {
	begin()
	commit()
	rollback()
}

var txMockSeq int64

// hookedConnector opens sqlmock connections whose transactions report
// begin, commit and rollback to hooks.
type hookedConnector struct {
	dsn    string
	driver driver.Driver
	hooks  txHooks
}

func (c hookedConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &hookedConn{Conn: conn, hooks: c.hooks}, nil
}

func (c hookedConnector) Driver() driver.Driver {
	return c.driver
}

type hookedConn struct {
	driver.Conn
	hooks txHooks
}

func (c *hookedConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *hookedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var (
		tx  driver.Tx
		err error
	)
	if beginner, ok := c.Conn.(driver.ConnBeginTx); ok {
		tx, err = beginner.BeginTx(ctx, opts)
	} else {
		tx, err = c.Conn.Begin() //nolint:staticcheck
	}
	if err != nil {
		return nil, err
	}
	c.hooks.begin()
	return &hookedTx{Tx: tx, hooks: c.hooks}, nil
}

type hookedTx struct {
	driver.Tx
	hooks txHooks
}

func (t *hookedTx) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		t.hooks.rollback()
		return err
	}
	t.hooks.commit()
	return nil
}

func (t *hookedTx) Rollback() error {
	t.hooks.rollback()
	return t.Tx.Rollback()
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T, hooks txHooks) (*txProviderMock, sqlmock.Sqlmock) {
	dsn := fmt.Sprintf("lifecycle-%d", atomic.AddInt64(&txMockSeq, 1))
	raw, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sql.OpenDB(hookedConnector{dsn: dsn, driver: raw.Driver(), hooks: hooks})
	t.Cleanup(func() {
		db.Close()
		raw.Close()
	})
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) recorded() []models.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.LifecycleEvent(nil), p.events...)
}

// steppingClock returns a strictly increasing time on each call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

var errDiskFull = errors.New("disk full")

type lifecycleHarness struct {
	store     *memoryPipelineStore
	mock      sqlmock.Sqlmock
	publisher *recordingPublisher
	metrics   *MetricsService
	svc       *ProfileLifecycleService
}

func newLifecycleHarness(t *testing.T, projectIDs ...int64) *lifecycleHarness {
	store := newMemoryPipelineStore(projectIDs...)
	tx, mock := newTxProviderMock(t, store)
	publisher := &recordingPublisher{}
	metrics := NewMetricsService()
	svc := NewProfileLifecycleService(ProfileLifecycleServiceParams{
		Profiles: store,
		History:  store,
		Projects: store,
		Tx:       tx,
		Events:   publisher,
		Metrics:  metrics,
		Now:      steppingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Minute),
	})
	return &lifecycleHarness{store: store, mock: mock, publisher: publisher, metrics: metrics, svc: svc}
}

func (h *lifecycleHarness) expectCommit() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *lifecycleHarness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}
