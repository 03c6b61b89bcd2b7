package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amodvardhan/project-pipeline/internal/dto"
	appErrors "github.com/amodvardhan/project-pipeline/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// NoGeneration marks a lookup whose generation could not be read; results
// computed under it are never stored.
const NoGeneration int64 = -1

// AnalyticsGenerationKey holds the project's analytics generation. Every
// committed mutation of the project bumps it.
func AnalyticsGenerationKey(projectID int64) string {
	return fmt.Sprintf("analytics:project:%d:gen", projectID)
}

// AnalyticsCacheKey is the key holding the project's summary computed under generation.
func AnalyticsCacheKey(projectID, generation int64) string {
	return fmt.Sprintf("analytics:project:%d:v%d", projectID, generation)
}

// CacheService keeps project analytics in Redis. Every failure is logged and
// swallowed: the cache never decides the outcome of a lifecycle operation.
// Entries are keyed by generation, so a summary computed before a mutation
// committed is never served after it.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// GetAnalytics returns the cached summary for the project's current
// generation. The generation is returned on a miss too; callers pass it to
// StoreAnalytics after computing the summary.
func (s *CacheService) GetAnalytics(ctx context.Context, projectID int64) (*dto.ProfileAnalytics, int64, bool) {
	if !s.Enabled() {
		return nil, NoGeneration, false
	}
	start := time.Now()
	generation, err := s.repo.Counter(ctx, AnalyticsGenerationKey(projectID))
	if err != nil {
		s.logger.Warn("analytics generation read failed", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, NoGeneration, false
	}
	key := AnalyticsCacheKey(projectID, generation)
	var cached dto.ProfileAnalytics
	err = s.repo.Get(ctx, key, &cached)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, generation, false
	}
	return &cached, generation, true
}

// StoreAnalytics caches the summary under the generation it was computed for.
func (s *CacheService) StoreAnalytics(ctx context.Context, analytics *dto.ProfileAnalytics, generation int64) {
	if !s.Enabled() || analytics == nil || generation == NoGeneration {
		return
	}
	key := AnalyticsCacheKey(analytics.ProjectID, generation)
	if err := s.repo.Set(ctx, key, analytics, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateProject bumps the project's generation and drops the entry of the
// previous one.
func (s *CacheService) InvalidateProject(ctx context.Context, projectID int64) {
	if !s.Enabled() {
		return
	}
	generation, err := s.repo.Incr(ctx, AnalyticsGenerationKey(projectID))
	if err != nil {
		s.logger.Warn("analytics cache invalidate failed", zap.Int64("project_id", projectID), zap.Error(err))
		return
	}
	key := AnalyticsCacheKey(projectID, generation-1)
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("analytics cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
