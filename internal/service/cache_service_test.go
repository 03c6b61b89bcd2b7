package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amodvardhan/project-pipeline/internal/dto"
	"github.com/amodvardhan/project-pipeline/internal/repository"
)

func TestCacheServiceGenerations(t *testing.T) {
	mr, client := newAnalyticsRedis(t)
	ctx := context.Background()
	cache := NewCacheService(repository.NewCacheRepository(client, "pipeline", nil), NewMetricsService(), time.Minute, nil, true)

	_, gen, ok := cache.GetAnalytics(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	cache.StoreAnalytics(ctx, &dto.ProfileAnalytics{ProjectID: 7, TotalProfiles: 3}, gen)
	cached, _, ok := cache.GetAnalytics(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, 3, cached.TotalProfiles)

	cache.InvalidateProject(ctx, 7)
	assert.False(t, mr.Exists("pipeline:"+AnalyticsCacheKey(7, 0)))

	// A summary computed under the old generation lands after invalidation.
	cache.StoreAnalytics(ctx, &dto.ProfileAnalytics{ProjectID: 7, TotalProfiles: 3}, gen)
	_, current, ok := cache.GetAnalytics(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, int64(1), current)
}

func TestCacheServiceSkipsStoreWithoutGeneration(t *testing.T) {
	mr, client := newAnalyticsRedis(t)
	ctx := context.Background()
	cache := NewCacheService(repository.NewCacheRepository(client, "pipeline", nil), NewMetricsService(), time.Minute, nil, true)

	mr.Set("pipeline:"+AnalyticsGenerationKey(7), "not-a-number")
	_, gen, ok := cache.GetAnalytics(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, NoGeneration, gen)

	cache.StoreAnalytics(ctx, &dto.ProfileAnalytics{ProjectID: 7}, gen)
	assert.False(t, mr.Exists("pipeline:"+AnalyticsCacheKey(7, NoGeneration)))
}

func TestCacheServiceDisabledIsInert(t *testing.T) {
	var nilCache *CacheService
	_, gen, ok := nilCache.GetAnalytics(context.Background(), 7)
	assert.False(t, ok)
	assert.Equal(t, NoGeneration, gen)
	nilCache.StoreAnalytics(context.Background(), &dto.ProfileAnalytics{ProjectID: 7}, 0)
	nilCache.InvalidateProject(context.Background(), 7)
}
