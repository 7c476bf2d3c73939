package pnl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *ReportCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReportCache(client, time.Minute)
}

func cacheRequest() ReportRequest {
	return ReportRequest{Level: LevelSubsidiary, Key: "s1", Period: testPeriod()}
}

func TestReportCacheFetchPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.Key(ctx, cacheRequest())
	require.NoError(t, err)

	loads := 0
	loader := func(context.Context) (BuildResult, error) {
		loads++
		return BuildResult{Kept: true, Report: Report{Level: LevelSubsidiary, Key: "s1"}}, nil
	}

	first, err := cache.Fetch(ctx, key, loader)
	require.NoError(t, err)
	require.True(t, first.Kept)

	second, err := cache.Fetch(ctx, key, loader)
	require.NoError(t, err)
	require.Equal(t, first.Report.Key, second.Report.Key)
	require.Equal(t, 1, loads, "second fetch must hit the cache")
}

func TestReportCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.Key(ctx, cacheRequest())
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.Key(ctx, cacheRequest())
	require.NoError(t, err)
	require.NotEqual(t, before, after, "bump must change the versioned key")
}

func TestReportCacheLoaderErrorPropagates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.Key(ctx, cacheRequest())
	require.NoError(t, err)

	boom := errors.New("warehouse down")
	_, err = cache.Fetch(ctx, key, func(context.Context) (BuildResult, error) {
		return BuildResult{}, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestReportCacheNilDegradesToLoader(t *testing.T) {
	var cache *ReportCache
	ctx := context.Background()

	key, err := cache.Key(ctx, cacheRequest())
	require.NoError(t, err)
	require.NotEmpty(t, key)

	result, err := cache.Fetch(ctx, key, func(context.Context) (BuildResult, error) {
		return BuildResult{Kept: true}, nil
	})
	require.NoError(t, err)
	require.True(t, result.Kept)
}
