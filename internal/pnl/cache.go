package pnl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "pnl:version"

// ReportCache is a versioned Redis cache for assembled reports. A nil cache
// or nil client degrades to calling the loader directly, so callers never
// branch on cache availability.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache wraps the Redis client.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Key composes a cache key for the report request, including the current
// cache version so a bump invalidates everything at once.
func (c *ReportCache) Key(ctx context.Context, req ReportRequest) (string, error) {
	parts := []string{"pnl", "report", string(req.Level), req.Key, req.Period.Format("2006-01"), fmt.Sprintf("m%d", req.Mode)}
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, ":"), ver), nil
}

func (c *ReportCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Fetch loads a cached build result or populates it via the loader.
func (c *ReportCache) Fetch(ctx context.Context, key string, loader func(context.Context) (BuildResult, error)) (BuildResult, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached BuildResult
		if unmarshalErr := json.Unmarshal(payload, &cached); unmarshalErr == nil {
			return cached, nil
		}
		// Corrupt entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return BuildResult{}, err
	}
	result, err := loader(ctx)
	if err != nil {
		return BuildResult{}, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return BuildResult{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return BuildResult{}, err
	}
	return result, nil
}

// Bump invalidates all cached reports by incrementing the global version.
func (c *ReportCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
