package attendance

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StatsKeyPrefix prefixes the Redis key of the cached dashboard summary.
const StatsKeyPrefix = "attendance:stats:"

// statsFetchTimeout bounds one store refresh of the summary.
const statsFetchTimeout = 30 * time.Second

// StatsKey returns the cache key of the summary for a date.
func StatsKey(date string) string {
	return StatsKeyPrefix + date
}

type statsSource interface {
	Stats(ctx context.Context) (*database.Stats, error)
}

// StatsCache keeps the dashboard summary for a short TTL. With a Redis client
// the entry is shared between processes, otherwise it lives in memory.
// Concurrent misses are collapsed into a single store query.
type StatsCache struct {
	source statsSource
	rdb    *redis.Client
	ttl    time.Duration
	now    func() time.Time
	sf     singleflight.Group
	logger *zap.Logger

	mu      sync.Mutex
	cached  *database.Stats
	date    string
	expires time.Time
}

// NewStatsCache wraps source. rdb may be nil.
func NewStatsCache(source statsSource, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) *StatsCache {
	l := zap.L().Named("attendance.cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("attendance.cache")
	}
	return &StatsCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		now:    time.Now,
		logger: l,
	}
}

// Stats returns the cached summary, refreshing it from the store when stale.
func (c *StatsCache) Stats(ctx context.Context) (*database.Stats, error) {
	date := c.now().Format(database.DateLayout)
	key := StatsKey(date)

	if stats := c.lookup(ctx, key, date); stats != nil {
		return stats, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// Shared by every waiting caller, so it must outlive the caller that started it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsFetchTimeout)
		defer cancel()

		stats, err := c.source.Stats(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.store(fetchCtx, key, date, stats)
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*database.Stats), nil
}

// Invalidate drops the cached summary of today so the next read hits the store.
func (c *StatsCache) Invalidate(ctx context.Context) {
	date := c.now().Format(database.DateLayout)

	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Del(ctx, StatsKey(date)).Err(); err != nil {
			c.logger.Warn("stats cache invalidation failed", zap.Error(err))
		}
	}
}

func (c *StatsCache) lookup(ctx context.Context, key, date string) *database.Stats {
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				c.logger.Warn("stats cache read failed", zap.Error(err))
			}
			return nil
		}
		var stats database.Stats
		if json.Unmarshal([]byte(cached), &stats) != nil {
			return nil
		}
		return &stats
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.date == date && c.now().Before(c.expires) {
		return c.cached
	}
	return nil
}

func (c *StatsCache) store(ctx context.Context, key, date string, stats *database.Stats) {
	if c.rdb != nil {
		data, err := json.Marshal(stats)
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("stats cache write failed", zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = stats
	c.date = date
	c.expires = c.now().Add(c.ttl)
}
