package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dsamentor/internal/metrics"
	"dsamentor/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisSnapshotKey = "catalog:snapshot"

// Cache holds the full catalog snapshot and refreshes it from the source
// when older than the TTL. Refresh is all-or-nothing: readers never observe
// a half-updated snapshot. A failed refresh yields an empty snapshot plus a
// logged fault; callers must treat empty as "try later".
type Cache struct {
	source Source
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time

	redis *redis.Client

	mu        sync.Mutex
	snapshot  []model.QuestionRecord
	fetchedAt time.Time
}

// NewCache wraps source with a TTL snapshot cache.
func NewCache(source Source, ttl time.Duration, logger *zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// UseRedis enables write-through snapshot caching in Redis, warming the
// in-memory cache across restarts.
func (c *Cache) UseRedis(client *redis.Client) {
	c.redis = client
}

// GetAll returns the current snapshot, refreshing it synchronously when the
// TTL has expired. The returned slice must not be mutated by callers.
func (c *Cache) GetAll(ctx context.Context) []model.QuestionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot
	}

	if snap, ok := c.readRedis(ctx); ok {
		c.snapshot = snap
		c.fetchedAt = c.now()
		return c.snapshot
	}

	records, err := c.source.FetchAll(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("catalog refresh failed")
		metrics.IncCatalogRefresh("error")
		records = nil
	} else {
		metrics.IncCatalogRefresh("ok")
	}
	c.snapshot = records
	c.fetchedAt = c.now()
	c.writeRedis(ctx, records)
	return c.snapshot
}

func (c *Cache) readRedis(ctx context.Context) ([]model.QuestionRecord, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, redisSnapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("catalog redis read failed")
		}
		return nil, false
	}
	var snap []model.QuestionRecord
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn().Err(err).Msg("catalog redis snapshot corrupt")
		return nil, false
	}
	if len(snap) == 0 {
		return nil, false
	}
	return snap, true
}

func (c *Cache) writeRedis(ctx context.Context, snap []model.QuestionRecord) {
	if c.redis == nil || len(snap) == 0 {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisSnapshotKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("catalog redis write failed")
	}
}
