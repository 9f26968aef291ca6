package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

const (
	AggregateCacheTTL = 5 * time.Minute
	// Trust scores are never recomputed, so the Redis copy only needs to
	// expire to bound memory.
	TrustCacheTTL = 24 * time.Hour
)

// CacheService is a Redis cache-aside layer in front of the store. With a nil
// client every operation is a no-op and reads always miss.
type CacheService struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewCacheService creates a CacheService. If redisURL is empty or the
// connection fails, caching is disabled rather than failing startup.
func NewCacheService(redisURL string, logger zerolog.Logger) *CacheService {
	logger = logger.With().Str("component", "cache").Logger()
	if redisURL == "" {
		logger.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{logger: logger}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{logger: logger}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{logger: logger}
	}

	logger.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb, logger: logger}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client, logger zerolog.Logger) *CacheService {
	return &CacheService{rdb: rdb, logger: logger}
}

// Client returns the underlying Redis client (for health checks and the
// shared rate limiter). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetAggregate returns the cached tally for itemID, or nil on a miss.
func (c *CacheService) GetAggregate(ctx context.Context, itemID int64) *model.VoteAggregate {
	var agg model.VoteAggregate
	if !c.get(ctx, aggregateKey(itemID), &agg) {
		return nil
	}
	return &agg
}

func (c *CacheService) SetAggregate(ctx context.Context, agg model.VoteAggregate) {
	c.set(ctx, aggregateKey(agg.ItemID), agg, AggregateCacheTTL)
}

// InvalidateAggregate removes a tally from cache (called after vote changes).
func (c *CacheService) InvalidateAggregate(ctx context.Context, itemID int64) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, aggregateKey(itemID)).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("item_id", itemID).Msg("cache: invalidate aggregate failed")
	}
}

// GetTrust returns the cached trust score for itemID, or nil on a miss.
func (c *CacheService) GetTrust(ctx context.Context, itemID int64) *model.TrustScore {
	var ts model.TrustScore
	if !c.get(ctx, trustKey(itemID), &ts) {
		return nil
	}
	return &ts
}

func (c *CacheService) SetTrust(ctx context.Context, ts *model.TrustScore) {
	c.set(ctx, trustKey(ts.ItemID), ts, TrustCacheTTL)
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) get(ctx context.Context, key string, dst interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache: get failed")
		}
		metrics.CacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: corrupt entry")
		metrics.CacheMisses.Inc()
		return false
	}
	metrics.CacheHits.Inc()
	return true
}

func (c *CacheService) set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: set failed")
	}
}

func aggregateKey(itemID int64) string {
	return fmt.Sprintf("votes:%d", itemID)
}

func trustKey(itemID int64) string {
	return fmt.Sprintf("trust:%d", itemID)
}
