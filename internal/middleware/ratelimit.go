package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/pkg/hash"
)

// RateLimitConfig defines the limit for a specific route or group.
type RateLimitConfig struct {
	Name   string                   // Label for metrics and key namespacing
	Max    int                      // Maximum requests allowed in any window
	Window time.Duration            // Length of the sliding window
	KeyFn  func(c fiber.Ctx) string // Returns the key to rate limit on
}

// Decision is the outcome of one hit against a window.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// WindowStore counts hits in a sliding window. Implementations: MemoryWindow
// (single instance) and RedisWindow (shared across instances).
type WindowStore interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// RateLimiter enforces one RateLimitConfig against a WindowStore.
type RateLimiter struct {
	config RateLimitConfig
	store  WindowStore
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig, store WindowStore) *RateLimiter {
	return &RateLimiter{config: cfg, store: store, now: time.Now}
}

// Handler returns a Fiber middleware handler that enforces the rate limit.
// A store error lets the request through.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		key := rl.config.Name + ":" + rl.config.KeyFn(c)

		d, err := rl.store.Hit(c.Context(), key, rl.config.Max, rl.config.Window, rl.now())
		if err != nil {
			Logger.Warn().Err(err).Str("limiter", rl.config.Name).Msg("ratelimit: store unavailable, allowing request")
			return c.Next()
		}

		setRateLimitHeaders(c, rl.config.Max, d.Remaining, d.ResetAt)

		if !d.Allowed {
			metrics.RateLimited.WithLabelValues(rl.config.Name).Inc()
			retryAfter := max(int(d.ResetAt.Sub(rl.now()).Seconds())+1, 1)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				},
			})
		}

		return c.Next()
	}
}

// Allow reports whether a request with the given key is allowed now.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	d, err := rl.store.Hit(ctx, rl.config.Name+":"+key, rl.config.Max, rl.config.Window, rl.now())
	return err != nil || d.Allowed
}

func setRateLimitHeaders(c fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// MemoryWindow is an in-process sliding-window log.
type MemoryWindow struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryWindow creates an empty window store. Stale keys are pruned
// every sweepEvery until ctx is cancelled.
func NewMemoryWindow(ctx context.Context, sweepEvery time.Duration) *MemoryWindow {
	m := &MemoryWindow{hits: make(map[string][]time.Time)}
	if sweepEvery > 0 {
		go m.cleanup(ctx, sweepEvery)
	}
	return m
}

func (m *MemoryWindow) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := prune(m.hits[key], now.Add(-window))
	if len(live) >= limit {
		m.hits[key] = live
		return Decision{Allowed: false, Remaining: 0, ResetAt: live[0].Add(window)}, nil
	}

	live = append(live, now)
	m.hits[key] = live
	return Decision{Allowed: true, Remaining: limit - len(live), ResetAt: live[0].Add(window)}, nil
}

// prune drops timestamps at or before cutoff. Timestamps are appended in order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func (m *MemoryWindow) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now(), every)
		case <-ctx.Done():
			return
		}
	}
}

// sweep removes keys whose newest hit is older than maxAge.
func (m *MemoryWindow) sweep(now time.Time, maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ts := range m.hits {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) > maxAge {
			delete(m.hits, key)
		}
	}
}

// KeyByHashedIP keys on a salted hash of the client IP so raw addresses are
// never held in limiter state.
func KeyByHashedIP(salt string) func(c fiber.Ctx) string {
	return func(c fiber.Ctx) string {
		return "ip:" + hash.HashIP(c.IP(), salt)
	}
}

// --- Pre-configured limits matching the API contract ---

// Limits names every route group's limit. All are per IP per minute.
type Limits struct {
	PurchaseVerify RateLimitConfig
	PurchaseRead   RateLimitConfig
	VoteRead       RateLimitConfig
	VoteSubmit     RateLimitConfig
	Trust          RateLimitConfig
	Stats          RateLimitConfig
}

// DefaultLimits returns the production limits keyed by hashed IP.
func DefaultLimits(salt string) Limits {
	key := KeyByHashedIP(salt)
	perMinute := func(name string, n int) RateLimitConfig {
		return RateLimitConfig{Name: name, Max: n, Window: time.Minute, KeyFn: key}
	}
	return Limits{
		PurchaseVerify: perMinute("purchase_verify", 10),
		PurchaseRead:   perMinute("purchase_read", 60),
		VoteRead:       perMinute("vote_read", 100),
		VoteSubmit:     perMinute("vote_submit", 20),
		Trust:          perMinute("trust", 100),
		Stats:          perMinute("stats", 10),
	}
}
