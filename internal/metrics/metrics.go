// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Collectors exist from package init so code paths can record before (or
// without) Register being called, as in tests.
var (
	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmart_purchase_verifications_total",
			Help: "Purchase verification attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmart_votes_total",
			Help: "Votes cast, by vote type and resulting action.",
		},
		[]string{"vote_type", "action"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelmart_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelmart_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modelmart_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modelmart_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	ChainRPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelmart_chain_rpc_duration_seconds",
			Help:    "Duration of chain JSON-RPC calls, by method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmart_rate_limited_total",
			Help: "Requests refused by the rate limiter, by limiter name.",
		},
		[]string{"limiter"},
	)
)

// Register registers all collectors with the default registry. Call once at startup.
func Register(pool *pgxpool.Pool) {
	// DB pool gauges read live stats from pgxpool
	if pool != nil {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "modelmart_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 {
					return float64(pool.Stat().AcquiredConns())
				},
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "modelmart_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 {
					return float64(pool.Stat().IdleConns())
				},
			),
		)
	}

	prometheus.MustRegister(
		PurchasesTotal,
		VotesTotal,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
		ChainRPCDuration,
		RateLimited,
	)
}

// Middleware records request duration and in-flight count.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(): Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := SanitizeEndpoint(path)

		RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		RequestsInFlight.Dec()

		return err
	}
}

// SanitizeEndpoint replaces numeric path segments with :itemId to keep
// label cardinality bounded.
func SanitizeEndpoint(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":itemId"
		}
	}
	return strings.Join(parts, "/")
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
