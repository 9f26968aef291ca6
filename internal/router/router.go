package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/handler"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Purchase *handler.PurchaseHandler
	Vote     *handler.VoteHandler
	Trust    *handler.TrustHandler
	Stats    *handler.StatsHandler
	Health   *handler.HealthHandler
}

// Options carries the cross-cutting pieces routes are protected with.
type Options struct {
	CORSOrigins string
	Verifier    middleware.TokenVerifier
	Limits      middleware.Limits
	Window      middleware.WindowStore
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(metrics.Middleware())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics (no auth, no limits)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", metrics.Handler())

	limit := func(cfg middleware.RateLimitConfig) fiber.Handler {
		return middleware.NewRateLimiter(cfg, opts.Window).Handler()
	}
	// Limits run before auth so refused requests cost no verification.
	authed := middleware.RequireAuth(opts.Verifier)

	api := app.Group("/api")

	// Purchase routes
	api.Post("/purchases/verify", limit(opts.Limits.PurchaseVerify), authed, h.Purchase.Verify)
	readLimit := limit(opts.Limits.PurchaseRead)
	api.Get("/purchases", readLimit, authed, h.Purchase.List)
	api.Get("/purchases/:itemId", readLimit, authed, h.Purchase.Get)

	// Vote routes
	voteRead := limit(opts.Limits.VoteRead)
	api.Get("/items/:itemId/votes", voteRead, h.Vote.Aggregate)
	api.Get("/items/:itemId/votes/me", voteRead, authed, h.Vote.Mine)
	api.Post("/items/:itemId/votes", limit(opts.Limits.VoteSubmit), authed, h.Vote.Cast)

	// Trust routes
	api.Get("/items/:itemId/trust", limit(opts.Limits.Trust), h.Trust.Get)

	// Stats routes
	api.Get("/stats", limit(opts.Limits.Stats), h.Stats.GetStats)
}
