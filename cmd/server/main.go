package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/auth"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/chain"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/config"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/db"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/handler"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/middleware"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/repository"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/router"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/service"
)

const version = "1.0.0"

// stores bundles the persistence backends the services depend on.
type stores struct {
	purchases service.PurchaseStore
	votes     service.VoteStore
	trust     service.TrustStore
	stats     service.StatsStore
	ping      handler.Pinger
}

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "modelmart-api", cfg.Environment)
	log := middleware.Logger

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st stores
	if cfg.UseMemoryStore() {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{purchases: mem, votes: mem, trust: mem, stats: mem}
		metrics.Register(nil)
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		st = stores{
			purchases: repository.NewPurchaseRepo(pool),
			votes:     repository.NewVoteRepo(pool),
			trust:     repository.NewTrustRepo(pool),
			stats:     repository.NewStatsRepo(pool),
			ping:      pool,
		}
		metrics.Register(pool)
	}

	cache := service.NewCacheService(cfg.RedisURL, log)
	defer cache.Close()

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainRPCTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to chain RPC")
	}
	defer chainClient.Close()

	verifier := auth.NewVerifier(cfg.FirebaseProjectID, auth.NewCertKeySource(cfg.FirebaseCertsURL))

	purchaseSvc := service.NewPurchaseService(st.purchases, chainClient, cfg.MarketplaceContract, log)
	voteSvc := service.NewVoteService(st.votes, cache, log)
	trustSvc := service.NewTrustService(st.trust, cache, log)
	statsSvc := service.NewStatsService(st.stats, 2*time.Minute)
	go service.NewStatsWorker(statsSvc, time.Minute, log).Start(ctx)

	// Shared limiter counts when Redis is up; per-instance otherwise.
	var window middleware.WindowStore
	if rdb := cache.Client(); rdb != nil {
		window = middleware.NewRedisWindow(rdb)
	} else {
		window = middleware.NewMemoryWindow(ctx, 5*time.Minute)
	}

	app := fiber.New(fiber.Config{
		AppName:      "ModelMart API",
		ServerHeader: "ModelMart",
		BodyLimit:    64 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	router.Setup(app, &router.Handlers{
		Purchase: handler.NewPurchaseHandler(purchaseSvc),
		Vote:     handler.NewVoteHandler(voteSvc),
		Trust:    handler.NewTrustHandler(trustSvc),
		Stats:    handler.NewStatsHandler(statsSvc),
		Health:   handler.NewHealthHandler(st.ping, handler.RedisPinger(cache.Client()), chainClient, version),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    verifier,
		Limits:      middleware.DefaultLimits(cfg.IPHashSalt),
		Window:      window,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("ModelMart API starting")
		errCh <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("server stopped")
			stop()
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	log.Info().Msg("ModelMart API stopped")
}
