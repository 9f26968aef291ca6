package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

// StatsStore reports marketplace-wide counts.
type StatsStore interface {
	GetStats(ctx context.Context) (*model.StatsResponse, error)
}

// StatsService serves platform statistics from a snapshot no older than
// maxAge, querying the store when the snapshot is stale.
type StatsService struct {
	store  StatsStore
	maxAge time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	latest  *model.StatsResponse
	takenAt time.Time
}

func NewStatsService(store StatsStore, maxAge time.Duration) *StatsService {
	return &StatsService{store: store, maxAge: maxAge, now: time.Now}
}

// GetStats returns aggregate platform statistics.
func (s *StatsService) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	s.mu.RLock()
	latest, takenAt := s.latest, s.takenAt
	s.mu.RUnlock()

	if latest != nil && s.now().Sub(takenAt) < s.maxAge {
		cp := *latest
		return &cp, nil
	}
	return s.Refresh(ctx)
}

// Refresh queries the store and replaces the snapshot.
func (s *StatsService) Refresh(ctx context.Context) (*model.StatsResponse, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.latest, s.takenAt = stats, s.now()
	s.mu.Unlock()
	cp := *stats
	return &cp, nil
}

// StatsWorker is a periodic background job that keeps the stats snapshot
// warm so request paths rarely touch the store.
type StatsWorker struct {
	svc      *StatsService
	interval time.Duration
	logger   zerolog.Logger
}

// NewStatsWorker creates a worker that ticks every interval.
func NewStatsWorker(svc *StatsService, interval time.Duration, logger zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "stats-worker").Logger(),
	}
}

// Start runs one tick immediately, then every interval until ctx is done.
func (w *StatsWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.logger.Info().Msg("stopping (context cancelled)")
			return
		}
	}
}

func (w *StatsWorker) tick(ctx context.Context) {
	start := time.Now()
	stats, err := w.svc.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("refresh failed")
		}
		return
	}
	w.logger.Debug().
		Int("total_purchases", stats.TotalPurchases).
		Int("total_votes", stats.TotalVotes).
		Dur("elapsed", time.Since(start)).
		Msg("tick complete")
}
