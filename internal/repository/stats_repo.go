package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// GetStats returns aggregate statistics from all tables.
func (r *StatsRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM purchases) AS total_purchases,
			(SELECT COUNT(DISTINCT user_id) FROM purchases) AS total_buyers,
			(SELECT COUNT(*) FROM user_votes) AS total_votes,
			(SELECT COUNT(*) FROM vote_aggregates WHERE upvotes + downvotes > 0) AS voted_items,
			(SELECT COUNT(*) FROM trust_scores) AS scored_items,
			(SELECT COUNT(*) FROM purchases WHERE purchased_at > NOW() - INTERVAL '24 hours') AS purchases_24h`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalPurchases, &stats.TotalBuyers, &stats.TotalVotes,
		&stats.VotedItems, &stats.ScoredItems, &stats.Purchases24h,
	)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return &stats, nil
}
