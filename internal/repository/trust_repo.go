package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

type TrustRepo struct {
	pool *pgxpool.Pool
}

func NewTrustRepo(pool *pgxpool.Pool) *TrustRepo {
	return &TrustRepo{pool: pool}
}

// GetTrustScore returns the stored score for an item, or nil.
func (r *TrustRepo) GetTrustScore(ctx context.Context, itemID int64) (*model.TrustScore, error) {
	var ts model.TrustScore
	err := r.pool.QueryRow(ctx, `
		SELECT item_id, total_score, clean_scan, popular_format, integrity_verified, content_hash, computed_at
		FROM trust_scores WHERE item_id = $1`, itemID,
	).Scan(&ts.ItemID, &ts.TotalScore, &ts.Breakdown.CleanScan, &ts.Breakdown.PopularFormat,
		&ts.Breakdown.IntegrityVerified, &ts.ContentHash, &ts.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store(err)
	}
	return &ts, nil
}

// InsertTrustScore stores ts if the item has no score yet and returns the
// stored record; the first writer wins.
func (r *TrustRepo) InsertTrustScore(ctx context.Context, ts *model.TrustScore) (*model.TrustScore, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trust_scores (item_id, total_score, clean_scan, popular_format, integrity_verified, content_hash, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (item_id) DO NOTHING`,
		ts.ItemID, ts.TotalScore, ts.Breakdown.CleanScan, ts.Breakdown.PopularFormat,
		ts.Breakdown.IntegrityVerified, ts.ContentHash, ts.ComputedAt)
	if err != nil {
		return nil, apperr.Store(err)
	}

	stored, err := r.GetTrustScore(ctx, ts.ItemID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperr.Store(errors.New("trust score missing after insert"))
	}
	return stored, nil
}
