package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

const purchaseColumns = `id::text, user_id, item_id, content_id, item_name, item_price, tx_hash,
	COALESCE(wallet_address, ''), purchased_at`

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// RecordPurchase inserts the grant, letting the tx_hash and (user_id,
// item_id) unique constraints arbitrate concurrent submissions. When the
// insert is skipped by a conflict the stored row decides the outcome.
func (r *PurchaseRepo) RecordPurchase(ctx context.Context, p *model.Purchase) (*model.Purchase, bool, error) {
	rec := *p
	rec.ID = uuid.NewString()

	var wallet *string
	if rec.WalletAddress != "" {
		wallet = &rec.WalletAddress
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO purchases (id, user_id, item_id, content_id, item_name, item_price, tx_hash, wallet_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING purchased_at`,
		rec.ID, rec.UserID, rec.ItemID, rec.ContentID, rec.ItemName, rec.ItemPrice, rec.TxHash, wallet,
	).Scan(&rec.PurchasedAt)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, apperr.Store(err)
	}

	existing, err := r.findByTxHash(ctx, rec.TxHash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.UserID != rec.UserID || existing.ItemID != rec.ItemID {
			return nil, false, apperr.E(apperr.DuplicateTransaction, "transaction already used for another purchase")
		}
		return existing, false, nil
	}

	existing, err = r.FindPurchase(ctx, rec.UserID, rec.ItemID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Rows are never deleted, so a conflict without a matching row means
		// the store is inconsistent.
		return nil, false, apperr.Store(errors.New("purchase conflict without a conflicting row"))
	}
	return existing, false, nil
}

// FindPurchase returns the grant for (userID, itemID), or nil.
func (r *PurchaseRepo) FindPurchase(ctx context.Context, userID string, itemID int64) (*model.Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	return scanPurchase(row)
}

// ListPurchases returns a user's grants, newest first.
func (r *PurchaseRepo) ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchases
		WHERE user_id = $1
		ORDER BY purchased_at DESC`, userID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	defer rows.Close()

	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(err)
	}
	return out, nil
}

func (r *PurchaseRepo) findByTxHash(ctx context.Context, txHash string) (*model.Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE tx_hash = $1`, txHash)
	return scanPurchase(row)
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var p model.Purchase
	err := row.Scan(&p.ID, &p.UserID, &p.ItemID, &p.ContentID, &p.ItemName, &p.ItemPrice,
		&p.TxHash, &p.WalletAddress, &p.PurchasedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store(err)
	}
	return &p, nil
}
