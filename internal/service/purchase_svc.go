package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/auth"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/chain"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/validation"
)

// ChainReader is the read-only view of the chain the ledger verifies against.
type ChainReader interface {
	Receipt(ctx context.Context, txHash string) (*chain.Receipt, error)
	Transaction(ctx context.Context, txHash string) (*chain.Transaction, error)
}

// PurchaseStore persists purchase grants.
type PurchaseStore interface {
	// RecordPurchase inserts p unless a grant already covers it. It returns the
	// stored grant and whether this call created it. A txHash already used for
	// a different user or item is apperr.DuplicateTransaction. Uniqueness is
	// enforced by the store, so concurrent callers cannot both create.
	RecordPurchase(ctx context.Context, p *model.Purchase) (*model.Purchase, bool, error)
	FindPurchase(ctx context.Context, userID string, itemID int64) (*model.Purchase, error)
	ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error)
}

// PurchaseResult is the outcome of a successful verification.
type PurchaseResult struct {
	Purchase         *model.Purchase
	AlreadyPurchased bool
}

type PurchaseService struct {
	store    PurchaseStore
	chain    ChainReader
	contract string
	logger   zerolog.Logger
}

func NewPurchaseService(store PurchaseStore, chain ChainReader, contractAddress string, logger zerolog.Logger) *PurchaseService {
	return &PurchaseService{
		store:    store,
		chain:    chain,
		contract: strings.ToLower(contractAddress),
		logger:   logger.With().Str("component", "purchase").Logger(),
	}
}

// VerifyAndRecord proves that req.TxHash is a successful payment of the
// listed price to the marketplace contract, then records exactly one grant
// for (identity, item). Nothing is written unless every check passes.
func (s *PurchaseService) VerifyAndRecord(ctx context.Context, id *auth.Identity, req model.PurchaseRequest) (res *PurchaseResult, err error) {
	defer func() { metrics.PurchasesTotal.WithLabelValues(outcome(res, err)).Inc() }()

	if id == nil || id.UserID == "" {
		return nil, apperr.E(apperr.Unauthenticated, "identity required")
	}

	p, err := s.validate(id.UserID, req)
	if err != nil {
		return nil, err
	}

	if err = s.verifyOnChain(ctx, p); err != nil {
		return nil, err
	}

	stored, created, err := s.store.RecordPurchase(ctx, p)
	if err != nil {
		return nil, err
	}

	log := s.logger.Info().
		Str("user_id", stored.UserID).
		Int64("item_id", stored.ItemID).
		Str("tx_hash", stored.TxHash)
	if created {
		log.Msg("purchase recorded")
	} else {
		log.Msg("purchase already recorded")
	}
	return &PurchaseResult{Purchase: stored, AlreadyPurchased: !created}, nil
}

func outcome(res *PurchaseResult, err error) string {
	switch {
	case err != nil:
		return string(apperr.KindOf(err))
	case res.AlreadyPurchased:
		return "already_purchased"
	default:
		return "recorded"
	}
}

// validate runs every format check before any I/O; the first failure wins.
func (s *PurchaseService) validate(userID string, req model.PurchaseRequest) (*model.Purchase, error) {
	txHash, errMsg := validation.ValidateTxHash(req.TxHash)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	if req.ItemID < 0 {
		return nil, apperr.Invalid("itemId must be a non-negative integer")
	}
	contentID, errMsg := validation.ValidateContentID(req.ContentID)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	itemName, errMsg := validation.ValidateItemName(req.ItemName)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	price, errMsg := validation.ValidatePrice(req.ItemPrice)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}
	wallet, errMsg := validation.ValidateWalletAddress(req.WalletAddress)
	if errMsg != "" {
		return nil, apperr.Invalid(errMsg)
	}

	return &model.Purchase{
		UserID:        userID,
		ItemID:        req.ItemID,
		ContentID:     contentID,
		ItemName:      itemName,
		ItemPrice:     price,
		TxHash:        txHash,
		WalletAddress: wallet,
	}, nil
}

func (s *PurchaseService) verifyOnChain(ctx context.Context, p *model.Purchase) error {
	receipt, err := s.chain.Receipt(ctx, p.TxHash)
	if err != nil {
		s.logger.Warn().Err(err).Str("tx_hash", p.TxHash).Msg("receipt lookup failed")
		return err
	}
	if uint64(receipt.Status) != chain.StatusSuccess {
		return apperr.E(apperr.TransactionFailed, "transaction reverted on chain")
	}
	if receipt.To == nil || !strings.EqualFold(receipt.To.Hex(), s.contract) {
		s.logger.Warn().Str("tx_hash", p.TxHash).Msg("transaction sent to a different contract")
		return apperr.E(apperr.WrongContract, "transaction was not sent to the marketplace contract")
	}

	tx, err := s.chain.Transaction(ctx, p.TxHash)
	if err != nil {
		s.logger.Warn().Err(err).Str("tx_hash", p.TxHash).Msg("transaction lookup failed")
		return err
	}

	expected, err := PriceToWei(p.ItemPrice)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, "itemPrice is not a valid amount", err)
	}
	paid := tx.ValueWei()
	if !WithinTolerance(paid, expected) {
		s.logger.Warn().
			Str("tx_hash", p.TxHash).
			Str("paid_eth", FormatWei(paid)).
			Str("expected_eth", p.ItemPrice).
			Msg("payment amount outside tolerance")
		return apperr.E(apperr.PriceMismatch, "paid amount does not match the item price")
	}
	return nil
}

// GetPurchase returns the caller's grant for itemID.
func (s *PurchaseService) GetPurchase(ctx context.Context, userID string, itemID int64) (*model.Purchase, error) {
	p, err := s.store.FindPurchase(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.E(apperr.NotFound, "purchase not found")
	}
	return p, nil
}

// ListPurchases returns the caller's grants, newest first.
func (s *PurchaseService) ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error) {
	purchases, err := s.store.ListPurchases(ctx, userID)
	if err != nil {
		return nil, err
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	return purchases, nil
}
