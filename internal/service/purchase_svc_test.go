package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/auth"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/chain"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/repository"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

var (
	alice = &auth.Identity{UserID: "alice", Email: "alice@example.com"}
	bob   = &auth.Identity{UserID: "bob"}
)

// fakeChain serves canned receipts and transactions and counts lookups.
type fakeChain struct {
	receipts map[string]*chain.Receipt
	txs      map[string]*chain.Transaction
	err      error
	calls    atomic.Int32
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		receipts: make(map[string]*chain.Receipt),
		txs:      make(map[string]*chain.Transaction),
	}
}

// pay registers a successful transfer of wei to `to`.
func (f *fakeChain) pay(txHash, to string, wei *big.Int) {
	key := strings.ToLower(txHash)
	addr := common.HexToAddress(to)
	f.receipts[key] = &chain.Receipt{
		TxHash: common.HexToHash(txHash),
		Status: hexutil.Uint64(chain.StatusSuccess),
		To:     &addr,
	}
	f.txs[key] = &chain.Transaction{
		Hash:  common.HexToHash(txHash),
		To:    &addr,
		Value: (*hexutil.Big)(new(big.Int).Set(wei)),
	}
}

func (f *fakeChain) Receipt(_ context.Context, txHash string) (*chain.Receipt, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.receipts[strings.ToLower(txHash)]
	if !ok {
		return nil, apperr.E(apperr.PendingTransaction, "transaction not yet confirmed")
	}
	return r, nil
}

func (f *fakeChain) Transaction(_ context.Context, txHash string) (*chain.Transaction, error) {
	f.calls.Add(1)
	t, ok := f.txs[strings.ToLower(txHash)]
	if !ok {
		return nil, apperr.E(apperr.PendingTransaction, "transaction not yet confirmed")
	}
	return t, nil
}

func eth(s string) *big.Int {
	w, err := PriceToWei(s)
	if err != nil {
		panic(err)
	}
	return w
}

func txHash(c byte) string {
	return "0x" + strings.Repeat(string(c), 64)
}

func purchaseReq(tx string, itemID int64, price string) model.PurchaseRequest {
	return model.PurchaseRequest{
		TxHash:    tx,
		ItemID:    itemID,
		ContentID: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		ItemName:  "llama-3-8b.gguf",
		ItemPrice: price,
	}
}

func newPurchaseFixture() (*PurchaseService, *repository.MemoryStore, *fakeChain) {
	store := repository.NewMemoryStore()
	fc := newFakeChain()
	return NewPurchaseService(store, fc, testContract, zerolog.Nop()), store, fc
}

func TestVerifyAndRecordHappyPathThenReplay(t *testing.T) {
	svc, store, fc := newPurchaseFixture()
	ctx := context.Background()
	tx := txHash('a')
	fc.pay(tx, testContract, eth("1"))

	first, err := svc.VerifyAndRecord(ctx, alice, purchaseReq(tx, 7, "1"))
	require.NoError(t, err)
	assert.False(t, first.AlreadyPurchased)
	assert.Equal(t, "alice", first.Purchase.UserID)
	assert.Equal(t, int64(7), first.Purchase.ItemID)
	assert.Equal(t, tx, first.Purchase.TxHash)

	second, err := svc.VerifyAndRecord(ctx, alice, purchaseReq(tx, 7, "1"))
	require.NoError(t, err)
	assert.True(t, second.AlreadyPurchased)
	assert.Equal(t, first.Purchase.ID, second.Purchase.ID)
	assert.Equal(t, 1, store.PurchaseCount())
}

func TestVerifyAndRecordSameTxOtherUser(t *testing.T) {
	svc, store, fc := newPurchaseFixture()
	ctx := context.Background()
	tx := txHash('b')
	fc.pay(tx, testContract, eth("1"))

	_, err := svc.VerifyAndRecord(ctx, alice, purchaseReq(tx, 7, "1"))
	require.NoError(t, err)

	_, err = svc.VerifyAndRecord(ctx, bob, purchaseReq(tx, 7, "1"))
	assert.Equal(t, apperr.DuplicateTransaction, apperr.KindOf(err))
	assert.Equal(t, 1, store.PurchaseCount())
}

func TestVerifyAndRecordUpperCaseHashIsSameTx(t *testing.T) {
	svc, store, fc := newPurchaseFixture()
	ctx := context.Background()
	tx := txHash('c')
	fc.pay(tx, testContract, eth("1"))

	_, err := svc.VerifyAndRecord(ctx, alice, purchaseReq(strings.ToUpper(tx[:2])+strings.ToUpper(tx[2:]), 7, "1"))
	require.Error(t, err) // "0X" prefix is not a valid hash

	_, err = svc.VerifyAndRecord(ctx, alice, purchaseReq("0x"+strings.ToUpper(tx[2:]), 7, "1"))
	require.NoError(t, err)
	res, err := svc.VerifyAndRecord(ctx, alice, purchaseReq(tx, 7, "1"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyPurchased)
	assert.Equal(t, 1, store.PurchaseCount())
}

func TestVerifyAndRecordPriceTolerance(t *testing.T) {
	tests := []struct {
		name    string
		paid    *big.Int
		wantErr apperr.Kind
	}{
		{"exact", eth("1"), ""},
		{"one percent under", eth("0.99"), ""},
		{"one percent over", eth("1.01"), ""},
		{"just under tolerance", eth("0.989"), apperr.PriceMismatch},
		{"just over tolerance", eth("1.011"), apperr.PriceMismatch},
		{"zero", big.NewInt(0), apperr.PriceMismatch},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, fc := newPurchaseFixture()
			tx := txHash("0123456789"[i])
			fc.pay(tx, testContract, tt.paid)

			_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(tx, 1, "1"))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, store.PurchaseCount())
				return
			}
			assert.Equal(t, tt.wantErr, apperr.KindOf(err))
			assert.Equal(t, 0, store.PurchaseCount())
		})
	}
}

func TestVerifyAndRecordRejectsBadInputWithoutRPC(t *testing.T) {
	tests := []struct {
		name string
		req  model.PurchaseRequest
	}{
		{"63 hex chars", purchaseReq("0x"+strings.Repeat("a", 63), 1, "1")},
		{"no prefix", purchaseReq(strings.Repeat("a", 66), 1, "1")},
		{"negative item", purchaseReq(txHash('a'), -1, "1")},
		{"short content id", func() model.PurchaseRequest {
			r := purchaseReq(txHash('a'), 1, "1")
			r.ContentID = "bafy"
			return r
		}()},
		{"empty name", func() model.PurchaseRequest {
			r := purchaseReq(txHash('a'), 1, "1")
			r.ItemName = "  "
			return r
		}()},
		{"negative price", purchaseReq(txHash('a'), 1, "-1")},
		{"exponent price", purchaseReq(txHash('a'), 1, "1e18")},
		{"bad wallet", func() model.PurchaseRequest {
			r := purchaseReq(txHash('a'), 1, "1")
			r.WalletAddress = "0x1234"
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, fc := newPurchaseFixture()
			_, err := svc.VerifyAndRecord(context.Background(), alice, tt.req)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
			assert.Equal(t, int32(0), fc.calls.Load())
			assert.Equal(t, 0, store.PurchaseCount())
		})
	}
}

func TestVerifyAndRecordChainOutcomes(t *testing.T) {
	t.Run("receipt missing", func(t *testing.T) {
		svc, store, _ := newPurchaseFixture()
		_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(txHash('d'), 1, "1"))
		assert.Equal(t, apperr.PendingTransaction, apperr.KindOf(err))
		assert.Equal(t, 0, store.PurchaseCount())
	})

	t.Run("reverted", func(t *testing.T) {
		svc, store, fc := newPurchaseFixture()
		tx := txHash('e')
		fc.pay(tx, testContract, eth("1"))
		fc.receipts[tx].Status = hexutil.Uint64(chain.StatusFailed)

		_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(tx, 1, "1"))
		assert.Equal(t, apperr.TransactionFailed, apperr.KindOf(err))
		assert.Equal(t, 0, store.PurchaseCount())
	})

	t.Run("wrong contract", func(t *testing.T) {
		svc, store, fc := newPurchaseFixture()
		tx := txHash('f')
		fc.pay(tx, "0x000000000000000000000000000000000000dEaD", eth("1"))

		_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(tx, 1, "1"))
		assert.Equal(t, apperr.WrongContract, apperr.KindOf(err))
		assert.Equal(t, 0, store.PurchaseCount())
	})

	t.Run("contract creation", func(t *testing.T) {
		svc, _, fc := newPurchaseFixture()
		tx := txHash('9')
		fc.pay(tx, testContract, eth("1"))
		fc.receipts[tx].To = nil

		_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(tx, 1, "1"))
		assert.Equal(t, apperr.WrongContract, apperr.KindOf(err))
	})

	t.Run("rpc down", func(t *testing.T) {
		svc, _, fc := newPurchaseFixture()
		fc.err = apperr.Wrap(apperr.PendingTransaction, "chain unavailable", errors.New("connection refused"))

		_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(txHash('8'), 1, "1"))
		assert.Equal(t, apperr.PendingTransaction, apperr.KindOf(err))
	})
}

func TestVerifyAndRecordStoreFailure(t *testing.T) {
	svc, store, fc := newPurchaseFixture()
	tx := txHash('7')
	fc.pay(tx, testContract, eth("1"))
	store.WithError(errors.New("connection reset"))

	_, err := svc.VerifyAndRecord(context.Background(), alice, purchaseReq(tx, 1, "1"))
	assert.Equal(t, apperr.StoreUnavailable, apperr.KindOf(err))
}

func TestVerifyAndRecordRequiresIdentity(t *testing.T) {
	svc, _, fc := newPurchaseFixture()
	_, err := svc.VerifyAndRecord(context.Background(), nil, purchaseReq(txHash('a'), 1, "1"))
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
	assert.Equal(t, int32(0), fc.calls.Load())
}

func TestGetAndListPurchases(t *testing.T) {
	svc, _, fc := newPurchaseFixture()
	ctx := context.Background()

	list, err := svc.ListPurchases(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.GetPurchase(ctx, "alice", 1)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	fc.pay(txHash('1'), testContract, eth("0.5"))
	fc.pay(txHash('2'), testContract, eth("2"))
	_, err = svc.VerifyAndRecord(ctx, alice, purchaseReq(txHash('1'), 1, "0.5"))
	require.NoError(t, err)
	_, err = svc.VerifyAndRecord(ctx, alice, purchaseReq(txHash('2'), 2, "2"))
	require.NoError(t, err)

	list, err = svc.ListPurchases(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.GetPurchase(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, txHash('2'), got.TxHash)

	_, err = svc.GetPurchase(ctx, "bob", 2)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
