// Package chain reads transaction receipts and transactions from an Ethereum
// JSON-RPC endpoint. It never submits transactions.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/metrics"
)

// Receipt statuses as reported by eth_getTransactionReceipt.
const (
	StatusFailed  uint64 = 0
	StatusSuccess uint64 = 1
)

// Receipt is the subset of a transaction receipt the ledger needs.
// go-ethereum's types.Receipt drops the "to" field, so we decode our own.
type Receipt struct {
	TxHash      common.Hash     `json:"transactionHash"`
	Status      hexutil.Uint64  `json:"status"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
}

// Transaction is the subset of eth_getTransactionByHash the ledger needs.
type Transaction struct {
	Hash  common.Hash     `json:"hash"`
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
}

// ValueWei returns the transferred amount in wei.
func (t *Transaction) ValueWei() *big.Int {
	if t.Value == nil {
		return new(big.Int)
	}
	return t.Value.ToInt()
}

// caller is the slice of *rpc.Client used here; tests substitute it.
type caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Client is a read-only chain reader with a per-call timeout.
type Client struct {
	rpc     caller
	timeout time.Duration
}

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	return &Client{rpc: c, timeout: timeout}, nil
}

func newClient(c caller, timeout time.Duration) *Client {
	return &Client{rpc: c, timeout: timeout}
}

// Receipt fetches the receipt for txHash. A missing receipt, a timeout or a
// transport failure all surface as apperr.PendingTransaction: the caller is
// expected to retry later.
func (c *Client) Receipt(ctx context.Context, txHash string) (*Receipt, error) {
	var r *Receipt
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", common.HexToHash(txHash)); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.E(apperr.PendingTransaction, "transaction receipt not found")
	}
	return r, nil
}

// Transaction fetches the transaction body for txHash.
func (c *Client) Transaction(ctx context.Context, txHash string) (*Transaction, error) {
	var tx *Transaction
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", common.HexToHash(txHash)); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, apperr.E(apperr.PendingTransaction, "transaction not found")
	}
	return tx, nil
}

// Ping checks the endpoint answers eth_chainId.
func (c *Client) Ping(ctx context.Context) error {
	var id hexutil.Big
	return c.call(ctx, &id, "eth_chainId")
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.ChainRPCDuration.WithLabelValues(method))
	err := c.rpc.CallContext(ctx, result, method, args...)
	timer.ObserveDuration()

	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.PendingTransaction, "chain rpc timed out", err)
	}
	return apperr.Wrap(apperr.PendingTransaction, "chain rpc unavailable", err)
}
