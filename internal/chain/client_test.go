package chain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
)

const testHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

// cannedRPC answers each method with a fixed raw JSON result.
type cannedRPC struct {
	results map[string]string
	err     error
	block   bool
	calls   []string
}

func (c *cannedRPC) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	c.calls = append(c.calls, method)
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if c.err != nil {
		return c.err
	}
	raw, ok := c.results[method]
	if !ok {
		raw = "null"
	}
	return json.Unmarshal([]byte(raw), result)
}

func (c *cannedRPC) Close() {}

func TestReceiptDecodesStatusAndRecipient(t *testing.T) {
	rpc := &cannedRPC{results: map[string]string{
		"eth_getTransactionReceipt": `{
			"transactionHash": "` + testHash + `",
			"status": "0x1",
			"from": "0x00000000000000000000000000000000000000aa",
			"to": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			"blockNumber": "0x10"
		}`,
	}}
	c := newClient(rpc, time.Second)

	r, err := c.Receipt(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, uint64(r.Status))
	require.NotNil(t, r.To)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", r.To.Hex())
	assert.Equal(t, []string{"eth_getTransactionReceipt"}, rpc.calls)
}

func TestReceiptMissingIsPending(t *testing.T) {
	c := newClient(&cannedRPC{results: map[string]string{}}, time.Second)

	_, err := c.Receipt(context.Background(), testHash)
	assert.Equal(t, apperr.PendingTransaction, apperr.KindOf(err))
}

func TestTransactionValue(t *testing.T) {
	rpc := &cannedRPC{results: map[string]string{
		"eth_getTransactionByHash": `{
			"hash": "` + testHash + `",
			"from": "0x00000000000000000000000000000000000000aa",
			"to": "0x5fbdb2315678afecb367f032d93f642f64180aa3",
			"value": "0x6f05b59d3b20000"
		}`,
	}}
	c := newClient(rpc, time.Second)

	tx, err := c.Transaction(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", tx.ValueWei().String())
}

func TestTimeoutIsPending(t *testing.T) {
	c := newClient(&cannedRPC{block: true}, 10*time.Millisecond)

	_, err := c.Receipt(context.Background(), testHash)
	assert.Equal(t, apperr.PendingTransaction, apperr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransportErrorIsPending(t *testing.T) {
	c := newClient(&cannedRPC{err: errors.New("connection refused")}, time.Second)

	_, err := c.Transaction(context.Background(), testHash)
	assert.Equal(t, apperr.PendingTransaction, apperr.KindOf(err))
}
