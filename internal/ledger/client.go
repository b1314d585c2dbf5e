// Package ledger implements the address engine's ledger gateway over node
// JSON-RPC, with node switching delegated to a Policy.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-addrsync/internal/addresses"
	"github.com/Klingon-tech/klingnet-addrsync/internal/log"
	"github.com/Klingon-tech/klingnet-addrsync/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// Ledger client errors.
var (
	ErrNoNodeToRetry  = errors.New("no node to retry on")
	ErrSignerRequired = errors.New("value transfers require a signer")
)

// Client talks to ledger nodes. It satisfies addresses.Gateway and
// addresses.Sender for zero-value transfers.
type Client struct {
	policy  Policy
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	clients map[string]*rpcclient.Client
}

// New creates a ledger client. timeout bounds each HTTP round trip.
func New(policy Policy, timeout time.Duration) *Client {
	return &Client{
		policy:  policy,
		timeout: timeout,
		logger:  log.Ledger,
		clients: make(map[string]*rpcclient.Client),
	}
}

func (c *Client) rpc(node string) *rpcclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[node]
	if !ok {
		cl = rpcclient.NewWithTimeout(node, c.timeout)
		c.clients[node] = cl
	}
	return cl
}

// call runs method on the node chosen by the policy. Application errors are
// returned at once; transport errors move on to the next node.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		node, ok := c.policy.Pick(attempt)
		if !ok {
			return fmt.Errorf("%s: %w: %w", method, ErrNoNodeToRetry, lastErr)
		}

		err := c.rpc(node).CallContext(ctx, method, params, result)
		if err == nil {
			c.policy.Report(node, nil)
			return nil
		}

		var rpcErr *rpcclient.RPCError
		if errors.As(err, &rpcErr) {
			c.policy.Report(node, nil)
			return fmt.Errorf("%s: %w", method, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", method, ctxErr)
		}

		c.policy.Report(node, err)
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Str("node", node).
			Int("attempt", attempt).
			Msg("Node request failed, switching node")
		lastErr = err
	}
}

type addressesParams struct {
	Addresses []types.Address `json:"addresses"`
}

// FindTransactionHashes implements addresses.Gateway.
func (c *Client) FindTransactionHashes(ctx context.Context, addrs []types.Address) ([]types.Hash, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	var res struct {
		Hashes []types.Hash `json:"hashes"`
	}
	if err := c.call(ctx, "findTransactions", addressesParams{addrs}, &res); err != nil {
		return nil, err
	}
	return res.Hashes, nil
}

// WereAddressesSpentFrom implements addresses.Gateway.
func (c *Client) WereAddressesSpentFrom(ctx context.Context, addrs []types.Address) ([]bool, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	var res struct {
		States []bool `json:"states"`
	}
	if err := c.call(ctx, "wereAddressesSpentFrom", addressesParams{addrs}, &res); err != nil {
		return nil, err
	}
	if len(res.States) != len(addrs) {
		return nil, fmt.Errorf("wereAddressesSpentFrom: got %d states for %d addresses", len(res.States), len(addrs))
	}
	return res.States, nil
}

// GetBalances implements addresses.Gateway.
func (c *Client) GetBalances(ctx context.Context, addrs []types.Address) ([]uint64, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	var res struct {
		Balances []uint64 `json:"balances"`
	}
	if err := c.call(ctx, "getBalances", addressesParams{addrs}, &res); err != nil {
		return nil, err
	}
	if len(res.Balances) != len(addrs) {
		return nil, fmt.Errorf("getBalances: got %d balances for %d addresses", len(res.Balances), len(addrs))
	}
	return res.Balances, nil
}

type sendParams struct {
	Transfers []addresses.Transfer `json:"transfers"`
	Remainder types.Address        `json:"remainder,omitempty"`
	RemotePow bool                 `json:"remotePow"`
	Nonce     uint64               `json:"nonce,omitempty"`
}

// SendTransfer implements addresses.Sender. Only zero-value transfers are
// accepted since they need no signature; anything that moves value fails
// with ErrSignerRequired. The seed never leaves the process.
func (c *Client) SendTransfer(ctx context.Context, _ []byte, transfers []addresses.Transfer, inputs []addresses.Input, remainder types.Address, pow addresses.PowFunc) ([]addresses.TransactionObject, error) {
	if len(transfers) == 0 {
		return nil, errors.New("no transfers")
	}
	if len(inputs) > 0 {
		return nil, ErrSignerRequired
	}
	for _, t := range transfers {
		if t.Value != 0 {
			return nil, ErrSignerRequired
		}
	}

	params := sendParams{
		Transfers: transfers,
		Remainder: remainder,
		RemotePow: pow == nil,
	}
	if pow != nil {
		payload, err := json.Marshal(transfers)
		if err != nil {
			return nil, fmt.Errorf("marshal transfers: %w", err)
		}
		nonce, err := pow(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("proof of work: %w", err)
		}
		params.Nonce = nonce
	}

	var res struct {
		Transactions []addresses.TransactionObject `json:"transactions"`
	}
	if err := c.call(ctx, "sendTransfers", params, &res); err != nil {
		return nil, err
	}
	c.logger.Info().
		Int("transfers", len(transfers)).
		Int("transactions", len(res.Transactions)).
		Msg("Bundle sent")
	return res.Transactions, nil
}
