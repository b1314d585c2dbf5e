package addresses

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-addrsync/internal/log"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// DefaultBatchSize is the number of addresses generated per discovery round.
const DefaultBatchSize = 10

// Engine runs discovery, reconciliation and selection against a ledger.
// It holds no account state; callers serialize operations per account.
type Engine struct {
	gw        Gateway
	gen       Generator
	sender    Sender
	batchSize int
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize overrides the discovery batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithSender sets the bundle sender used by AttachAndFormat.
func WithSender(s Sender) Option {
	return func(e *Engine) { e.sender = s }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given gateway and address generator.
func NewEngine(gw Gateway, gen Generator, opts ...Option) *Engine {
	e := &Engine{
		gw:        gw,
		gen:       gen,
		batchSize: DefaultBatchSize,
		logger:    log.Sync,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchSize returns the discovery batch size.
func (e *Engine) BatchSize() int {
	return e.batchSize
}

// observation is the ledger view of a group of addresses.
type observation struct {
	hashes   []types.Hash
	balances []uint64
	spent    []bool
}

// usedAt reports whether the address at i shows any activity. Balance counts
// because snapshots prune transaction hashes but keep balances.
func (o *observation) usedAt(i int) bool {
	return len(o.hashes) > 0 || o.spent[i] || o.balances[i] > 0
}

// observe issues the three ledger queries for addrs concurrently.
func (e *Engine) observe(ctx context.Context, addrs []types.Address) (*observation, error) {
	var obs observation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hashes, err := e.gw.FindTransactionHashes(gctx, addrs)
		if err != nil {
			return fmt.Errorf("find transactions: %w", err)
		}
		obs.hashes = hashes
		return nil
	})
	g.Go(func() error {
		balances, err := e.gw.GetBalances(gctx, addrs)
		if err != nil {
			return fmt.Errorf("get balances: %w", err)
		}
		if len(balances) != len(addrs) {
			return fmt.Errorf("get balances: got %d results for %d addresses", len(balances), len(addrs))
		}
		obs.balances = balances
		return nil
	})
	g.Go(func() error {
		spent, err := e.gw.WereAddressesSpentFrom(gctx, addrs)
		if err != nil {
			return fmt.Errorf("spent status: %w", err)
		}
		if len(spent) != len(addrs) {
			return fmt.Errorf("spent status: got %d results for %d addresses", len(spent), len(addrs))
		}
		obs.spent = spent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &obs, nil
}

// next derives the address at index, observes it and merges it into data.
func (e *Engine) next(ctx context.Context, seed []byte, index uint64, data StateMap) (types.Address, *observation, error) {
	addrs, err := e.gen.Addresses(ctx, seed, index, 1)
	if err != nil {
		return "", nil, fmt.Errorf("derive address %d: %w", index, err)
	}
	if len(addrs) != 1 {
		return "", nil, fmt.Errorf("derive address %d: got %d addresses", index, len(addrs))
	}
	obs, err := e.observe(ctx, addrs)
	if err != nil {
		return "", nil, err
	}
	entry, err := Format(addrs, obs.balances, RemoteSpent(obs.spent), []uint64{index})
	if err != nil {
		return "", nil, err
	}
	data.Merge(entry)
	return addrs[0], obs, nil
}
