package addresses

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// History is the result of a full discovery scan. Addresses, Balances and
// WereSpent are parallel and end one past the last used address. Hashes is
// not cut at that boundary: it holds every transaction hash found on the
// batches that had history, including hashes of addresses trimmed away.
type History struct {
	Addresses []types.Address
	Hashes    []types.Hash
	Balances  []uint64
	WereSpent []bool
}

// StateMap formats the history with positional indices.
func (h *History) StateMap() (StateMap, error) {
	return Format(h.Addresses, h.Balances, RemoteSpent(h.WereSpent), nil)
}

// FullHistory scans the address sequence from index 0 in batches until a
// batch without any transaction history is found, then trims the result so
// that exactly one unused address follows the last used one.
func (e *Engine) FullHistory(ctx context.Context, seed []byte) (*History, error) {
	var (
		hist  History
		index uint64
	)
	for {
		batch, err := e.gen.Addresses(ctx, seed, index, e.batchSize)
		if err != nil {
			return nil, fmt.Errorf("derive batch at %d: %w", index, err)
		}
		obs, err := e.observe(ctx, batch)
		if err != nil {
			return nil, err
		}

		e.logger.Debug().
			Uint64("index", index).
			Int("hashes", len(obs.hashes)).
			Msg("Scanned address batch")

		if len(obs.hashes) == 0 {
			return e.closeHistory(ctx, &hist, batch, obs)
		}

		hist.Addresses = append(hist.Addresses, batch...)
		hist.Balances = append(hist.Balances, obs.balances...)
		hist.WereSpent = append(hist.WereSpent, obs.spent...)
		hist.Hashes = append(hist.Hashes, obs.hashes...)
		index += uint64(len(batch))
	}
}

// closeHistory trims the accumulated history against the first unused batch.
func (e *Engine) closeHistory(ctx context.Context, hist *History, unused []types.Address, obs *observation) (*History, error) {
	if len(hist.Addresses) == 0 {
		return &History{
			Addresses: unused[:1],
			Balances:  obs.balances[:1],
			WereSpent: obs.spent[:1],
		}, nil
	}

	kept, err := e.RemoveUnused(ctx, len(hist.Addresses)-1, unused[0], hist.Addresses)
	if err != nil {
		return nil, err
	}

	out := &History{Hashes: hist.Hashes}
	if len(kept) > len(hist.Addresses) {
		out.Addresses = kept
		out.Balances = append(hist.Balances, obs.balances[0])
		out.WereSpent = append(hist.WereSpent, obs.spent[0])
	} else {
		out.Addresses = kept
		out.Balances = hist.Balances[:len(kept)]
		out.WereSpent = hist.WereSpent[:len(kept)]
	}

	e.logger.Debug().
		Int("addresses", len(out.Addresses)).
		Int("hashes", len(out.Hashes)).
		Msg("Full history discovered")
	return out, nil
}

// RemoveUnused walks addrs backward from lastKnownIndex and truncates the
// list after the first address with ledger activity, keeping one unused
// address behind it: the next address in the list, or latestUnused when the
// used address is the last one checked. If no address shows activity only
// the lowest-index address is returned.
func (e *Engine) RemoveUnused(ctx context.Context, lastKnownIndex int, latestUnused types.Address, addrs []types.Address) ([]types.Address, error) {
	if len(addrs) == 0 {
		if latestUnused.IsZero() {
			return nil, nil
		}
		return []types.Address{latestUnused}, nil
	}
	if lastKnownIndex >= len(addrs) {
		lastKnownIndex = len(addrs) - 1
	}

	for i := lastKnownIndex; i >= 0; i-- {
		obs, err := e.observe(ctx, addrs[i:i+1])
		if err != nil {
			return nil, err
		}
		if !obs.usedAt(0) {
			continue
		}

		out := make([]types.Address, 0, i+2)
		out = append(out, addrs[:i+1]...)
		switch {
		case i+1 < len(addrs):
			out = append(out, addrs[i+1])
		case !latestUnused.IsZero():
			out = append(out, latestUnused)
		}
		return out, nil
	}
	return addrs[:1], nil
}

// Sync brings data up to date with the ledger. If the frontier is not spent
// remotely data is returned as is. Otherwise addresses after the frontier
// are derived one at a time and merged until one is remotely unspent, has no
// transaction history and is not blacklisted; that address becomes the new
// frontier. On error nothing is returned.
func (e *Engine) Sync(ctx context.Context, seed []byte, data StateMap, blacklist Blacklist) (StateMap, error) {
	frontier, meta, err := data.Latest()
	if err != nil {
		return nil, err
	}

	flags, err := e.gw.WereAddressesSpentFrom(ctx, []types.Address{frontier})
	if err != nil {
		return nil, fmt.Errorf("frontier spent status: %w", err)
	}
	if len(flags) != 1 {
		return nil, fmt.Errorf("frontier spent status: got %d results", len(flags))
	}
	if !flags[0] {
		return data, nil
	}

	out := data.Clone()
	for index := meta.Index + 1; ; index++ {
		addr, obs, err := e.next(ctx, seed, index, out)
		if err != nil {
			return nil, err
		}
		if !obs.spent[0] && len(obs.hashes) == 0 && !blacklist.Has(addr) {
			e.logger.Debug().
				Uint64("index", index).
				Str("frontier", addr.Short()).
				Msg("Resynced addresses")
			return out, nil
		}
	}
}

// UptoRemainder picks a remainder address. The frontier is returned with data
// untouched unless it is blacklisted; in that case fresh addresses are
// derived and merged until one is not blacklisted and shows no activity
// either on the ledger or in txs.
//
// A candidate holding only a balance, with no hashes and no spend, counts as
// used and is skipped. Sending change to it would merge a pruned deposit
// with new funds on one key; the older wallet behaviour accepted such an
// address because it only looked at hashes and spends.
func (e *Engine) UptoRemainder(ctx context.Context, data StateMap, txs []Transaction, seed []byte, blacklist Blacklist) (types.Address, StateMap, error) {
	frontier, meta, err := data.Latest()
	if err != nil {
		return "", nil, err
	}
	if !blacklist.Has(frontier) {
		return frontier, data, nil
	}

	out := data.Clone()
	for index := meta.Index + 1; ; index++ {
		addr, obs, err := e.next(ctx, seed, index, out)
		if err != nil {
			return "", nil, err
		}
		if blacklist.Has(addr) || obs.usedAt(0) || IsUsedSync(addr, out, txs) {
			e.logger.Debug().
				Uint64("index", index).
				Str("address", addr.Short()).
				Msg("Skipped remainder candidate")
			continue
		}
		return addr, out, nil
	}
}
