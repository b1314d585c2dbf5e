package addresses

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// CategoriseBySpentStatus partitions addrs with a single remote query.
// Both partitions keep input order.
func (e *Engine) CategoriseBySpentStatus(ctx context.Context, addrs []types.Address) (spent, unspent []types.Address, err error) {
	if len(addrs) == 0 {
		return nil, nil, nil
	}
	flags, err := e.gw.WereAddressesSpentFrom(ctx, addrs)
	if err != nil {
		return nil, nil, fmt.Errorf("spent status: %w", err)
	}
	if len(flags) != len(addrs) {
		return nil, nil, fmt.Errorf("spent status: got %d results for %d addresses", len(flags), len(addrs))
	}
	for i, a := range addrs {
		if flags[i] {
			spent = append(spent, a)
		} else {
			unspent = append(unspent, a)
		}
	}
	return spent, unspent, nil
}

// IsUsedSync reports whether addr is locally spent or appears in any of txs.
func IsUsedSync(addr types.Address, data StateMap, txs []Transaction) bool {
	if data[addr].Spent.Local {
		return true
	}
	for i := range txs {
		if txs[i].touches(addr) {
			return true
		}
	}
	return false
}

// FilterSpentSync drops addresses whose local spent flag is set.
func FilterSpentSync(addrs []types.Address, data StateMap) []types.Address {
	out := make([]types.Address, 0, len(addrs))
	for _, a := range addrs {
		if !data[a].Spent.Local {
			out = append(out, a)
		}
	}
	return out
}

// SpendStatusesFromObjects reports, per address, whether it signed any of
// objs. A negative value marks a spending input.
func SpendStatusesFromObjects(addrs []types.Address, objs []TransactionObject) []bool {
	spent := make(map[types.Address]bool)
	for _, o := range objs {
		if o.Value < 0 {
			spent[o.Address] = true
		}
	}
	return lookup(addrs, spent)
}

// SpendStatusesFromTransactions reports, per address, whether it occurs with
// a negative value in any of txs.
func SpendStatusesFromTransactions(addrs []types.Address, txs []Transaction) []bool {
	spent := make(map[types.Address]bool)
	for _, tx := range txs {
		for _, in := range tx.Inputs {
			if in.Value < 0 {
				spent[in.Address] = true
			}
		}
		for _, out := range tx.Outputs {
			if out.Value < 0 {
				spent[out.Address] = true
			}
		}
	}
	return lookup(addrs, spent)
}

func lookup(addrs []types.Address, set map[types.Address]bool) []bool {
	out := make([]bool, len(addrs))
	for i, a := range addrs {
		out[i] = set[a]
	}
	return out
}

// LatestAddress returns the frontier address of data.
func LatestAddress(data StateMap) (types.Address, error) {
	addr, _, err := data.Latest()
	return addr, err
}

// LatestAddressData returns the metadata of the frontier address.
func LatestAddressData(data StateMap) (Metadata, error) {
	_, meta, err := data.Latest()
	return meta, err
}
