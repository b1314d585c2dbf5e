package addresses

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// RemoteSpent lifts plain remote spent flags into Spent values.
func RemoteSpent(flags []bool) []Spent {
	out := make([]Spent, len(flags))
	for i, f := range flags {
		out[i] = Spent{Remote: f}
	}
	return out
}

// Format assembles parallel address, balance and spent slices into a state
// map. keyIndexes may be nil, in which case each address takes its position
// as index. Any length disagreement fails with
// ErrAddressMetadataLengthMismatch.
func Format(addrs []types.Address, balances []uint64, spent []Spent, keyIndexes []uint64) (StateMap, error) {
	n := len(addrs)
	if len(balances) != n || len(spent) != n || (keyIndexes != nil && len(keyIndexes) != n) {
		return nil, fmt.Errorf("%w: %d addresses, %d balances, %d spent statuses, %d indexes",
			ErrAddressMetadataLengthMismatch, n, len(balances), len(spent), len(keyIndexes))
	}

	out := make(StateMap, n)
	for i, addr := range addrs {
		index := uint64(i)
		if keyIndexes != nil {
			index = keyIndexes[i]
		}
		out[addr] = Metadata{
			Index:    index,
			Checksum: crypto.Checksum(addr),
			Balance:  balances[i],
			Spent:    spent[i],
		}
	}
	return out, nil
}

// AccumulateBalance sums balances.
func AccumulateBalance(balances []uint64) uint64 {
	var total uint64
	for _, b := range balances {
		total += b
	}
	return total
}

// BalancesSync returns the stored balance of each address in order.
// Unknown addresses report zero.
func BalancesSync(addrs []types.Address, data StateMap) []uint64 {
	out := make([]uint64, len(addrs))
	for i, a := range addrs {
		out[i] = data[a].Balance
	}
	return out
}
