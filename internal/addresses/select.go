package addresses

import (
	"context"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// DefaultSecurity is the security level used when inputs are built without one.
const DefaultSecurity = 2

// PickUnspent returns the entries of data that are safe to spend from: not
// spent locally, not an input of any of txs and not spent remotely.
func (e *Engine) PickUnspent(ctx context.Context, data StateMap, txs []Transaction) (StateMap, error) {
	var candidates []types.Address
	for _, addr := range data.Sorted() {
		if data[addr].Spent.Local || isInput(addr, txs) {
			continue
		}
		candidates = append(candidates, addr)
	}

	out := make(StateMap, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}

	_, unspent, err := e.CategoriseBySpentStatus(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for _, addr := range unspent {
		out[addr] = data[addr]
	}
	return out, nil
}

func isInput(addr types.Address, txs []Transaction) bool {
	for i := range txs {
		if txs[i].hasInput(addr) {
			return true
		}
	}
	return false
}

// OmitWithIncomingTransactions drops entries tied to pending transactions:
// inputs and change outputs of outgoing ones and the receiving outputs of
// incoming ones. Confirmed transactions are ignored.
func OmitWithIncomingTransactions(data StateMap, pending []Transaction) StateMap {
	omit := make(map[types.Address]bool)
	for _, tx := range pending {
		if tx.Persistence {
			continue
		}
		if !tx.Incoming {
			for _, in := range tx.Inputs {
				omit[in.Address] = true
			}
		}
		for _, out := range tx.Outputs {
			omit[out.Address] = true
		}
	}
	return without(data, omit)
}

// FilterWithPendingOutgoing drops entries that appear as an input or output
// of any unconfirmed transaction in txs, whatever its direction.
func FilterWithPendingOutgoing(data StateMap, txs []Transaction) StateMap {
	omit := make(map[types.Address]bool)
	for _, tx := range PendingTransactions(txs) {
		for _, in := range tx.Inputs {
			omit[in.Address] = true
		}
		for _, out := range tx.Outputs {
			omit[out.Address] = true
		}
	}
	return without(data, omit)
}

func without(data StateMap, omit map[types.Address]bool) StateMap {
	out := make(StateMap, len(data))
	for addr, meta := range data {
		if !omit[addr] {
			out[addr] = meta
		}
	}
	return out
}

// CheckNoPending fails with ErrAddressHasPendingTransfers if any of addrs is
// touched by an unconfirmed transaction.
func CheckNoPending(addrs []types.Address, txs []Transaction) error {
	pending := PendingTransactions(txs)
	for _, a := range addrs {
		for i := range pending {
			if pending[i].touches(a) {
				return fmt.Errorf("%w: %s", ErrAddressHasPendingTransfers, a.Short())
			}
		}
	}
	return nil
}

// ToInputs turns every entry of data into an input, ordered by key index.
// A security of zero selects DefaultSecurity.
func ToInputs(data StateMap, security int) []Input {
	if security == 0 {
		security = DefaultSecurity
	}
	out := make([]Input, 0, len(data))
	for _, addr := range data.Sorted() {
		meta := data[addr]
		out = append(out, Input{
			Address:  addr,
			Balance:  meta.Balance,
			KeyIndex: meta.Index,
			Security: security,
		})
	}
	return out
}

// GuardKeyReuse fails with ErrKeyReuse if the ledger reports any input
// address as already spent from.
func (e *Engine) GuardKeyReuse(ctx context.Context, inputs []Input) error {
	addrs := make([]types.Address, len(inputs))
	for i, in := range inputs {
		addrs[i] = in.Address
	}
	spent, _, err := e.CategoriseBySpentStatus(ctx, addrs)
	if err != nil {
		return err
	}
	if len(spent) > 0 {
		return fmt.Errorf("%w: %s", ErrKeyReuse, spent[0].Short())
	}
	return nil
}

// AttachAndFormat attaches a fresh address to the ledger with a zero-value
// transfer. It fails with ErrAddressAlreadyAttached if the address already
// has history. data is never modified; the returned map holds only the new
// entry.
func (e *Engine) AttachAndFormat(ctx context.Context, addr types.Address, index, balance uint64, seed []byte, txs []Transaction, data StateMap, pow PowFunc) (StateMap, []TransactionObject, error) {
	if e.sender == nil {
		return nil, nil, ErrNoSender
	}

	addrs := []types.Address{addr}
	hashes, err := e.gw.FindTransactionHashes(ctx, addrs)
	if err != nil {
		return nil, nil, fmt.Errorf("find transactions: %w", err)
	}
	if len(hashes) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrAddressAlreadyAttached, addr.Short())
	}
	remote, err := e.gw.WereAddressesSpentFrom(ctx, addrs)
	if err != nil {
		return nil, nil, fmt.Errorf("spent status: %w", err)
	}
	if len(remote) != 1 {
		return nil, nil, fmt.Errorf("spent status: got %d results", len(remote))
	}

	entry := StateMap{addr: {
		Index:    index,
		Checksum: crypto.Checksum(addr),
		Balance:  balance,
		Spent: Spent{
			Local:  SpendStatusesFromTransactions(addrs, txs)[0] || data[addr].Spent.Local,
			Remote: remote[0],
		},
	}}

	transfers := []Transfer{{Address: addr, Value: 0}}
	objs, err := e.sender.SendTransfer(ctx, seed, transfers, nil, "", pow)
	if err != nil {
		return nil, nil, fmt.Errorf("attach address: %w", err)
	}

	e.logger.Debug().
		Uint64("index", index).
		Str("address", addr.Short()).
		Int("transactions", len(objs)).
		Msg("Attached address")
	return entry, objs, nil
}

// Selection is the result of input selection.
type Selection struct {
	Inputs    []Input // Selected inputs, ordered by key index.
	Total     uint64  // Sum of selected balances.
	Remainder uint64  // Total - threshold.
}

// SelectInputs picks inputs covering threshold. It compares the smallest
// single covering input with largest-first accumulation and keeps whichever
// leaves the smaller remainder.
func SelectInputs(inputs []Input, threshold uint64) (*Selection, error) {
	if threshold == 0 {
		return nil, ErrZeroThreshold
	}

	candidates := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if in.Balance > 0 {
			candidates = append(candidates, in)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Balance < candidates[j].Balance
	})

	// Smallest single input that covers the threshold.
	var single *Selection
	for _, in := range candidates {
		if in.Balance >= threshold {
			single = &Selection{
				Inputs:    []Input{in},
				Total:     in.Balance,
				Remainder: in.Balance - threshold,
			}
			break
		}
	}

	// Largest-first accumulation.
	var accum *Selection
	var selected []Input
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Balance
		if total >= threshold {
			accum = &Selection{
				Inputs:    selected,
				Total:     total,
				Remainder: total - threshold,
			}
			break
		}
	}

	var best *Selection
	switch {
	case single != nil && accum != nil:
		best = accum
		if single.Remainder <= accum.Remainder {
			best = single
		}
	case single != nil:
		best = single
	case accum != nil:
		best = accum
	default:
		var have uint64
		for _, in := range candidates {
			have += in.Balance
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, have, threshold)
	}

	sort.Slice(best.Inputs, func(i, j int) bool {
		return best.Inputs[i].KeyIndex < best.Inputs[j].KeyIndex
	})
	return best, nil
}
