// Package addresses discovers an account's used addresses on the ledger,
// reconciles their spent status and selects safe inputs and remainders.
package addresses

import (
	"context"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// Spent holds the two independent spent signals for an address.
type Spent struct {
	Local  bool `json:"local"`  // signed as an input in local history
	Remote bool `json:"remote"` // reported spent by the ledger
}

// Any reports whether either source marks the address spent.
func (s Spent) Any() bool {
	return s.Local || s.Remote
}

// Metadata describes one derived address of an account.
type Metadata struct {
	Index    uint64         `json:"index"`
	Checksum types.Checksum `json:"checksum"`
	Balance  uint64         `json:"balance"`
	Spent    Spent          `json:"spent"`
}

// StateMap maps every known address of an account to its metadata.
// Indices are unique and the highest index is the frontier.
type StateMap map[types.Address]Metadata

// Clone returns a shallow copy of m.
func (m StateMap) Clone() StateMap {
	out := make(StateMap, len(m))
	for addr, meta := range m {
		out[addr] = meta
	}
	return out
}

// Merge adds the entries of other that m does not already hold.
// Existing entries are never overwritten.
func (m StateMap) Merge(other StateMap) {
	for addr, meta := range other {
		if _, ok := m[addr]; ok {
			continue
		}
		m[addr] = meta
	}
}

// Latest returns the frontier: the address with the maximum index.
// A tie on the maximum index is an invariant violation and is reported as
// ErrIndexConflict rather than resolved arbitrarily.
func (m StateMap) Latest() (types.Address, Metadata, error) {
	if len(m) == 0 {
		return "", Metadata{}, ErrEmptyAddressData
	}

	var (
		latest types.Address
		meta   Metadata
		found  bool
		ties   int
	)
	for addr, md := range m {
		switch {
		case !found || md.Index > meta.Index:
			latest, meta, found, ties = addr, md, true, 0
		case md.Index == meta.Index:
			ties++
		}
	}
	if ties > 0 {
		return "", Metadata{}, fmt.Errorf("%w: index %d", ErrIndexConflict, meta.Index)
	}
	return latest, meta, nil
}

// Sorted returns the addresses of m ordered by index.
func (m StateMap) Sorted() []types.Address {
	out := make([]types.Address, 0, len(m))
	for addr := range m {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return m[out[i]].Index < m[out[j]].Index
	})
	return out
}

// Balance returns the sum of all address balances.
func (m StateMap) Balance() uint64 {
	var total uint64
	for _, meta := range m {
		total += meta.Balance
	}
	return total
}

// Blacklist is a set of addresses that must never be picked as a remainder.
type Blacklist map[types.Address]struct{}

// NewBlacklist builds a blacklist from addrs.
func NewBlacklist(addrs ...types.Address) Blacklist {
	b := make(Blacklist, len(addrs))
	for _, a := range addrs {
		b[a] = struct{}{}
	}
	return b
}

// Has reports whether addr is blacklisted. A nil blacklist holds nothing.
func (b Blacklist) Has(addr types.Address) bool {
	_, ok := b[addr]
	return ok
}

// Add inserts addrs into the blacklist.
func (b Blacklist) Add(addrs ...types.Address) {
	for _, a := range addrs {
		b[a] = struct{}{}
	}
}

// Entry is one input or output of a normalised transaction.
// Inputs carry a value <= 0, outputs a value >= 0.
type Entry struct {
	Address types.Address `json:"address"`
	Value   int64         `json:"value"`
}

// Transaction is a normalised bundle record from local history.
type Transaction struct {
	Bundle        types.Hash `json:"bundle"`
	Inputs        []Entry    `json:"inputs"`
	Outputs       []Entry    `json:"outputs"`
	TransferValue int64      `json:"transfer_value"`
	Incoming      bool       `json:"incoming"`
	Persistence   bool       `json:"persistence"` // confirmed by the ledger
}

// touches reports whether addr appears as an input or output of tx.
func (tx *Transaction) touches(addr types.Address) bool {
	return tx.hasInput(addr) || tx.hasOutput(addr)
}

func (tx *Transaction) hasInput(addr types.Address) bool {
	for _, in := range tx.Inputs {
		if in.Address == addr {
			return true
		}
	}
	return false
}

func (tx *Transaction) hasOutput(addr types.Address) bool {
	for _, out := range tx.Outputs {
		if out.Address == addr {
			return true
		}
	}
	return false
}

// PendingTransactions returns the transactions not yet confirmed.
func PendingTransactions(txs []Transaction) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if !tx.Persistence {
			out = append(out, tx)
		}
	}
	return out
}

// TransactionObject is a raw ledger transaction.
type TransactionObject struct {
	Hash    types.Hash    `json:"hash"`
	Address types.Address `json:"address"`
	Value   int64         `json:"value"`
	Bundle  types.Hash    `json:"bundle"`
}

// Input is an address prepared for spending.
type Input struct {
	Address  types.Address `json:"address"`
	Balance  uint64        `json:"balance"`
	KeyIndex uint64        `json:"key_index"`
	Security int           `json:"security"`
}

// Transfer is an outgoing value transfer handed to the sender.
type Transfer struct {
	Address types.Address `json:"address"`
	Value   uint64        `json:"value"`
	Tag     string        `json:"tag,omitempty"`
}

// PowFunc computes a proof-of-work nonce for a bundle payload. A nil PowFunc
// asks the node to do the work.
type PowFunc func(ctx context.Context, payload []byte) (uint64, error)

// Gateway is the ledger query surface the engine depends on. Every method is
// order-preserving over addrs except FindTransactionHashes, which returns the
// flat set of hashes touching any of them.
type Gateway interface {
	FindTransactionHashes(ctx context.Context, addrs []types.Address) ([]types.Hash, error)
	WereAddressesSpentFrom(ctx context.Context, addrs []types.Address) ([]bool, error)
	GetBalances(ctx context.Context, addrs []types.Address) ([]uint64, error)
}

// Generator derives consecutive account addresses from a seed.
type Generator interface {
	Addresses(ctx context.Context, seed []byte, index uint64, count int) ([]types.Address, error)
}

// Sender builds, signs and broadcasts a bundle.
type Sender interface {
	SendTransfer(ctx context.Context, seed []byte, transfers []Transfer, inputs []Input, remainder types.Address, pow PowFunc) ([]TransactionObject, error)
}
