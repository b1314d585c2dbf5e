package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-addrsync/internal/addresses"
	"github.com/Klingon-tech/klingnet-addrsync/internal/log"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// ErrAccountExists is returned by Setup for an account that is already set up.
var ErrAccountExists = errors.New("account already exists")

// EngineFunc returns the address engine for a security level.
type EngineFunc func(security int) (*addresses.Engine, error)

// Manager runs address operations on stored accounts. Operations on the
// same account are serialized; different accounts proceed in parallel.
type Manager struct {
	store     *Store
	newEngine EngineFunc

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	engines map[int]*addresses.Engine
}

// NewManager creates a manager over store.
func NewManager(store *Store, newEngine EngineFunc) *Manager {
	return &Manager{
		store:     store,
		newEngine: newEngine,
		locks:     make(map[string]*sync.Mutex),
		engines:   make(map[int]*addresses.Engine),
	}
}

// lock acquires the operation lock of an account and returns its release.
func (m *Manager) lock(wallet, name string) func() {
	key := wallet + "/" + name
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Manager) engine(security int) (*addresses.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[security]; ok {
		return e, nil
	}
	e, err := m.newEngine(security)
	if err != nil {
		return nil, err
	}
	m.engines[security] = e
	return e, nil
}

// Setup discovers the full address history of a new account and stores it.
func (m *Manager) Setup(ctx context.Context, wallet, name string, seed []byte, security int) (*State, error) {
	defer m.lock(wallet, name)()
	logger := log.WithAccount(wallet, name)

	exists, err := m.store.Exists(wallet, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrAccountExists, wallet, name)
	}

	e, err := m.engine(security)
	if err != nil {
		return nil, err
	}
	hist, err := e.FullHistory(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("discover addresses: %w", err)
	}
	data, err := hist.StateMap()
	if err != nil {
		return nil, err
	}

	st := &State{
		Wallet:    wallet,
		Name:      name,
		Security:  security,
		Addresses: data,
		UpdatedAt: time.Now().UTC(),
	}
	if err := m.store.Save(st); err != nil {
		return nil, err
	}

	logger.Info().
		Int("addresses", len(data)).
		Int("hashes", len(hist.Hashes)).
		Uint64("balance", st.Balance()).
		Msg("Account set up")
	return st.Clone(), nil
}

// Sync extends the stored address map past a spent frontier and refreshes
// local spent flags from transaction history.
func (m *Manager) Sync(ctx context.Context, wallet, name string, seed []byte) (*State, error) {
	defer m.lock(wallet, name)()

	st, e, err := m.load(wallet, name)
	if err != nil {
		return nil, err
	}

	data, err := e.Sync(ctx, seed, st.Addresses, addresses.NewBlacklist(st.Blacklist...))
	if err != nil {
		return nil, fmt.Errorf("sync addresses: %w", err)
	}
	before := len(st.Addresses)
	st.Addresses = data
	applyLocalSpent(st)
	st.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(st); err != nil {
		return nil, err
	}

	logger := log.WithAccount(wallet, name)
	logger.Info().
		Int("new", len(data)-before).
		Int("addresses", len(data)).
		Msg("Account synced")
	return st.Clone(), nil
}

// Remainder returns a fresh remainder address. The address map is synced
// with the ledger first so that a frontier spent from elsewhere is never
// handed out. Besides the stored blacklist and extra, addresses touched by
// pending transactions or known to be spent are never returned.
func (m *Manager) Remainder(ctx context.Context, wallet, name string, seed []byte, extra ...types.Address) (types.Address, error) {
	defer m.lock(wallet, name)()

	st, e, err := m.load(wallet, name)
	if err != nil {
		return "", err
	}

	blacklist := addresses.NewBlacklist(st.Blacklist...)
	blacklist.Add(extra...)
	synced, err := e.Sync(ctx, seed, st.Addresses, blacklist)
	if err != nil {
		return "", fmt.Errorf("sync addresses: %w", err)
	}

	pending := addresses.PendingTransactions(st.Transactions)
	for _, addr := range synced.Sorted() {
		if synced[addr].Spent.Any() || addresses.IsUsedSync(addr, synced, pending) {
			blacklist.Add(addr)
		}
	}

	remainder, data, err := e.UptoRemainder(ctx, synced, st.Transactions, seed, blacklist)
	if err != nil {
		return "", fmt.Errorf("resolve remainder: %w", err)
	}
	if err := addresses.CheckNoPending([]types.Address{remainder}, st.Transactions); err != nil {
		return "", err
	}

	if len(data) != len(st.Addresses) {
		st.Addresses = data
		st.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(st); err != nil {
			return "", err
		}
	}

	logger := log.WithAccount(wallet, name)
	logger.Debug().
		Str("remainder", remainder.Short()).
		Msg("Remainder resolved")
	return remainder, nil
}

// Inputs selects spendable inputs. A zero threshold returns every safe
// input; otherwise inputs covering threshold are chosen.
func (m *Manager) Inputs(ctx context.Context, wallet, name string, threshold uint64) (*addresses.Selection, error) {
	defer m.lock(wallet, name)()

	st, e, err := m.load(wallet, name)
	if err != nil {
		return nil, err
	}

	pending := addresses.PendingTransactions(st.Transactions)
	data := addresses.FilterWithPendingOutgoing(st.Addresses, st.Transactions)
	data = addresses.OmitWithIncomingTransactions(data, pending)
	data, err = e.PickUnspent(ctx, data, st.Transactions)
	if err != nil {
		return nil, fmt.Errorf("pick unspent: %w", err)
	}
	inputs := addresses.ToInputs(data, st.Security)

	var sel *addresses.Selection
	if threshold == 0 {
		sel = &addresses.Selection{Inputs: inputs}
		for _, in := range inputs {
			sel.Total += in.Balance
		}
	} else {
		sel, err = addresses.SelectInputs(inputs, threshold)
		if err != nil {
			return nil, err
		}
	}

	if err := e.GuardKeyReuse(ctx, sel.Inputs); err != nil {
		return nil, err
	}
	return sel, nil
}

// Trim drops trailing addresses without history, keeping exactly one unused
// address after the last used one. Addresses referenced by local history are
// always kept. It returns the number of addresses removed.
func (m *Manager) Trim(ctx context.Context, wallet, name string) (int, error) {
	defer m.lock(wallet, name)()

	st, e, err := m.load(wallet, name)
	if err != nil {
		return 0, err
	}
	sorted := st.Addresses.Sorted()
	if len(sorted) <= 1 {
		return 0, nil
	}

	kept, err := e.RemoveUnused(ctx, len(sorted)-1, "", sorted)
	if err != nil {
		return 0, fmt.Errorf("trim addresses: %w", err)
	}

	keep := len(kept)
	for i := len(sorted) - 1; i >= keep; i-- {
		if addresses.IsUsedSync(sorted[i], st.Addresses, st.Transactions) {
			keep = i + 2
			break
		}
	}
	if keep > len(sorted) {
		keep = len(sorted)
	}

	removed := len(sorted) - keep
	if removed == 0 {
		return 0, nil
	}
	data := make(addresses.StateMap, keep)
	for _, addr := range sorted[:keep] {
		data[addr] = st.Addresses[addr]
	}
	st.Addresses = data
	st.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(st); err != nil {
		return 0, err
	}

	logger := log.WithAccount(wallet, name)
	logger.Info().
		Int("removed", removed).
		Int("addresses", keep).
		Msg("Trimmed unused addresses")
	return removed, nil
}

// Receive attaches a fresh address to the ledger so it can be handed out
// for deposits, and records the attachment as a pending transaction.
// Addresses found already attached are blacklisted and skipped.
func (m *Manager) Receive(ctx context.Context, wallet, name string, seed []byte, pow addresses.PowFunc) (types.Address, error) {
	defer m.lock(wallet, name)()

	st, e, err := m.load(wallet, name)
	if err != nil {
		return "", err
	}

	blacklist := addresses.NewBlacklist(st.Blacklist...)
	data, err := e.Sync(ctx, seed, st.Addresses, blacklist)
	if err != nil {
		return "", fmt.Errorf("sync addresses: %w", err)
	}
	for _, addr := range data.Sorted() {
		if addresses.IsUsedSync(addr, data, st.Transactions) {
			blacklist.Add(addr)
		}
	}

	for {
		addr, next, err := e.UptoRemainder(ctx, data, st.Transactions, seed, blacklist)
		if err != nil {
			return "", fmt.Errorf("resolve address: %w", err)
		}
		data = next
		md := data[addr]

		_, objs, err := e.AttachAndFormat(ctx, addr, md.Index, md.Balance, seed, st.Transactions, data, pow)
		if errors.Is(err, addresses.ErrAddressAlreadyAttached) {
			blacklist.Add(addr)
			continue
		}
		if err != nil {
			return "", err
		}

		tx := addresses.Transaction{Outputs: []addresses.Entry{{Address: addr}}}
		if len(objs) > 0 {
			tx.Bundle = objs[0].Bundle
		}
		st.Addresses = data
		st.Transactions = append(st.Transactions, tx)
		st.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(st); err != nil {
			return "", err
		}

		logger := log.WithAccount(wallet, name)
		logger.Info().
			Str("address", addr.Short()).
			Uint64("index", md.Index).
			Msg("Receive address attached")
		return addr, nil
	}
}

// RecordTransaction adds tx to the account history, replacing any record of
// the same bundle, and marks its signing inputs locally spent.
func (m *Manager) RecordTransaction(wallet, name string, tx addresses.Transaction) error {
	defer m.lock(wallet, name)()

	st, _, err := m.load(wallet, name)
	if err != nil {
		return err
	}

	replaced := false
	if !tx.Bundle.IsZero() {
		for i := range st.Transactions {
			if st.Transactions[i].Bundle == tx.Bundle {
				st.Transactions[i] = tx
				replaced = true
				break
			}
		}
	}
	if !replaced {
		st.Transactions = append(st.Transactions, tx)
	}
	applyLocalSpent(st)
	st.UpdatedAt = time.Now().UTC()
	return m.store.Save(st)
}

// AddToBlacklist reserves addrs so they are never used as a remainder.
func (m *Manager) AddToBlacklist(wallet, name string, addrs ...types.Address) error {
	defer m.lock(wallet, name)()

	st, _, err := m.load(wallet, name)
	if err != nil {
		return err
	}
	known := addresses.NewBlacklist(st.Blacklist...)
	for _, a := range addrs {
		if !known.Has(a) {
			st.Blacklist = append(st.Blacklist, a)
			known.Add(a)
		}
	}
	return m.store.Save(st)
}

// Show returns a snapshot of the account. It waits for any running
// operation on the account to finish.
func (m *Manager) Show(wallet, name string) (*State, error) {
	defer m.lock(wallet, name)()
	return m.store.Load(wallet, name)
}

// List returns the set-up accounts of a wallet.
func (m *Manager) List(wallet string) ([]string, error) {
	return m.store.List(wallet)
}

func (m *Manager) load(wallet, name string) (*State, *addresses.Engine, error) {
	st, err := m.store.Load(wallet, name)
	if err != nil {
		return nil, nil, err
	}
	e, err := m.engine(st.Security)
	if err != nil {
		return nil, nil, err
	}
	return st, e, nil
}

// applyLocalSpent sets the local spent flag of every address that signed a
// transaction in the account history.
func applyLocalSpent(st *State) {
	addrs := st.Addresses.Sorted()
	spent := addresses.SpendStatusesFromTransactions(addrs, st.Transactions)
	for i, addr := range addrs {
		if spent[i] {
			md := st.Addresses[addr]
			md.Spent.Local = true
			st.Addresses[addr] = md
		}
	}
}
