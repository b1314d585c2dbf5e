// Package account persists per-account address state and runs the address
// engine against it, one operation per account at a time.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Klingon-tech/klingnet-addrsync/internal/addresses"
	"github.com/Klingon-tech/klingnet-addrsync/internal/storage"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// Store errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidName     = errors.New("invalid wallet or account name")
)

// Keys within an account namespace.
var (
	keyMeta      = []byte("meta")
	keyAddresses = []byte("addresses")
	keyTxs       = []byte("txs")
	keyBlacklist = []byte("blacklist")
)

const nsAccount = "acct"

// State is everything stored for one account.
type State struct {
	Wallet       string
	Name         string
	Security     int
	Addresses    addresses.StateMap
	Transactions []addresses.Transaction
	Blacklist    []types.Address
	UpdatedAt    time.Time
}

// Balance returns the account balance as last seen on the ledger.
func (s *State) Balance() uint64 {
	return s.Addresses.Balance()
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := *s
	out.Addresses = s.Addresses.Clone()
	out.Transactions = append([]addresses.Transaction(nil), s.Transactions...)
	out.Blacklist = append([]types.Address(nil), s.Blacklist...)
	return &out
}

type meta struct {
	Security  int       `json:"security"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps account state in a key-value database, one namespace per
// wallet and account.
type Store struct {
	root *storage.PrefixDB
}

// NewStore creates a store backed by db. Accounts live under "acct/".
func NewStore(db storage.DB) *Store {
	return &Store{root: storage.NewPrefixDB(db, []byte(nsAccount+"/"))}
}

// ns scopes the database to one account: "acct/<wallet>/<name>/".
func (s *Store) ns(wallet, name string) (*storage.PrefixDB, error) {
	db, err := s.root.Sub(wallet, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	return db, nil
}

// Save writes st in one batch.
func (s *Store) Save(st *State) error {
	db, err := s.ns(st.Wallet, st.Name)
	if err != nil {
		return err
	}

	values := make(map[string]interface{}, 4)
	values[string(keyMeta)] = meta{Security: st.Security, UpdatedAt: st.UpdatedAt}
	values[string(keyAddresses)] = st.Addresses
	values[string(keyTxs)] = st.Transactions
	values[string(keyBlacklist)] = st.Blacklist

	batch := db.NewBatch()
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if err := batch.Put([]byte(key), data); err != nil {
			return fmt.Errorf("stage %s: %w", key, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("save account %s/%s: %w", st.Wallet, st.Name, err)
	}
	return nil
}

// Load reads an account. It fails with ErrAccountNotFound if the account
// was never saved.
func (s *Store) Load(wallet, name string) (*State, error) {
	db, err := s.ns(wallet, name)
	if err != nil {
		return nil, err
	}

	var m meta
	if err := getJSON(db, keyMeta, &m); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrAccountNotFound, wallet, name)
		}
		return nil, err
	}

	st := &State{
		Wallet:    wallet,
		Name:      name,
		Security:  m.Security,
		UpdatedAt: m.UpdatedAt,
		Addresses: make(addresses.StateMap),
	}
	for key, dst := range map[string]interface{}{
		string(keyAddresses): &st.Addresses,
		string(keyTxs):       &st.Transactions,
		string(keyBlacklist): &st.Blacklist,
	} {
		if err := getJSON(db, []byte(key), dst); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	if st.Addresses == nil {
		st.Addresses = make(addresses.StateMap)
	}
	return st, nil
}

func getJSON(db storage.DB, key []byte, v interface{}) error {
	data, err := db.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the account has been saved.
func (s *Store) Exists(wallet, name string) (bool, error) {
	db, err := s.ns(wallet, name)
	if err != nil {
		return false, err
	}
	return db.Has(keyMeta)
}

// Delete removes all data of an account.
func (s *Store) Delete(wallet, name string) error {
	db, err := s.ns(wallet, name)
	if err != nil {
		return err
	}
	return db.DeleteAll()
}

// List returns the saved account names of a wallet, sorted.
func (s *Store) List(wallet string) ([]string, error) {
	db, err := s.root.Sub(wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	names, err := db.Children(keyMeta)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
