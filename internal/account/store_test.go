package account

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-addrsync/internal/addresses"
	"github.com/Klingon-tech/klingnet-addrsync/internal/storage"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

func rep(c string) types.Address {
	return types.Address(strings.Repeat(c, types.AddressSize))
}

func TestStore_SaveLoad(t *testing.T) {
	s := NewStore(storage.NewMemory())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	st := &State{
		Wallet:   "w",
		Name:     "main",
		Security: 2,
		Addresses: addresses.StateMap{
			rep("A"): {Index: 0, Checksum: crypto.Checksum(rep("A")), Balance: 7, Spent: addresses.Spent{Remote: true}},
			rep("B"): {Index: 1, Checksum: crypto.Checksum(rep("B"))},
		},
		Transactions: []addresses.Transaction{{
			Bundle:  types.Hash(strings.Repeat("C", types.HashSize)),
			Inputs:  []addresses.Entry{{Address: rep("A"), Value: -7}},
			Outputs: []addresses.Entry{{Address: rep("D"), Value: 7}},
		}},
		Blacklist: []types.Address{rep("E")},
		UpdatedAt: now,
	}
	if err := s.Save(st); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := s.Load("w", "main")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Security != 2 || !got.UpdatedAt.Equal(now) {
		t.Errorf("meta = %d %v", got.Security, got.UpdatedAt)
	}
	if len(got.Addresses) != 2 || got.Addresses[rep("A")].Balance != 7 || !got.Addresses[rep("A")].Spent.Remote {
		t.Errorf("addresses = %+v", got.Addresses)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].Inputs[0].Value != -7 {
		t.Errorf("transactions = %+v", got.Transactions)
	}
	if len(got.Blacklist) != 1 || got.Blacklist[0] != rep("E") {
		t.Errorf("blacklist = %v", got.Blacklist)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(storage.NewMemory())
	if _, err := s.Load("w", "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestStore_InvalidNames(t *testing.T) {
	s := NewStore(storage.NewMemory())
	for _, tc := range [][2]string{{"", "a"}, {"w", ""}, {"w/x", "a"}, {"w", "a/b"}} {
		if _, err := s.Load(tc[0], tc[1]); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Load(%q, %q) err = %v, want ErrInvalidName", tc[0], tc[1], err)
		}
		if err := s.Save(&State{Wallet: tc[0], Name: tc[1]}); !errors.Is(err, storage.ErrBadSegment) {
			t.Errorf("Save(%q, %q) err = %v, want ErrBadSegment", tc[0], tc[1], err)
		}
	}
	if _, err := s.List("w/x"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("List(w/x) err = %v, want ErrInvalidName", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	db := storage.NewMemory()
	s := NewStore(db)
	for _, name := range []string{"savings", "main"} {
		if err := s.Save(&State{Wallet: "w", Name: name, Security: 2, Addresses: addresses.StateMap{}}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	s.Save(&State{Wallet: "other", Name: "x", Security: 1})

	names, err := s.List("w")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 2 || names[0] != "main" || names[1] != "savings" {
		t.Errorf("List() = %v", names)
	}

	if err := s.Delete("w", "main"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Exists("w", "main"); ok {
		t.Error("account should be deleted")
	}
	if ok, _ := s.Exists("w", "savings"); !ok {
		t.Error("sibling account should survive")
	}
}

func TestStore_Badger(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	s := NewStore(db)
	st := &State{Wallet: "w", Name: "main", Security: 3, Addresses: addresses.StateMap{rep("A"): {Index: 0}}}
	if err := s.Save(st); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	db.Close()

	db, err = storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db.Close()
	got, err := NewStore(db).Load("w", "main")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Security != 3 || len(got.Addresses) != 1 {
		t.Errorf("state = %+v", got)
	}
}

func TestState_Clone(t *testing.T) {
	st := &State{
		Addresses: addresses.StateMap{rep("A"): {Index: 0}},
		Blacklist: []types.Address{rep("B")},
	}
	c := st.Clone()
	c.Addresses[rep("C")] = addresses.Metadata{Index: 1}
	c.Blacklist[0] = rep("D")
	if len(st.Addresses) != 1 || st.Blacklist[0] != rep("B") {
		t.Error("Clone shares storage with original")
	}
}
