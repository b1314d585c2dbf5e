package storage

import (
	"errors"
	"fmt"
	"sort"
	"testing"
)

func accountNS(t *testing.T, inner DB, wallet, account string) *PrefixDB {
	t.Helper()
	db, err := NewPrefixDB(inner, []byte("acct/")).Sub(wallet, account)
	if err != nil {
		t.Fatalf("Sub(%q, %q) error: %v", wallet, account, err)
	}
	return db
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
		err      bool
	}{
		{[]string{"acct"}, "acct/", false},
		{[]string{"acct", "main", "default"}, "acct/main/default/", false},
		{[]string{"acct", ""}, "", true},
		{[]string{"acct", "a/b"}, "", true},
		{[]string{"/"}, "", true},
	}
	for _, tt := range tests {
		got, err := Namespace(tt.segments...)
		if tt.err {
			if !errors.Is(err, ErrBadSegment) {
				t.Errorf("Namespace(%q) error = %v, want ErrBadSegment", tt.segments, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Namespace(%q) error: %v", tt.segments, err)
		}
		if string(got) != tt.want {
			t.Errorf("Namespace(%q) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestPrefixDB_SubLayout(t *testing.T) {
	inner := NewMemory()
	db := accountNS(t, inner, "main", "savings")

	if err := db.Put([]byte("meta"), []byte("m")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := inner.Get([]byte("acct/main/savings/meta"))
	if err != nil {
		t.Fatalf("inner Get: %v", err)
	}
	if string(got) != "m" {
		t.Errorf("inner value = %q, want %q", got, "m")
	}

	if _, err := NewPrefixDB(inner, nil).Sub("main", "a/b"); !errors.Is(err, ErrBadSegment) {
		t.Errorf("Sub with separator error = %v, want ErrBadSegment", err)
	}
}

func TestPrefixDB_GetPutDelete(t *testing.T) {
	db := accountNS(t, NewMemory(), "w", "a")

	if err := db.Put([]byte("addresses"), []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, err := db.Get([]byte("addresses")); err != nil || string(got) != "{}" {
		t.Fatalf("Get = %q, %v; want {}", got, err)
	}
	if ok, _ := db.Has([]byte("addresses")); !ok {
		t.Fatal("Has = false after Put")
	}
	if err := db.Delete([]byte("addresses")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := db.Has([]byte("addresses")); ok {
		t.Fatal("Has = true after Delete")
	}
	if _, err := db.Get([]byte("addresses")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}

func TestPrefixDB_AccountsIsolated(t *testing.T) {
	inner := NewMemory()
	a := accountNS(t, inner, "main", "a")
	ab := accountNS(t, inner, "main", "ab")

	a.Put([]byte("meta"), []byte("A"))
	ab.Put([]byte("meta"), []byte("AB"))

	var keys []string
	a.ForEach(nil, func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if len(keys) != 1 || keys[0] != "meta" {
		t.Errorf("a sees keys %v, want [meta]", keys)
	}
	if got, _ := ab.Get([]byte("meta")); string(got) != "AB" {
		t.Errorf("ab meta = %q, want AB", got)
	}
}

func TestPrefixDB_ForEach(t *testing.T) {
	db := accountNS(t, NewMemory(), "w", "a")

	db.Put([]byte("tx/k1"), []byte("v1"))
	db.Put([]byte("tx/k2"), []byte("v2"))
	db.Put([]byte("meta"), []byte("v3"))

	var keys []string
	err := db.ForEach([]byte("tx/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	sort.Strings(keys)
	if fmt.Sprint(keys) != "[tx/k1 tx/k2]" {
		t.Errorf("ForEach keys = %v, want [tx/k1 tx/k2]", keys)
	}

	stop := errors.New("stop")
	count := 0
	err = db.ForEach(nil, func(_, _ []byte) error {
		count++
		return stop
	})
	if err != stop || count != 1 {
		t.Errorf("ForEach stop: err = %v, calls = %d", err, count)
	}
}

func TestPrefixDB_Children(t *testing.T) {
	inner := NewMemory()
	for _, name := range []string{"savings", "default", "cold"} {
		accountNS(t, inner, "main", name).Put([]byte("meta"), []byte("{}"))
	}
	// Data without a meta key is not an account.
	accountNS(t, inner, "main", "partial").Put([]byte("addresses"), []byte("{}"))
	accountNS(t, inner, "other", "x").Put([]byte("meta"), []byte("{}"))

	wallet, err := NewPrefixDB(inner, []byte("acct/")).Sub("main")
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	got, err := wallet.Children([]byte("meta"))
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	sort.Strings(got)
	if fmt.Sprint(got) != "[cold default savings]" {
		t.Errorf("Children = %v, want [cold default savings]", got)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	for name, inner := range map[string]DB{
		"batcher":  NewMemory(),
		"fallback": plainDB{NewMemory()},
	} {
		t.Run(name, func(t *testing.T) {
			a := accountNS(t, inner, "main", "a")
			b := accountNS(t, inner, "main", "b")
			for i := 0; i < 3; i++ {
				a.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v"))
			}
			b.Put([]byte("k0"), []byte("other"))

			if err := a.DeleteAll(); err != nil {
				t.Fatalf("DeleteAll: %v", err)
			}
			a.ForEach(nil, func(key, _ []byte) error {
				t.Errorf("key %q survived DeleteAll", key)
				return nil
			})
			if got, _ := b.Get([]byte("k0")); string(got) != "other" {
				t.Errorf("b.k0 = %q, want other", got)
			}
			if err := a.DeleteAll(); err != nil {
				t.Errorf("DeleteAll on empty namespace: %v", err)
			}
		})
	}
}

func TestPrefixDB_CloseIsNoop(t *testing.T) {
	inner := NewMemory()
	db := accountNS(t, inner, "w", "a")
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := inner.Get([]byte("acct/w/a/key")); err != nil || string(got) != "val" {
		t.Errorf("inner.Get after Close = %q, %v", got, err)
	}
}

func TestPrefixDB_Batch(t *testing.T) {
	for name, inner := range map[string]DB{
		"batcher":  NewMemory(),
		"fallback": plainDB{NewMemory()},
	} {
		t.Run(name, func(t *testing.T) {
			p := accountNS(t, inner, "w", "main")
			b := p.NewBatch()
			b.Put([]byte("state"), []byte("s"))
			b.Put([]byte("txs"), []byte("t"))
			if err := b.Commit(); err != nil {
				t.Fatalf("Commit() error: %v", err)
			}

			got, err := inner.Get([]byte("acct/w/main/state"))
			if err != nil {
				t.Fatalf("inner Get() error: %v", err)
			}
			if string(got) != "s" {
				t.Errorf("value = %q, want s", got)
			}

			b = p.NewBatch()
			b.Delete([]byte("txs"))
			b.Commit()
			if ok, _ := p.Has([]byte("txs")); ok {
				t.Error("batched delete not applied")
			}
		})
	}
}

// plainDB hides the Batcher implementation of the wrapped DB.
type plainDB struct{ DB }
