package addresses

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

func TestFormat_LengthMismatch(t *testing.T) {
	addrs := []types.Address{rep("A"), rep("B"), rep("C")}
	tests := []struct {
		name     string
		balances []uint64
		spent    []Spent
		indexes  []uint64
	}{
		{"balances short", []uint64{}, RemoteSpent([]bool{false, false, false}), nil},
		{"spent short", []uint64{1, 2, 3}, RemoteSpent([]bool{false}), nil},
		{"indexes short", []uint64{1, 2, 3}, RemoteSpent([]bool{false, false, false}), []uint64{0, 1}},
		{"indexes long", []uint64{1, 2, 3}, RemoteSpent([]bool{false, false, false}), []uint64{0, 1, 2, 3}},
		{"balances long", []uint64{1, 2, 3, 4}, RemoteSpent([]bool{false, false, false}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Format(addrs, tt.balances, tt.spent, tt.indexes)
			if !errors.Is(err, ErrAddressMetadataLengthMismatch) {
				t.Fatalf("err = %v, want ErrAddressMetadataLengthMismatch", err)
			}
			if m != nil {
				t.Error("no partial result expected")
			}
		})
	}
}

func TestFormat_Balances(t *testing.T) {
	a, b, c := rep("A"), rep("B"), rep("C")
	m, err := Format([]types.Address{a, b, c}, []uint64{2, 3, 4}, RemoteSpent([]bool{false, false, false}), nil)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	want := map[types.Address]uint64{a: 2, b: 3, c: 4}
	for addr, bal := range want {
		if m[addr].Balance != bal {
			t.Errorf("balance of %s = %d, want %d", addr.Short(), m[addr].Balance, bal)
		}
	}
}

func TestFormat_Indexes(t *testing.T) {
	addrs := []types.Address{rep("A"), rep("B"), rep("C")}
	spent := RemoteSpent([]bool{false, true, false})

	positional, err := Format(addrs, []uint64{0, 0, 0}, spent, nil)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	for i, a := range addrs {
		if positional[a].Index != uint64(i) {
			t.Errorf("index of %s = %d, want %d", a.Short(), positional[a].Index, i)
		}
	}

	explicit, err := Format(addrs, []uint64{0, 0, 0}, spent, []uint64{7, 9, 12})
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	for i, want := range []uint64{7, 9, 12} {
		if got := explicit[addrs[i]].Index; got != want {
			t.Errorf("index of %s = %d, want %d", addrs[i].Short(), got, want)
		}
	}

	if !positional[addrs[1]].Spent.Remote || positional[addrs[1]].Spent.Local {
		t.Errorf("spent = %+v, want remote only", positional[addrs[1]].Spent)
	}
}

func TestFormat_KeepsBothSpentFlags(t *testing.T) {
	a := rep("A")
	m, err := Format([]types.Address{a}, []uint64{0}, []Spent{{Local: true, Remote: true}}, nil)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if got := m[a].Spent; !got.Local || !got.Remote {
		t.Errorf("spent = %+v, want both set", got)
	}
}

func TestFormat_ValidChecksums(t *testing.T) {
	var addrs []types.Address
	for i := 0; i < 25; i++ {
		addrs = append(addrs, testAddr(i))
	}
	m, err := Format(addrs, make([]uint64, len(addrs)), make([]Spent, len(addrs)), nil)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	for _, a := range addrs {
		if !crypto.IsValidChecksum(a, m[a].Checksum) {
			t.Errorf("invalid checksum for %s", a.Short())
		}
	}
}

func TestFormat_Empty(t *testing.T) {
	m, err := Format(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("len = %d, want 0", len(m))
	}
}

func TestBalanceHelpers(t *testing.T) {
	if got := AccumulateBalance([]uint64{1, 2, 3, 0}); got != 6 {
		t.Errorf("AccumulateBalance = %d, want 6", got)
	}
	if got := AccumulateBalance(nil); got != 0 {
		t.Errorf("AccumulateBalance(nil) = %d, want 0", got)
	}

	data := StateMap{
		rep("A"): {Index: 0, Balance: 5},
		rep("B"): {Index: 1, Balance: 7},
	}
	got := BalancesSync([]types.Address{rep("B"), rep("C"), rep("A")}, data)
	want := []uint64{7, 0, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BalancesSync[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if data.Balance() != 12 {
		t.Errorf("Balance() = %d, want 12", data.Balance())
	}
}
