package wallet

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

// Deriver generates consecutive account addresses from a seed. It satisfies
// addresses.Generator.
type Deriver struct {
	security int
}

// NewDeriver returns a Deriver for the given security level.
func NewDeriver(security int) (*Deriver, error) {
	if security < MinSecurity || security > MaxSecurity {
		return nil, fmt.Errorf("security level must be in [%d, %d], got %d", MinSecurity, MaxSecurity, security)
	}
	return &Deriver{security: security}, nil
}

// Security returns the security level addresses are derived with.
func (d *Deriver) Security() int {
	return d.security
}

// Address derives the single address at index.
func (d *Deriver) Address(seed []byte, index uint64) (types.Address, error) {
	addrs, err := d.Addresses(context.Background(), seed, index, 1)
	if err != nil {
		return "", err
	}
	return addrs[0], nil
}

// Addresses derives count addresses starting at index.
func (d *Deriver) Addresses(ctx context.Context, seed []byte, index uint64, count int) ([]types.Address, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if index+uint64(count)-1 > MaxAddressIndex {
		return nil, fmt.Errorf("address index %d exceeds maximum %d", index+uint64(count)-1, MaxAddressIndex)
	}

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	branch, err := master.DeriveSecurityBranch(d.security)
	if err != nil {
		return nil, err
	}

	out := make([]types.Address, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := branch.DeriveChild(uint32(index) + uint32(i))
		if err != nil {
			return nil, err
		}
		out = append(out, child.Address(d.security))
	}
	return out, nil
}
