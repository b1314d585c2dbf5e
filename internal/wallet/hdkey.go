package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/CoinType'/security'/0/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44
	// CoinTypeLedger is the ledger's registered coin type (hardened).
	CoinTypeLedger = bip32.FirstHardenedChild + 4218
	// ChainAddresses is the single address chain. Change goes to the next
	// fresh address on the same chain, so there is no internal chain.
	ChainAddresses = 0
)

// Security levels accepted by DeriveAddress.
const (
	MinSecurity     = 1
	MaxSecurity     = 3
	DefaultSecurity = 2
)

// MaxAddressIndex is the highest non-hardened child index.
const MaxAddressIndex = uint64(bip32.FirstHardenedChild) - 1

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveSecurityBranch derives m/44'/4218'/security'/0, the parent of every
// address key for one security level.
func (k *HDKey) DeriveSecurityBranch(security int) (*HDKey, error) {
	if security < MinSecurity || security > MaxSecurity {
		return nil, fmt.Errorf("security level must be in [%d, %d], got %d", MinSecurity, MaxSecurity, security)
	}
	return k.DerivePath(
		PurposeBIP44,
		CoinTypeLedger,
		bip32.FirstHardenedChild+uint32(security),
		ChainAddresses,
	)
}

// DeriveAddress derives the key at m/44'/4218'/security'/0/index.
func (k *HDKey) DeriveAddress(security int, index uint32) (*HDKey, error) {
	branch, err := k.DeriveSecurityBranch(security)
	if err != nil {
		return nil, err
	}
	return branch.DeriveChild(index)
}

// PrivateKeyBytes returns the raw 32-byte private key.
// Returns nil if this is a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	pub := k.key.PublicKey()
	return pub.Key
}

// PrivateKey returns the secp256k1 private key behind this HD key.
// Returns error if this is a public-only key.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot extract private key from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// Address derives the ledger address of this key's public key.
func (k *HDKey) Address(security int) types.Address {
	return crypto.AddressFromPubKey(k.PublicKeyBytes(), security)
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy (for watch-only wallets).
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
