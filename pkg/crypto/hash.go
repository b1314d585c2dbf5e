// Package crypto provides the hashing and key primitives behind address
// derivation and checksums.
package crypto

import (
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// Digest returns n bytes of BLAKE3 extendable output for data.
func Digest(data []byte, n int) []byte {
	h := blake3.New()
	_, _ = h.Write(data)
	out := make([]byte, n)
	_, _ = h.Digest().Read(out)
	return out
}

// HashTrytes returns the tryte-encoded BLAKE3 digest of data as a ledger hash.
func HashTrytes(data []byte) types.Hash {
	return types.Hash(types.EncodeTrytes(Digest(data, types.HashSize)))
}

// AddressFromPubKey derives an address from a compressed public key.
// The security level is mixed into the digest so the same key yields a
// distinct address per level.
func AddressFromPubKey(pubKey []byte, security int) types.Address {
	buf := make([]byte, 0, len(pubKey)+1)
	buf = append(buf, byte(security))
	buf = append(buf, pubKey...)
	return types.Address(types.EncodeTrytes(Digest(buf, types.AddressSize)))
}

// Checksum computes the 9-tryte checksum of an address.
func Checksum(addr types.Address) types.Checksum {
	d := Digest([]byte(addr), types.ChecksumSize)
	return types.Checksum(types.EncodeTrytes(d))
}

// IsValidChecksum reports whether cs is the checksum of addr.
func IsValidChecksum(addr types.Address, cs types.Checksum) bool {
	if addr.Validate() != nil || len(cs) != types.ChecksumSize {
		return false
	}
	return Checksum(addr) == cs
}
