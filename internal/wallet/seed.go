package wallet

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/klingnet-addrsync/pkg/crypto"
	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// FingerprintLen is the number of trytes kept from a seed fingerprint.
const FingerprintLen = 9

// SeedFromMnemonic normalizes and validates a mnemonic, then derives the
// 512-bit BIP-39 seed. Invalid phrases wrap ErrInvalidMnemonic.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("%w: %d words", ErrInvalidMnemonic, len(strings.Fields(mnemonic)))
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// SeedFingerprint returns a short tryte tag identifying a seed without
// revealing it. It lets a keystore confirm a decrypted seed is the one it
// stored and lets users tell wallets apart.
func SeedFingerprint(seed []byte) string {
	return string(crypto.HashTrytes(seed))[:FingerprintLen]
}
