package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed blob layout:
//
//	version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
//
// The whole header is authenticated together with the caller's context, so a
// blob cannot be moved to another wallet or have its KDF cost rewritten.
const (
	SaltSize = 32

	sealVersion = 2
	headerSize  = 1 + SaltSize + 4 + 4 + 1
)

// Upper bounds on KDF cost accepted from a sealed header.
const (
	MaxMemory      = 4 * 1024 * 1024 // 4 GiB in KiB
	MaxIterations  = 64
	MaxParallelism = 64
)

var (
	// ErrDecrypt is returned when the password is wrong or the blob was
	// altered or sealed for another context.
	ErrDecrypt = errors.New("wrong password or tampered data")
	// ErrBadParams is returned for KDF parameters outside the accepted range.
	ErrBadParams = errors.New("invalid encryption parameters")
)

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

// Validate reports whether the parameters are usable and within bounds.
func (p EncryptionParams) Validate() error {
	switch {
	case p.Iterations == 0 || p.Iterations > MaxIterations:
		return fmt.Errorf("%w: iterations %d", ErrBadParams, p.Iterations)
	case p.Parallelism == 0 || p.Parallelism > MaxParallelism:
		return fmt.Errorf("%w: parallelism %d", ErrBadParams, p.Parallelism)
	case p.Memory < 8*uint32(p.Parallelism) || p.Memory > MaxMemory:
		return fmt.Errorf("%w: memory %d KiB", ErrBadParams, p.Memory)
	}
	return nil
}

// SeedContext is the additional data a wallet seed is sealed under.
func SeedContext(walletName string) []byte {
	return []byte("addrsync/seed/" + walletName)
}

// Encrypt seals data under password using Argon2id and XChaCha20-Poly1305.
// context is authenticated but not stored; Decrypt must be given the same.
func Encrypt(data, password, context []byte, params EncryptionParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	out := make([]byte, headerSize+chacha20poly1305.NonceSizeX, headerSize+chacha20poly1305.NonceSizeX+len(data)+chacha20poly1305.Overhead)
	out[0] = sealVersion
	salt := out[1 : 1+SaltSize]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	binary.LittleEndian.PutUint32(out[1+SaltSize:], params.Memory)
	binary.LittleEndian.PutUint32(out[1+SaltSize+4:], params.Iterations)
	out[headerSize-1] = params.Parallelism

	nonce := out[headerSize:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return aead.Seal(out, nonce, data, additionalData(out[:headerSize], context)), nil
}

// Decrypt opens a blob produced by Encrypt with the same password and context.
func Decrypt(encrypted, password, context []byte) ([]byte, error) {
	minSize := headerSize + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("encrypted data too short: %d bytes, need at least %d", len(encrypted), minSize)
	}
	if encrypted[0] != sealVersion {
		return nil, fmt.Errorf("unsupported encryption version %d", encrypted[0])
	}

	header := encrypted[:headerSize]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(header[1+SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(header[1+SaltSize+4:]),
		Parallelism: header[headerSize-1],
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	nonce := encrypted[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	ciphertext := encrypted[headerSize+chacha20poly1305.NonceSizeX:]

	key := deriveKey(password, header[1:1+SaltSize], params)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData(header, context))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// deriveKey uses Argon2id to derive a 32-byte encryption key from password and salt.
func deriveKey(password, salt []byte, params EncryptionParams) []byte {
	return argon2.IDKey(
		password,
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		chacha20poly1305.KeySize,
	)
}

func additionalData(header, context []byte) []byte {
	ad := make([]byte, 0, len(header)+len(context))
	ad = append(ad, header...)
	return append(ad, context...)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
