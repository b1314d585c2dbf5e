package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HashSize is the length of a transaction or bundle hash in trytes.
const HashSize = 81

// Hash identifies a ledger transaction or bundle.
type Hash string

// IsZero returns true if the hash is empty.
func (h Hash) IsZero() bool {
	return h == ""
}

// String returns the hash trytes.
func (h Hash) String() string {
	return string(h)
}

// MarshalJSON encodes the hash as a JSON string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(h))
}

// UnmarshalJSON decodes and validates a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = ""
		return nil
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash validates an 81-tryte hash string.
func ParseHash(s string) (Hash, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != HashSize {
		return "", fmt.Errorf("hash must be %d trytes, got %d", HashSize, len(s))
	}
	if !IsTrytes(s) {
		return "", fmt.Errorf("hash contains non-tryte characters")
	}
	return Hash(s), nil
}
