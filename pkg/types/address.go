package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of an address in trytes.
const AddressSize = 81

// ChecksumSize is the length of an address checksum in trytes.
const ChecksumSize = 9

// Address is an 81-tryte ledger address derived from (seed, index, security).
type Address string

// Checksum is the short tryte suffix appended to an address for display and
// transport. It is never part of the address identity.
type Checksum string

// IsZero returns true if the address is empty.
func (a Address) IsZero() bool {
	return a == ""
}

// String returns the address trytes.
func (a Address) String() string {
	return string(a)
}

// Short returns an abbreviated form for logs.
func (a Address) Short() string {
	if len(a) <= 12 {
		return string(a)
	}
	return string(a[:6]) + "..." + string(a[len(a)-6:])
}

// WithChecksum returns the address with its checksum appended (90 trytes).
func (a Address) WithChecksum(cs Checksum) string {
	return string(a) + string(cs)
}

// Validate checks the address length and alphabet.
func (a Address) Validate() error {
	if len(a) != AddressSize {
		return fmt.Errorf("address must be %d trytes, got %d", AddressSize, len(a))
	}
	if !IsTrytes(string(a)) {
		return fmt.Errorf("address contains non-tryte characters")
	}
	return nil
}

// MarshalJSON encodes the address as a JSON string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON decodes and validates an address. An empty string decodes to
// the zero address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = ""
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses an 81-tryte address or a 90-tryte address with its
// checksum attached. Lowercase input is accepted and normalised.
// The checksum, if present, is stripped but not verified here; use
// crypto.IsValidChecksum for that.
func ParseAddress(s string) (Address, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty address")
	}
	if len(s) == AddressSize+ChecksumSize {
		s = s[:AddressSize]
	}
	a := Address(s)
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// SplitChecksum splits a 90-tryte string into address and checksum.
func SplitChecksum(s string) (Address, Checksum, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != AddressSize+ChecksumSize {
		return "", "", fmt.Errorf("address with checksum must be %d trytes, got %d", AddressSize+ChecksumSize, len(s))
	}
	a := Address(s[:AddressSize])
	if err := a.Validate(); err != nil {
		return "", "", err
	}
	cs := Checksum(s[AddressSize:])
	if !IsTrytes(string(cs)) {
		return "", "", fmt.Errorf("checksum contains non-tryte characters")
	}
	return a, cs, nil
}
