package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddress_IsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Error("zero-value Address should be zero")
	}
	if Address(strings.Repeat("A", AddressSize)).IsZero() {
		t.Error("non-empty Address should not be zero")
	}
}

func TestParseAddress(t *testing.T) {
	valid := strings.Repeat("A", 80) + "9"

	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"valid", valid, Address(valid), false},
		{"lowercase", strings.ToLower(valid), Address(valid), false},
		{"with checksum", valid + "NXELTUENX", Address(valid), false},
		{"surrounding space", "  " + valid + "\n", Address(valid), false},
		{"empty", "", "", true},
		{"too short", strings.Repeat("A", 80), "", true},
		{"too long", strings.Repeat("A", 82), "", true},
		{"bad char", strings.Repeat("A", 80) + "1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitChecksum(t *testing.T) {
	addr := strings.Repeat("B", AddressSize)
	a, cs, err := SplitChecksum(addr + "ABCDEFGHI")
	if err != nil {
		t.Fatalf("SplitChecksum() error: %v", err)
	}
	if a != Address(addr) {
		t.Errorf("address = %s, want %s", a, addr)
	}
	if cs != "ABCDEFGHI" {
		t.Errorf("checksum = %s, want ABCDEFGHI", cs)
	}

	if _, _, err := SplitChecksum(addr); err == nil {
		t.Error("SplitChecksum without checksum should fail")
	}
	if _, _, err := SplitChecksum(addr + "ABCDEFGH1"); err == nil {
		t.Error("SplitChecksum with invalid checksum trytes should fail")
	}
}

func TestAddress_WithChecksum(t *testing.T) {
	a := Address(strings.Repeat("C", AddressSize))
	s := a.WithChecksum("999999999")
	if len(s) != AddressSize+ChecksumSize {
		t.Errorf("len = %d, want %d", len(s), AddressSize+ChecksumSize)
	}
}

func TestAddress_Short(t *testing.T) {
	a := Address(strings.Repeat("D", 75) + "EFGHIJ")
	if got := a.Short(); got != "DDDDDD...EFGHIJ" {
		t.Errorf("Short() = %s", got)
	}
}

func TestAddress_JSON(t *testing.T) {
	a := Address(strings.Repeat("Z", AddressSize))
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Address
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != a {
		t.Errorf("decoded = %s, want %s", decoded, a)
	}

	if err := json.Unmarshal([]byte(`"NOTANADDRESS"`), &decoded); err == nil {
		t.Error("Unmarshal of invalid address should fail")
	}

	if err := json.Unmarshal([]byte(`""`), &decoded); err != nil {
		t.Fatalf("Unmarshal empty: %v", err)
	}
	if !decoded.IsZero() {
		t.Error("empty string should decode to zero address")
	}
}

func TestAddress_MapKeyJSON(t *testing.T) {
	m := map[Address]int{Address(strings.Repeat("A", AddressSize)): 1}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[Address]int
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out[Address(strings.Repeat("A", AddressSize))] != 1 {
		t.Error("map key did not round trip")
	}
}

func TestIsTrytes(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"9", true},
		{"ABCXYZ9", true},
		{"abc", false},
		{"A-B", false},
	}
	for _, tt := range tests {
		if got := IsTrytes(tt.in); got != tt.want {
			t.Errorf("IsTrytes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeTrytes(t *testing.T) {
	got := EncodeTrytes([]byte{0, 1, 26, 27, 255})
	if got != "9AZ9L" {
		t.Errorf("EncodeTrytes() = %s, want 9AZ9L", got)
	}
	if !IsTrytes(got) {
		t.Error("encoded output must be trytes")
	}
}
