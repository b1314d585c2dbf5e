// Package types defines core primitive types shared by the wallet and the
// address engine.
package types

// TryteAlphabet is the ledger's native 27-symbol alphabet.
const TryteAlphabet = "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// IsTrytes reports whether s is non-empty and consists only of tryte characters.
func IsTrytes(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTryte(s[i]) {
			return false
		}
	}
	return true
}

func isTryte(c byte) bool {
	return c == '9' || (c >= 'A' && c <= 'Z')
}

// EncodeTrytes maps each byte of b onto the tryte alphabet.
// The mapping is lossy; it is used to render digests, not to round-trip data.
func EncodeTrytes(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = TryteAlphabet[int(c)%len(TryteAlphabet)]
	}
	return string(out)
}
