package digest

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Digest is a raw digest value. A nil Digest means no digest is
// present. Digests of different lengths are never equal, so values
// from different algorithms cannot collide.
type Digest []byte

// ParseHex decodes a hex string into a Digest. Both cases are
// accepted; the string must have an even number of hex digits.
func ParseHex(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex digest %q: %w", s, err)
	}
	return Digest(b), nil
}

// Hex returns the lowercase hex form of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d)
}

// Equal reports whether two digests have the same length and bytes.
func (d Digest) Equal(o Digest) bool {
	return bytes.Equal(d, o)
}

// Compare orders digests bytewise for use as an index key.
func (d Digest) Compare(o Digest) int {
	return bytes.Compare(d, o)
}
