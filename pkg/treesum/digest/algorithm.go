// Package digest provides the digest algorithms used by treesum
// manifests and a streaming file hasher. All supported algorithms are
// exposed through one uniform surface so the codec and the classifier
// never special-case a hash function.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"
)

// Algorithm identifies one of the supported digest algorithms.
type Algorithm int

// Supported algorithms. CRC32 participates in the uniform surface
// because the manifest codec uses it for the integrity envelope; it is
// never a content algorithm.
const (
	None Algorithm = iota
	MD5
	SHA1
	SHA256
	SHA512
	CRC32
)

// ErrUnknownAlgorithm indicates an algorithm name or value that is not
// supported.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Size returns the digest length in bytes, or 0 for None.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA512:
		return sha512.Size
	case CRC32:
		return crc32.Size
	default:
		return 0
	}
}

// New returns a fresh hash state for the algorithm, or nil for None.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	case CRC32:
		return crc32.NewIEEE()
	default:
		return nil
	}
}

// String returns the canonical lowercase algorithm name.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	case CRC32:
		return "crc32"
	default:
		return "none"
	}
}

// ParseAlgorithm maps a user-supplied name to an algorithm. Matching is
// case-insensitive; "sha128" is accepted as a historical alias for
// sha1.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "md5":
		return MD5, nil
	case "sha1", "sha128":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	case "crc32":
		return CRC32, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// ForSize maps a decoded digest length back to the content algorithm
// that produces it, or None when no algorithm matches. CRC32 is
// deliberately excluded: manifests never carry CRC32 content digests.
func ForSize(n int) Algorithm {
	switch n {
	case md5.Size:
		return MD5
	case sha1.Size:
		return SHA1
	case sha256.Size:
		return SHA256
	case sha512.Size:
		return SHA512
	default:
		return None
	}
}
