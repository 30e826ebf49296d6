// Package neartypes implements NEAR's canonical binary encoding and the
// primitive block-header, validator, signature, and approval types that the
// rest of the light client verifies against.
package neartypes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// CryptoHash is a fixed 32-byte hash, displayed as base58 per NEAR convention.
type CryptoHash [32]byte

// ZeroHash is the all-zero hash, used as the merkle root of an empty sequence.
var ZeroHash CryptoHash

// Sha256 returns the sha256 digest of data as a CryptoHash.
func Sha256(data []byte) CryptoHash {
	return CryptoHash(sha256.Sum256(data))
}

// Combine returns sha256(a || b), the building block of every hash
// composition in the header-succession and merkle algorithms.
func Combine(a, b CryptoHash) CryptoHash {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return Sha256(buf)
}

// Bytes returns the hash as a byte slice.
func (h CryptoHash) Bytes() []byte { return h[:] }

// Equal reports whether h and other are byte-for-byte identical.
func (h CryptoHash) Equal(other CryptoHash) bool { return h == other }

// IsZero reports whether h is the zero hash.
func (h CryptoHash) IsZero() bool { return h == ZeroHash }

// String renders the hash as base58, matching NEAR's Display impl.
func (h CryptoHash) String() string {
	return base58.Encode(h[:])
}

// GoString renders the hash as base58 for %#v / debug formatting.
func (h CryptoHash) GoString() string {
	return fmt.Sprintf("CryptoHash(%s)", h.String())
}

// CryptoHashFromBase58 parses a base58-encoded 32-byte hash.
func CryptoHashFromBase58(s string) (CryptoHash, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return CryptoHash{}, fmt.Errorf("neartypes: invalid base58 hash: %w", err)
	}
	return CryptoHashFromBytes(b)
}

// CryptoHashFromHex parses a hex-encoded 32-byte hash, accepted for
// interoperability with RPC payloads that surface hex instead of base58.
func CryptoHashFromHex(s string) (CryptoHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return CryptoHash{}, fmt.Errorf("neartypes: invalid hex hash: %w", err)
	}
	return CryptoHashFromBytes(b)
}

// CryptoHashFromBytes wraps a byte slice as a CryptoHash, requiring exactly
// 32 bytes.
func CryptoHashFromBytes(b []byte) (CryptoHash, error) {
	if len(b) != 32 {
		return CryptoHash{}, fmt.Errorf("neartypes: hash must be 32 bytes, got %d", len(b))
	}
	var h CryptoHash
	copy(h[:], b)
	return h, nil
}
