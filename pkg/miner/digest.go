package miner

import (
	"encoding/hex"
	"fmt"
)

// DigestLength is the width in bytes of every digest, and so of the target.
const DigestLength = 32

// Digest is the output of a Hasher, read as a big endian unsigned integer.
type Digest [DigestLength]byte

// String returns the digest as lowercase hex for use by the fmt package (for %s).
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// GoString is used for %#v.
func (d Digest) GoString() string {
	return "<Digest:" + hex.EncodeToString(d[:]) + ">"
}

// MarshalText encodes the digest as hex text.
func (d Digest) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(DigestLength))
	hex.Encode(buffer, d[:])
	return buffer, nil
}

// UnmarshalText decodes hex text of exactly DigestLength bytes.
func (d *Digest) UnmarshalText(s []byte) error {
	if len(s) != hex.EncodedLen(DigestLength) {
		return fmt.Errorf("digest text: want %d hex characters, got %d", 2*DigestLength, len(s))
	}
	var out Digest
	if _, err := hex.Decode(out[:], s); err != nil {
		return err
	}
	*d = out
	return nil
}

// Hasher is the digest primitive: it maps a header and a nonce to a Digest.
//
// Digest must be deterministic and safe to call from any number of
// goroutines at once without synchronization. The search engine assumes
// nothing else about it, so swapping the hash algorithm never touches the
// search loops.
type Hasher interface {
	// Name identifies the algorithm, e.g. "keccak256".
	Name() string

	// Digest hashes header together with nonce.
	Digest(header []byte, nonce uint64) Digest
}

// BatchHasher is implemented by hashers that can compute four digests at
// once faster than four separate calls. For every i the result must equal
// Digest(header, nonces[i]).
type BatchHasher interface {
	Hasher
	DigestX4(header []byte, nonces *[4]uint64, out *[4]Digest)
}
