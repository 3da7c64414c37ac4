package hasher

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/sha3"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// SHA256d is Bitcoin style double SHA-256 of header || le64(nonce).
//
// Bitcoin compares hashes as little endian numbers, so the digest is
// returned byte-reversed (display order) and the big endian target
// comparison gives the same answer.
type SHA256d struct{}

// NewSHA256d creates a double SHA-256 hasher.
func NewSHA256d() SHA256d {
	return SHA256d{}
}

// Name returns the algorithm name.
func (SHA256d) Name() string {
	return SHA256dName
}

// Digest implements miner.Hasher.
func (SHA256d) Digest(header []byte, nonce uint64) miner.Digest {
	msg := make([]byte, len(header)+8)
	copy(msg, header)
	binary.LittleEndian.PutUint64(msg[len(header):], nonce)

	hash := chainhash.DoubleHashH(msg)
	var d miner.Digest
	for i := 0; i < chainhash.HashSize; i++ {
		d[i] = hash[chainhash.HashSize-1-i]
	}
	return d
}

// SHA3 is FIPS 202 SHA3-256 of header || be64(nonce).
type SHA3 struct{}

// NewSHA3 creates a SHA3-256 hasher.
func NewSHA3() SHA3 {
	return SHA3{}
}

// Name returns the algorithm name.
func (SHA3) Name() string {
	return SHA3Name
}

// Digest implements miner.Hasher.
func (SHA3) Digest(header []byte, nonce uint64) miner.Digest {
	msg := make([]byte, len(header)+8)
	copy(msg, header)
	binary.BigEndian.PutUint64(msg[len(header):], nonce)
	return sha3.Sum256(msg)
}
