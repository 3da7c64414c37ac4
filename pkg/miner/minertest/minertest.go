// Package minertest provides stub digest functions with predictable
// solutions for testing search backends.
package minertest

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// ZeroHeader returns an n byte all-zero search header.
func ZeroHeader(n int) []byte {
	return make([]byte, n)
}

// NonceDigest returns nonce as a zero padded big endian digest, so the
// digest's integer value equals the nonce.
func NonceDigest(nonce uint64) miner.Digest {
	var d miner.Digest
	binary.BigEndian.PutUint64(d[miner.DigestLength-8:], nonce)
	return d
}

// NonceHasher maps every nonce to NonceDigest(nonce + Offset). The header is
// ignored. With Offset 1 no digest is ever zero.
type NonceHasher struct {
	Offset uint64
}

// Name returns the stub name.
func (h NonceHasher) Name() string {
	return fmt.Sprintf("nonce+%d", h.Offset)
}

// Digest implements miner.Hasher.
func (h NonceHasher) Digest(_ []byte, nonce uint64) miner.Digest {
	return NonceDigest(nonce + h.Offset)
}

// SolutionHasher makes each nonce in Solutions the only nonces whose digest
// is small: a solution maps to NonceDigest(nonce), every other nonce to the
// same value with the top byte set to 0xff. A target of max(Solutions) then
// accepts exactly the configured nonces.
type SolutionHasher struct {
	Solutions []uint64
}

// Name returns the stub name.
func (h SolutionHasher) Name() string {
	return "solutions"
}

// Digest implements miner.Hasher.
func (h SolutionHasher) Digest(_ []byte, nonce uint64) miner.Digest {
	d := NonceDigest(nonce)
	for _, s := range h.Solutions {
		if s == nonce {
			return d
		}
	}
	d[0] = 0xff
	return d
}

// PanicHasher panics when asked for PanicAt and otherwise behaves like
// NonceHasher{Offset: 1}.
type PanicHasher struct {
	PanicAt uint64
}

// Name returns the stub name.
func (h PanicHasher) Name() string {
	return "panic"
}

// Digest implements miner.Hasher.
func (h PanicHasher) Digest(_ []byte, nonce uint64) miner.Digest {
	if nonce == h.PanicAt {
		panic(fmt.Sprintf("stub hasher failure at nonce %d", nonce))
	}
	return NonceDigest(nonce + 1)
}

// CountingHasher wraps a Hasher and counts its calls.
type CountingHasher struct {
	miner.Hasher
	calls atomic.Uint64
}

// NewCountingHasher wraps h.
func NewCountingHasher(h miner.Hasher) *CountingHasher {
	return &CountingHasher{Hasher: h}
}

// Digest implements miner.Hasher.
func (h *CountingHasher) Digest(header []byte, nonce uint64) miner.Digest {
	h.calls.Add(1)
	return h.Hasher.Digest(header, nonce)
}

// Calls returns the number of digests computed so far.
func (h *CountingHasher) Calls() uint64 {
	return h.calls.Load()
}

// Config returns a CPU search configuration over [0, bound) with the given
// hasher, a 64 byte zero header and target.
func Config(h miner.Hasher, target miner.Target, bound uint64, threads int) *miner.Config {
	cfg := miner.NewConfig()
	cfg.Header = ZeroHeader(64)
	cfg.Hasher = h
	cfg.Target = target
	cfg.Bound = miner.Bound(bound)
	cfg.Threads = threads
	return cfg
}
