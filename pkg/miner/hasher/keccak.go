package hasher

import (
	"encoding/binary"

	"github.com/cloudflare/circl/simd/keccakf1600"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

const (
	// NonceWordLen is the width of the nonce field appended to the header:
	// a 32 byte big endian word, the abi.encodePacked layout of a uint256.
	NonceWordLen = 32

	// KeccakRate is the Keccak-256 sponge rate in bytes.
	KeccakRate = 136

	// MaxSingleBlockHeader is the longest header for which header plus
	// nonce word and padding fit one Keccak block.
	MaxSingleBlockHeader = KeccakRate - 1 - NonceWordLen
)

// Keccak256 hashes header || uint256(nonce) with legacy Keccak-256, the
// Ethereum hashing convention. It is the algorithm the GPU kernel runs.
type Keccak256 struct{}

var _ miner.BatchHasher = Keccak256{}

// NewKeccak256 creates a Keccak-256 hasher.
func NewKeccak256() Keccak256 {
	return Keccak256{}
}

// Name returns the algorithm name.
func (Keccak256) Name() string {
	return Keccak256Name
}

// Digest implements miner.Hasher.
func (Keccak256) Digest(header []byte, nonce uint64) miner.Digest {
	msg := make([]byte, len(header)+NonceWordLen)
	copy(msg, header)
	binary.BigEndian.PutUint64(msg[len(msg)-8:], nonce)

	var d miner.Digest
	h := crypto.NewKeccakState()
	h.Write(msg)
	h.Read(d[:])
	return d
}

// DigestX4 implements miner.BatchHasher with the four-way interleaved
// Keccak-f[1600] permutation. Headers longer than MaxSingleBlockHeader fall
// back to four scalar digests.
func (k Keccak256) DigestX4(header []byte, nonces *[4]uint64, out *[4]miner.Digest) {
	if len(header) > MaxSingleBlockHeader {
		for i, nonce := range nonces {
			out[i] = k.Digest(header, nonce)
		}
		return
	}

	block := KeccakBlock(header)
	noncePos := len(header) + NonceWordLen - 8

	var state keccakf1600.StateX4
	a := state.Initialize(false)
	for j, nonce := range nonces {
		binary.BigEndian.PutUint64(block[noncePos:], nonce)
		for i := 0; i < KeccakRate/8; i++ {
			// Lane i of instance j lives at a[4*i+j].
			a[4*i+j] = binary.LittleEndian.Uint64(block[8*i:])
		}
	}
	state.Permute()

	for j := range out {
		for i := 0; i < miner.DigestLength/8; i++ {
			binary.LittleEndian.PutUint64(out[j][8*i:], a[4*i+j])
		}
	}
}

// KeccakBlock returns the padded single Keccak-256 input block for header
// with a zero nonce word. The nonce occupies the 8 bytes ending at
// len(header)+NonceWordLen, big endian. header must not exceed
// MaxSingleBlockHeader.
func KeccakBlock(header []byte) [KeccakRate]byte {
	var block [KeccakRate]byte
	n := copy(block[:], header)
	block[n+NonceWordLen] ^= 0x01
	block[KeccakRate-1] ^= 0x80
	return block
}
