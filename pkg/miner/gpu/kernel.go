package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
)

//go:embed kernels/keccak_search.cl
var kernelSource string

// KernelName is the entry point of the embedded search kernel.
const KernelName = "keccak_search"

// blockLanes is the number of 64 bit lanes in one Keccak-256 input block.
const blockLanes = hasher.KeccakRate / 8

// KernelSource returns the OpenCL C source of the Keccak-256 search kernel.
func KernelSource() string {
	return kernelSource
}

// KernelParams holds the read-only kernel inputs of one search.
type KernelParams struct {
	// Block is the padded input block with a zero nonce word, as little
	// endian lanes.
	Block [blockLanes]uint64

	// NoncePos is the byte offset of the 8 low-order nonce bytes in Block.
	// Work items XOR their nonce there, big endian.
	NoncePos uint32

	// Target holds the target as four 64 bit words, most significant first.
	Target [4]uint64
}

// NewKernelParams prepares the kernel inputs for header and target. The
// header must fit a single Keccak block.
func NewKernelParams(header []byte, target *miner.Target) (KernelParams, error) {
	if len(header) > hasher.MaxSingleBlockHeader {
		return KernelParams{}, fmt.Errorf("%w: %d bytes, the GPU kernel accepts at most %d",
			miner.ErrHeaderTooLong, len(header), hasher.MaxSingleBlockHeader)
	}

	var p KernelParams
	block := hasher.KeccakBlock(header)
	for i := range p.Block {
		p.Block[i] = binary.LittleEndian.Uint64(block[8*i:])
	}
	p.NoncePos = uint32(len(header) + hasher.NonceWordLen - 8)
	p.Target = TargetWords(target)
	return p, nil
}

// TargetWords splits t into four 64 bit words, most significant first.
func TargetWords(t *miner.Target) [4]uint64 {
	b := t.Bytes()
	var w [4]uint64
	for i := range w {
		w[i] = binary.BigEndian.Uint64(b[8*i:])
	}
	return w
}

// meetsWords compares d with a target split by TargetWords, word by word
// from the most significant end, the way the kernel does.
func meetsWords(d miner.Digest, target *[4]uint64) bool {
	for i := range target {
		v := binary.BigEndian.Uint64(d[8*i:])
		if v != target[i] {
			return v < target[i]
		}
	}
	return true
}
