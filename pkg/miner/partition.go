package miner

import (
	"fmt"
	"math"
	"math/bits"
)

// NonceRange is the half-open interval [Start, End) of nonces owned by one
// worker. When Unbounded is set the range runs to the top of the 64-bit
// space, [Start, 2^64), and End is ignored.
type NonceRange struct {
	Start     uint64
	End       uint64
	Unbounded bool
}

// Last returns the inclusive last nonce of the range, and false when the
// range is empty.
func (r NonceRange) Last() (uint64, bool) {
	if r.Unbounded {
		return math.MaxUint64, true
	}
	if r.End <= r.Start {
		return 0, false
	}
	return r.End - 1, true
}

// Empty reports whether the range holds no nonce.
func (r NonceRange) Empty() bool {
	_, ok := r.Last()
	return !ok
}

// Len returns the number of nonces in the range. The one range that can
// hold 2^64 nonces saturates at math.MaxUint64.
func (r NonceRange) Len() uint64 {
	last, ok := r.Last()
	if !ok {
		return 0
	}
	n := last - r.Start
	if n == math.MaxUint64 {
		return n
	}
	return n + 1
}

// Contains reports whether nonce lies in the range.
func (r NonceRange) Contains(nonce uint64) bool {
	last, ok := r.Last()
	return ok && nonce >= r.Start && nonce <= last
}

// String formats the range in interval notation.
func (r NonceRange) String() string {
	if r.Unbounded {
		return fmt.Sprintf("[%d, 2^64)", r.Start)
	}
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Partition splits the nonce space into n disjoint contiguous ranges whose
// union is [0, *bound), or [0, 2^64) when bound is nil. Range sizes differ by
// at most one: the first M mod n ranges hold ceil(M/n) nonces, the rest
// floor(M/n). The result depends only on the arguments.
func Partition(n int, bound *uint64) ([]NonceRange, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, n)
	}
	workers := uint64(n)

	var size, extra uint64
	if bound == nil {
		if workers == 1 {
			return []NonceRange{{Start: 0, Unbounded: true}}, nil
		}
		// 2^64 / n as a 128-bit division with hi=1, lo=0.
		size, extra = bits.Div64(1, 0, workers)
	} else {
		size, extra = *bound/workers, *bound%workers
	}

	ranges := make([]NonceRange, n)
	var start uint64
	for i := uint64(0); i < workers; i++ {
		length := size
		if i < extra {
			length++
		}
		end, carry := bits.Add64(start, length, 0)
		if carry != 0 {
			// Only the final range of the full space reaches 2^64.
			ranges[i] = NonceRange{Start: start, Unbounded: true}
			continue
		}
		ranges[i] = NonceRange{Start: start, End: end}
		start = end
	}
	return ranges, nil
}
