package miner

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Target is the largest digest value that counts as a solution. It has the
// digest's full 256-bit width; a lower target is a harder search.
type Target struct {
	v uint256.Int
}

// MaxTarget accepts every digest.
func MaxTarget() Target {
	var t Target
	t.v.SetAllOne()
	return t
}

// TargetFromUint64 builds a small target, mainly for tests and stub hashers.
func TargetFromUint64(u uint64) Target {
	var t Target
	t.v.SetUint64(u)
	return t
}

// TargetFromDigest reads a digest-shaped big endian value as a target.
func TargetFromDigest(d Digest) Target {
	var t Target
	t.v.SetBytes32(d[:])
	return t
}

// TargetFromHex parses a big endian hex target. The 0x prefix is optional,
// leading zeros are allowed and at most 64 hex digits are accepted.
func TargetFromHex(s string) (Target, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return Target{}, fmt.Errorf("%w: empty hex value", ErrInvalidTarget)
	}
	for _, c := range digits {
		if !isHexDigit(c) {
			return Target{}, fmt.Errorf("%w: %q is not hex", ErrInvalidTarget, s)
		}
	}
	b := common.FromHex(digits)
	if len(b) > DigestLength {
		return Target{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidTarget, len(b), DigestLength)
	}
	var t Target
	t.v.SetBytes(b)
	return t, nil
}

// TargetFromDecimal parses a base 10 target.
func TargetFromDecimal(s string) (Target, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return Target{v: *v}, nil
}

// TargetFromCompact expands a Bitcoin style compact difficulty ("nBits").
// Negative encodings and values wider than 256 bits are rejected.
func TargetFromCompact(bits uint32) (Target, error) {
	b := blockchain.CompactToBig(bits)
	if b.Sign() < 0 {
		return Target{}, fmt.Errorf("%w: compact 0x%08x is negative", ErrInvalidTarget, bits)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Target{}, fmt.Errorf("%w: compact 0x%08x overflows 256 bits", ErrInvalidTarget, bits)
	}
	return Target{v: *v}, nil
}

// TargetFromZeroBits returns the target that requires at least n leading
// zero bits in the digest.
func TargetFromZeroBits(n uint) (Target, error) {
	if n > 8*DigestLength {
		return Target{}, fmt.Errorf("%w: %d leading zero bits exceeds %d", ErrInvalidTarget, n, 8*DigestLength)
	}
	t := MaxTarget()
	if n == 8*DigestLength {
		t.v.Clear()
		return t, nil
	}
	t.v.Rsh(&t.v, n)
	return t, nil
}

// Compact returns the target in compact "nBits" form. The encoding is lossy
// for targets with more than 23 significant bits.
func (t *Target) Compact() uint32 {
	return blockchain.BigToCompact(t.v.ToBig())
}

// Bytes returns the target as a 32 byte big endian value.
func (t *Target) Bytes() [DigestLength]byte {
	return t.v.Bytes32()
}

// Int returns a copy of the target value.
func (t *Target) Int() *uint256.Int {
	return new(uint256.Int).Set(&t.v)
}

// Cmp compares two targets.
func (t *Target) Cmp(o *Target) int {
	return t.v.Cmp(&o.v)
}

// String renders the target as 64 hex digits.
func (t *Target) String() string {
	b := t.v.Bytes32()
	return fmt.Sprintf("%x", b[:])
}

// ExpectedAttempts estimates the mean number of digests needed to find a
// solution with a uniformly distributed hash: 2^256 / (target + 1).
func (t *Target) ExpectedAttempts() float64 {
	denominator := new(big.Float).SetInt(t.v.ToBig())
	denominator.Add(denominator, big.NewFloat(1))
	numerator := new(big.Float).SetMantExp(big.NewFloat(1), 8*DigestLength)
	quotient, _ := new(big.Float).Quo(numerator, denominator).Float64()
	if math.IsInf(quotient, 0) {
		return math.MaxFloat64
	}
	return quotient
}

// MeetsTarget reports whether d <= t, both read as 256-bit big endian
// unsigned integers. The whole width takes part in the comparison.
func MeetsTarget(d Digest, t *Target) bool {
	var v uint256.Int
	v.SetBytes32(d[:])
	return !v.Gt(&t.v)
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
