// Package config holds the command line configuration and converts it into
// a search configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Amr-9/NonceHunter/internal/logger"
	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
)

// Errors
var (
	ErrNoHeaderSpecified  = errors.New("must specify either --header or --header-file")
	ErrTwoHeaders         = errors.New("--header and --header-file are mutually exclusive")
	ErrNoTargetSpecified  = errors.New("must specify one of --target, --target-dec, --bits or --zero-bits")
	ErrTwoTargets         = errors.New("--target, --target-dec, --bits and --zero-bits are mutually exclusive")
	ErrInvalidHex         = errors.New("invalid hex value")
	ErrInvalidBound       = errors.New("invalid --bound")
	ErrDeviceOutOfRange   = errors.New("--device must be between 0 and 255")
	ErrInvalidLogInterval = errors.New("--log-interval must not be negative")
)

// ZeroBitsUnset marks --zero-bits as not given.
const ZeroBitsUnset = -1

// Config holds the application configuration
type Config struct {
	Device       int    // GPU index, or 255 for the CPU
	Threads      int    // CPU worker count
	Header       string // Search header as hex
	HeaderFile   string // File holding the search header as hex
	Target       string // Target as hex
	TargetDec    string // Target as decimal
	Bits         string // Target as compact nBits, hex
	ZeroBits     int    // Target as required leading zero bits
	Bound        string // Exclusive nonce bound; empty searches all 2^64 nonces
	Algorithm    string
	LocalSize    int
	LaunchSize   int
	EmulateGPU   bool // Run GPU selectors on the software device
	ListDevices  bool
	HighPriority bool // Raise the process scheduling priority
	LogLevel     string
	LogInterval  int // Progress interval in seconds, 0 disables progress
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Device:      int(miner.CPUDevice),
		Threads:     miner.DefaultThreads(),
		ZeroBits:    ZeroBitsUnset,
		Algorithm:   hasher.Keccak256Name,
		LocalSize:   gpu.DefaultLocalSize,
		LaunchSize:  gpu.DefaultLaunchSize,
		LogLevel:    logger.DefaultLevel,
		LogInterval: 1,
	}
}

// Validate checks that the flags are consistent. Values are parsed by
// MinerConfig.
func (c *Config) Validate() error {
	if c.Header == "" && c.HeaderFile == "" {
		return ErrNoHeaderSpecified
	}
	if c.Header != "" && c.HeaderFile != "" {
		return ErrTwoHeaders
	}

	switch n := c.targetSources(); {
	case n == 0:
		return ErrNoTargetSpecified
	case n > 1:
		return ErrTwoTargets
	}

	if c.Device < 0 || c.Device > int(miner.CPUDevice) {
		return fmt.Errorf("%w: got %d", ErrDeviceOutOfRange, c.Device)
	}
	if c.IsCPU() && c.Threads <= 0 {
		return fmt.Errorf("%w: got %d", miner.ErrZeroThreads, c.Threads)
	}
	if c.LogInterval < 0 {
		return ErrInvalidLogInterval
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) targetSources() int {
	n := 0
	for _, set := range []bool{c.Target != "", c.TargetDec != "", c.Bits != "", c.ZeroBits != ZeroBitsUnset} {
		if set {
			n++
		}
	}
	return n
}

// IsCPU reports whether the device selector picks the CPU backend.
func (c *Config) IsCPU() bool {
	return c.Device == int(miner.CPUDevice)
}

// MinerConfig validates c and builds the search configuration.
func (c *Config) MinerConfig() (*miner.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	h, err := hasher.ByName(c.Algorithm)
	if err != nil {
		return nil, err
	}
	header, err := c.GetHeader()
	if err != nil {
		return nil, err
	}
	target, err := c.GetTarget()
	if err != nil {
		return nil, err
	}
	bound, err := c.GetBound()
	if err != nil {
		return nil, err
	}

	mc := miner.NewConfig()
	mc.Device = miner.DeviceSelector(c.Device)
	mc.Threads = c.Threads
	mc.Header = header
	mc.Target = target
	mc.Bound = bound
	mc.Hasher = h
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// Geometry returns the GPU launch shape.
func (c *Config) Geometry() gpu.Geometry {
	return gpu.Geometry{LocalSize: c.LocalSize, LaunchSize: c.LaunchSize}
}

// GetHeader returns the header bytes from --header or --header-file.
func (c *Config) GetHeader() ([]byte, error) {
	if c.HeaderFile != "" {
		content, err := os.ReadFile(c.HeaderFile)
		if err != nil {
			return nil, err
		}
		return decodeHex(string(content))
	}
	if c.Header != "" {
		return decodeHex(c.Header)
	}
	// This should not happen if validation passes
	return nil, ErrNoHeaderSpecified
}

// GetTarget parses whichever target flag is set.
func (c *Config) GetTarget() (miner.Target, error) {
	switch {
	case c.Target != "":
		return miner.TargetFromHex(c.Target)
	case c.TargetDec != "":
		return miner.TargetFromDecimal(c.TargetDec)
	case c.Bits != "":
		bits, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(c.Bits), "0x"), 16, 32)
		if err != nil {
			return miner.Target{}, fmt.Errorf("%w: bits %q", miner.ErrInvalidTarget, c.Bits)
		}
		return miner.TargetFromCompact(uint32(bits))
	case c.ZeroBits != ZeroBitsUnset:
		if c.ZeroBits < 0 {
			return miner.Target{}, fmt.Errorf("%w: zero bits %d", miner.ErrInvalidTarget, c.ZeroBits)
		}
		return miner.TargetFromZeroBits(uint(c.ZeroBits))
	}
	return miner.Target{}, ErrNoTargetSpecified
}

// GetBound parses --bound as decimal or 0x prefixed hex. An empty bound
// means the full 64 bit space.
func (c *Config) GetBound() (*uint64, error) {
	s := strings.TrimSpace(c.Bound)
	if s == "" {
		return nil, nil
	}
	m, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBound, c.Bound)
	}
	return miner.Bound(m), nil
}

// GetTargetDescription returns a human-readable description of the target
func (c *Config) GetTargetDescription() string {
	switch {
	case c.Target != "":
		return "hex: " + c.Target
	case c.TargetDec != "":
		return "decimal: " + c.TargetDec
	case c.Bits != "":
		return "bits: " + c.Bits
	case c.ZeroBits != ZeroBitsUnset:
		return fmt.Sprintf("%d leading zero bits", c.ZeroBits)
	}
	return "unknown"
}

// decodeHex decodes an even length hex string with an optional 0x prefix,
// ignoring surrounding whitespace.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(digits))
	}
	for _, ch := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF", ch) {
			return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidHex, ch)
		}
	}
	return common.FromHex(digits), nil
}
