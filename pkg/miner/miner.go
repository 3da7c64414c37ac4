// Package miner defines the shared types of the proof-of-work nonce search.
// The CPU and GPU backends both implement Backend, and both use the same
// Hasher and Target comparison so their results are interchangeable.
package miner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
)

// DeviceSelector picks the execution backend: CPUDevice for the CPU path,
// any other value is the index of a GPU device.
type DeviceSelector uint8

// CPUDevice is the reserved selector value routing a search to the CPU.
const CPUDevice DeviceSelector = 255

// IsCPU reports whether the selector routes to the CPU backend.
func (d DeviceSelector) IsCPU() bool {
	return d == CPUDevice
}

// String returns "cpu" or "gpu:<index>".
func (d DeviceSelector) String() string {
	if d.IsCPU() {
		return "cpu"
	}
	return fmt.Sprintf("gpu:%d", uint8(d))
}

// MaxHeaderLength is the largest header any backend accepts.
const MaxHeaderLength = 1024

// Config is the input of one search invocation.
type Config struct {
	Device  DeviceSelector // CPUDevice or a GPU device index
	Threads int            // Worker count for the CPU backend
	Header  []byte         // Input bytes hashed together with every nonce
	Target  Target         // Largest digest that counts as a solution
	Bound   *uint64        // Search [0, *Bound); nil searches all 2^64 nonces
	Hasher  Hasher         // Digest primitive shared by every backend
}

// NewConfig returns a CPU configuration using every available core.
// The caller still has to supply the header and target.
func NewConfig() *Config {
	return &Config{
		Device:  CPUDevice,
		Threads: DefaultThreads(),
	}
}

// DefaultThreads is the number of logical cores reported by cpuid, or
// runtime.NumCPU when cpuid cannot detect them.
func DefaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Bound is a convenience for filling Config.Bound.
func Bound(m uint64) *uint64 {
	return &m
}

// Validate checks the parts of the configuration every backend relies on.
// Thread count is only checked for the CPU selector.
func (c *Config) Validate() error {
	if c.Hasher == nil {
		return ErrMissingHasher
	}
	if len(c.Header) == 0 {
		return ErrEmptyHeader
	}
	if len(c.Header) > MaxHeaderLength {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrHeaderTooLong, len(c.Header), MaxHeaderLength)
	}
	if c.Device.IsCPU() && c.Threads <= 0 {
		return fmt.Errorf("%w: got %d", ErrZeroThreads, c.Threads)
	}
	return nil
}

// SpaceString describes the configured nonce space for logs.
func (c *Config) SpaceString() string {
	if c.Bound == nil {
		return "[0, 2^64)"
	}
	return fmt.Sprintf("[0, %d)", *c.Bound)
}

// Status is the terminal state of a search.
type Status int

const (
	Success   Status = iota // A nonce meeting the target was found
	Exhausted               // The whole nonce space holds no solution
	Cancelled               // The caller stopped the search first
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the single result of a search invocation.
// Nonce and Digest are only meaningful when Status is Success.
type Outcome struct {
	Status   Status
	Nonce    uint64
	Digest   Digest
	Attempts uint64        // Digests computed, including discarded work
	Elapsed  time.Duration // Wall time of the search
	Backend  string        // Name of the backend that ran it
}

// Found reports whether the outcome carries a solution.
func (o Outcome) Found() bool {
	return o.Status == Success
}

// WorkerResult is what one worker reports after its loop ends.
type WorkerResult struct {
	Found  bool
	Nonce  uint64
	Digest Digest
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // Total number of digests computed
	HashRate    float64 // Hashes per second since start
	ElapsedSecs float64 // Time elapsed since start
}

// NewStats derives a Stats snapshot from a counter and a start time.
func NewStats(attempts uint64, start time.Time) Stats {
	if start.IsZero() {
		return Stats{Attempts: attempts}
	}
	elapsed := time.Since(start).Seconds()
	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}
	return Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
	}
}

// Backend is one execution path of the search.
// Implementations are the CPU worker pool and the GPU host driver.
type Backend interface {
	// Run searches the configured nonce space until a solution is found,
	// the space is exhausted or ctx is cancelled. Errors are returned for
	// invalid configuration, device failures and crashed workers; they are
	// never reported as Exhausted.
	Run(ctx context.Context, cfg *Config) (Outcome, error)

	// Stats returns the current performance statistics.
	// This method is safe to call concurrently from any goroutine.
	Stats() Stats

	// Name returns the implementation name (e.g., "CPU", "GPU (OpenCL)").
	Name() string
}
