// Package gpu runs the nonce search as a sequence of bounded kernel
// launches on a compute device, driven by a single host goroutine.
package gpu

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// GPUBackend implements miner.Backend on one compute device.
// A GPUBackend runs one search at a time.
type GPUBackend struct {
	index  int
	opener Opener
	geom   Geometry
	logger log.Logger

	attempts  atomic.Uint64 // Nonces covered by completed launches
	startTime atomic.Int64  // Unix nanoseconds when the current search started
}

// Option configures a GPUBackend.
type Option func(*GPUBackend)

// WithOpener sets how the device is opened; the default is Open.
func WithOpener(opener Opener) Option {
	return func(b *GPUBackend) {
		b.opener = opener
	}
}

// WithGeometry sets the launch shape; the default is DefaultGeometry.
func WithGeometry(geom Geometry) Option {
	return func(b *GPUBackend) {
		b.geom = geom
	}
}

// WithLogger sets the logger; the default is the root logger.
func WithLogger(logger log.Logger) Option {
	return func(b *GPUBackend) {
		b.logger = logger
	}
}

// New creates a backend for GPU device index. The device is opened at the
// start of every Run and released at its end.
func New(index int, opts ...Option) *GPUBackend {
	b := &GPUBackend{
		index:  index,
		opener: Open,
		geom:   DefaultGeometry(),
		logger: log.Root(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.New("backend", "gpu", "device", index)
	return b
}

// Name returns the implementation name.
func (b *GPUBackend) Name() string {
	return fmt.Sprintf("GPU %d", b.index)
}

// Stats returns the current performance statistics.
func (b *GPUBackend) Stats() miner.Stats {
	var start time.Time
	if ns := b.startTime.Load(); ns != 0 {
		start = time.Unix(0, ns)
	}
	return miner.NewStats(b.attempts.Load(), start)
}

// Run searches cfg's nonce space in increasing order, one launch at a time.
//
// The first launch whose winner slot is set ends the search; since every
// launch reports its smallest successful offset, the result is the
// smallest solution in the space. The winning digest is recomputed on the
// host and checked against the target before it is returned. ctx is
// checked between launches, so cancellation takes effect within one launch.
func (b *GPUBackend) Run(ctx context.Context, cfg *miner.Config) (miner.Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return miner.Outcome{}, err
	}
	geom, err := b.geom.Normalize()
	if err != nil {
		return miner.Outcome{}, err
	}

	start := time.Now()
	b.attempts.Store(0)
	b.startTime.Store(start.UnixNano())

	if ctx.Err() != nil {
		return b.outcome(miner.Outcome{Status: miner.Cancelled}, start), nil
	}

	dev, err := b.opener(b.index, cfg.Hasher, geom)
	if err != nil {
		b.logger.Error("Failed to open GPU device", "err", err)
		return miner.Outcome{}, err
	}
	defer dev.Release()

	header := bytes.Clone(cfg.Header)
	if err := dev.Upload(header, &cfg.Target); err != nil {
		b.logger.Error("Failed to upload search inputs", "err", err)
		return miner.Outcome{}, err
	}

	b.logger.Info("Starting GPU search", "name", dev.Name(), "geometry", geom,
		"algorithm", cfg.Hasher.Name(), "space", cfg.SpaceString(), "target", cfg.Target.String())

	outcome, err := b.search(ctx, dev, cfg, header, geom)
	if err != nil {
		b.logger.Error("GPU search failed", "err", err)
		return miner.Outcome{}, err
	}
	outcome = b.outcome(outcome, start)

	b.logger.Info("GPU search finished", "status", outcome.Status, "nonce", outcome.Nonce,
		"attempts", outcome.Attempts, "elapsed", outcome.Elapsed)
	return outcome, nil
}

func (b *GPUBackend) search(ctx context.Context, dev Device, cfg *miner.Config, header []byte, geom Geometry) (miner.Outcome, error) {
	var next uint64
	for launch := uint64(0); ; launch++ {
		if ctx.Err() != nil {
			return miner.Outcome{Status: miner.Cancelled}, nil
		}

		count := launchCount(next, cfg.Bound, uint32(geom.LaunchSize))
		if count == 0 {
			return miner.Outcome{Status: miner.Exhausted}, nil
		}

		if err := dev.ResetWinner(); err != nil {
			return miner.Outcome{}, err
		}
		if err := dev.Launch(next, count); err != nil {
			return miner.Outcome{}, err
		}
		offset, found, err := dev.Winner()
		if err != nil {
			return miner.Outcome{}, err
		}
		b.attempts.Add(uint64(count))
		b.logger.Debug("Launch complete", "launch", launch, "start", next, "count", count, "found", found)

		if found {
			return verify(cfg, header, next, offset, count)
		}

		next += uint64(count)
		if next == 0 {
			// Wrapped past the top of the 64 bit space.
			return miner.Outcome{Status: miner.Exhausted}, nil
		}
	}
}

// launchCount returns how many nonces the launch starting at next covers.
// Zero means the space is exhausted.
func launchCount(next uint64, bound *uint64, size uint32) uint32 {
	remaining := uint64(math.MaxUint64) - next // one less than what is left of the full space
	if bound != nil {
		if next >= *bound {
			return 0
		}
		remaining = *bound - next - 1
	}
	if remaining < uint64(size) {
		return uint32(remaining + 1)
	}
	return size
}

// verify recomputes the digest of a device reported winner on the host.
func verify(cfg *miner.Config, header []byte, start uint64, offset, count uint32) (miner.Outcome, error) {
	if offset >= count {
		return miner.Outcome{}, fmt.Errorf("%w: winner offset %d outside launch of %d", miner.ErrDeviceMismatch, offset, count)
	}
	nonce := start + uint64(offset)
	digest := cfg.Hasher.Digest(header, nonce)
	if !miner.MeetsTarget(digest, &cfg.Target) {
		return miner.Outcome{}, fmt.Errorf("%w: nonce %d digest %s exceeds target", miner.ErrDeviceMismatch, nonce, digest)
	}
	return miner.Outcome{Status: miner.Success, Nonce: nonce, Digest: digest}, nil
}

func (b *GPUBackend) outcome(o miner.Outcome, start time.Time) miner.Outcome {
	o.Attempts = b.attempts.Load()
	o.Elapsed = time.Since(start)
	o.Backend = b.Name()
	return o
}
