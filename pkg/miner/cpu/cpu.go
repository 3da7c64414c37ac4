// Package cpu runs the nonce search on a fixed pool of goroutines, one per
// partitioned nonce range, started together and joined together.
package cpu

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// flushInterval is how many digests a worker computes before adding them to
// the shared attempt counter.
const flushInterval = 4096

// Why the workers were told to stop. The first cause stored wins.
const (
	causeNone int32 = iota
	causeFound
	causeCancelled
	causeCompleted
)

// CPUBackend implements miner.Backend with CPU worker goroutines.
// A CPUBackend runs one search at a time.
type CPUBackend struct {
	attempts  atomic.Uint64 // Digests computed in the current search
	startTime atomic.Int64  // Unix nanoseconds when the current search started
	logger    log.Logger
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithLogger sets the logger; the default is the root logger.
func WithLogger(logger log.Logger) Option {
	return func(b *CPUBackend) {
		b.logger = logger
	}
}

// New creates a CPU backend.
func New(opts ...Option) *CPUBackend {
	b := &CPUBackend{logger: log.Root()}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.New("backend", "cpu")
	return b
}

// Name returns the implementation name.
func (b *CPUBackend) Name() string {
	return "CPU"
}

// Stats returns the current performance statistics.
func (b *CPUBackend) Stats() miner.Stats {
	var start time.Time
	if ns := b.startTime.Load(); ns != 0 {
		start = time.Unix(0, ns)
	}
	return miner.NewStats(b.attempts.Load(), start)
}

// Run searches cfg's nonce space with cfg.Threads workers.
//
// Each worker walks its range in increasing order. The first worker to find
// a solution raises the shared stop flag and every other worker leaves its
// loop before its next digest. When several workers find solutions in the
// same instant the smallest nonce among them is returned. A worker whose
// range holds a smaller solution may not have reached it yet, so CPU and GPU
// backends report the same nonce only when the solution is unique.
//
// A cancelled ctx yields Cancelled even if some worker found a solution
// after the cancellation, and a panicking worker fails the whole search.
func (b *CPUBackend) Run(ctx context.Context, cfg *miner.Config) (miner.Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return miner.Outcome{}, err
	}
	if cfg.Threads <= 0 {
		return miner.Outcome{}, fmt.Errorf("%w: got %d", miner.ErrZeroThreads, cfg.Threads)
	}
	ranges, err := miner.Partition(cfg.Threads, cfg.Bound)
	if err != nil {
		return miner.Outcome{}, err
	}

	start := time.Now()
	b.attempts.Store(0)
	b.startTime.Store(start.UnixNano())

	if ctx.Err() != nil {
		return b.outcome(miner.Outcome{Status: miner.Cancelled}, start), nil
	}

	s := &search{
		header:   bytes.Clone(cfg.Header),
		target:   cfg.Target,
		hasher:   cfg.Hasher,
		attempts: &b.attempts,
	}
	if batch, ok := cfg.Hasher.(miner.BatchHasher); ok {
		s.batch = batch
	}

	b.logger.Info("Starting CPU search",
		"threads", len(ranges), "cores", cpuid.CPU.PhysicalCores, "cpu", cpuid.CPU.BrandName,
		"algorithm", cfg.Hasher.Name(), "space", cfg.SpaceString(), "target", cfg.Target.String(),
		"batched", s.batch != nil)

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.stop(causeCancelled)
		case <-finished:
		}
	}()

	results := make([]miner.WorkerResult, len(ranges))
	var g errgroup.Group
	for i, r := range ranges {
		b.logger.Trace("Worker range", "worker", i, "range", r)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					s.halt()
					err = fmt.Errorf("%w: worker %d: %v", miner.ErrWorkerPanic, i, p)
				}
			}()
			results[i] = s.work(r)
			return nil
		})
	}
	err = g.Wait()
	s.stop(causeCompleted)
	close(finished)

	if err != nil {
		b.logger.Error("CPU search failed", "err", err)
		return miner.Outcome{}, err
	}

	outcome := miner.Outcome{Status: miner.Exhausted}
	switch s.cause.Load() {
	case causeCancelled:
		outcome.Status = miner.Cancelled
	case causeFound:
		outcome = pickWinner(results)
	}
	outcome = b.outcome(outcome, start)

	b.logger.Info("CPU search finished", "status", outcome.Status, "nonce", outcome.Nonce,
		"attempts", outcome.Attempts, "elapsed", outcome.Elapsed)
	return outcome, nil
}

func (b *CPUBackend) outcome(o miner.Outcome, start time.Time) miner.Outcome {
	o.Attempts = b.attempts.Load()
	o.Elapsed = time.Since(start)
	o.Backend = b.Name()
	return o
}

// pickWinner returns the found result with the smallest nonce.
func pickWinner(results []miner.WorkerResult) miner.Outcome {
	var winner *miner.WorkerResult
	for i := range results {
		r := &results[i]
		if r.Found && (winner == nil || r.Nonce < winner.Nonce) {
			winner = r
		}
	}
	if winner == nil {
		return miner.Outcome{Status: miner.Exhausted}
	}
	return miner.Outcome{Status: miner.Success, Nonce: winner.Nonce, Digest: winner.Digest}
}
