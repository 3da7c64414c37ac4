package cpu

import (
	"bytes"
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
	"github.com/Amr-9/NonceHunter/pkg/miner/minertest"
)

func newTestBackend() *CPUBackend {
	return New(WithLogger(log.NewLogger(log.DiscardHandler())))
}

// scalarOnly hides the four-way path of a BatchHasher.
type scalarOnly struct {
	miner.Hasher
}

// uniqueTarget returns the smallest digest of the nonces in [0, bound) as a
// target, which makes its nonce the only solution in that space.
func uniqueTarget(h miner.Hasher, header []byte, bound uint64) (miner.Target, uint64) {
	best := h.Digest(header, 0)
	var bestNonce uint64
	for n := uint64(1); n < bound; n++ {
		d := h.Digest(header, n)
		if bytes.Compare(d[:], best[:]) < 0 {
			best, bestNonce = d, n
		}
	}
	return miner.TargetFromDigest(best), bestNonce
}

func TestRunFindsNonce42(t *testing.T) {
	h := minertest.SolutionHasher{Solutions: []uint64{42}}
	cfg := minertest.Config(h, miner.TargetFromUint64(42), 100, 4)

	outcome, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Success, outcome.Status)
	assert.Equal(t, uint64(42), outcome.Nonce)
	assert.Equal(t, minertest.NonceDigest(42), outcome.Digest)
	assert.Equal(t, "CPU", outcome.Backend)
	assert.NotZero(t, outcome.Attempts)
}

func TestRunDeterministic(t *testing.T) {
	h := hasher.NewKeccak256()
	header := minertest.ZeroHeader(64)
	target, want := uniqueTarget(h, header, 5000)

	cfg := minertest.Config(h, target, 5000, 4)
	first, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, miner.Success, first.Status)
	assert.Equal(t, want, first.Nonce)
	assert.Equal(t, h.Digest(header, want), first.Digest)

	for i := 0; i < 5; i++ {
		again, err := newTestBackend().Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.Nonce, again.Nonce)
		assert.Equal(t, first.Digest, again.Digest)
	}
}

func TestRunBatchedMatchesScalar(t *testing.T) {
	h := hasher.NewKeccak256()
	header := minertest.ZeroHeader(64)
	target, want := uniqueTarget(h, header, 4099)

	for _, hh := range []miner.Hasher{h, scalarOnly{h}} {
		cfg := minertest.Config(hh, target, 4099, 3)
		outcome, err := newTestBackend().Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, miner.Success, outcome.Status)
		assert.Equal(t, want, outcome.Nonce)
	}
}

func TestRunExhausted(t *testing.T) {
	tests := []struct {
		name   string
		hasher miner.Hasher
	}{
		{name: "stub", hasher: minertest.NonceHasher{Offset: 1}},
		{name: "keccak256", hasher: hasher.NewKeccak256()},
		{name: "sha256d", hasher: hasher.NewSHA256d()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minertest.Config(tt.hasher, miner.TargetFromUint64(0), 1000, 4)
			outcome, err := newTestBackend().Run(context.Background(), cfg)
			require.NoError(t, err)
			assert.Equal(t, miner.Exhausted, outcome.Status)
			assert.Equal(t, uint64(1000), outcome.Attempts)
		})
	}
}

func TestRunEmptySpace(t *testing.T) {
	cfg := minertest.Config(minertest.NonceHasher{}, miner.MaxTarget(), 0, 4)
	outcome, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Exhausted, outcome.Status)
	assert.Zero(t, outcome.Attempts)
}

func TestRunMoreThreadsThanNonces(t *testing.T) {
	h := minertest.SolutionHasher{Solutions: []uint64{2}}
	cfg := minertest.Config(h, miner.TargetFromUint64(2), 3, 16)
	outcome, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Success, outcome.Status)
	assert.Equal(t, uint64(2), outcome.Nonce)
}

func TestRunCancelled(t *testing.T) {
	cfg := minertest.Config(hasher.NewKeccak256(), miner.TargetFromUint64(0), 1<<32, 4)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	begin := time.Now()
	outcome, err := newTestBackend().Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Cancelled, outcome.Status)
	assert.Less(t, time.Since(begin), 5*time.Second)
}

func TestRunAlreadyCancelled(t *testing.T) {
	counting := minertest.NewCountingHasher(minertest.NonceHasher{})
	cfg := minertest.Config(counting, miner.MaxTarget(), 1000, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := newTestBackend().Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Cancelled, outcome.Status)
	assert.Zero(t, counting.Calls())
}

func TestRunWorkerPanicFailsSearch(t *testing.T) {
	cfg := minertest.Config(minertest.PanicHasher{PanicAt: 700}, miner.TargetFromUint64(0), 1000, 4)

	_, err := newTestBackend().Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, miner.IsWorkerError(err))
	assert.ErrorIs(t, err, miner.ErrWorkerPanic)
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := minertest.Config(minertest.NonceHasher{}, miner.MaxTarget(), 10, 0)
	_, err := newTestBackend().Run(context.Background(), cfg)
	assert.ErrorIs(t, err, miner.ErrZeroThreads)

	cfg = minertest.Config(minertest.NonceHasher{}, miner.MaxTarget(), 10, 2)
	cfg.Header = nil
	_, err = newTestBackend().Run(context.Background(), cfg)
	assert.ErrorIs(t, err, miner.ErrEmptyHeader)
	assert.True(t, miner.IsConfigError(err))
}

func TestRunFullSpace(t *testing.T) {
	solution := uint64(1<<63 + 5)
	h := minertest.SolutionHasher{Solutions: []uint64{solution}}
	cfg := minertest.Config(h, miner.TargetFromUint64(solution), 0, 2)
	cfg.Bound = nil

	outcome, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Success, outcome.Status)
	assert.Equal(t, solution, outcome.Nonce)
}

func TestRunStopsOtherWorkers(t *testing.T) {
	// Every worker's first nonce is a solution, so all should stop almost
	// immediately instead of walking 2^30 nonces.
	counting := minertest.NewCountingHasher(minertest.SolutionHasher{Solutions: []uint64{0, 1 << 28, 2 << 28, 3 << 28}})
	cfg := minertest.Config(counting, miner.TargetFromUint64(3<<28), 1<<30, 4)

	outcome, err := newTestBackend().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, miner.Success, outcome.Status)
	assert.Less(t, counting.Calls(), uint64(1<<28))
}

func TestStatsDuringRun(t *testing.T) {
	b := newTestBackend()
	assert.Equal(t, miner.Stats{}, b.Stats())

	cfg := minertest.Config(minertest.NonceHasher{Offset: 1}, miner.TargetFromUint64(0), 20000, 2)
	_, err := b.Run(context.Background(), cfg)
	require.NoError(t, err)

	stats := b.Stats()
	assert.Equal(t, uint64(20000), stats.Attempts)
	assert.Greater(t, stats.ElapsedSecs, 0.0)
}

func TestWorkStopsAtTopOfSpace(t *testing.T) {
	var attempts atomic.Uint64
	s := &search{
		header:   minertest.ZeroHeader(8),
		target:   miner.TargetFromUint64(0),
		hasher:   minertest.SolutionHasher{},
		attempts: &attempts,
	}
	result := s.work(miner.NonceRange{Start: math.MaxUint64 - 5, Unbounded: true})
	assert.False(t, result.Found)
	assert.Equal(t, uint64(6), attempts.Load())

	k := hasher.NewKeccak256()
	attempts.Store(0)
	s = &search{
		header:   minertest.ZeroHeader(8),
		target:   miner.TargetFromUint64(0),
		hasher:   k,
		batch:    k,
		attempts: &attempts,
	}
	result = s.work(miner.NonceRange{Start: math.MaxUint64 - 9, Unbounded: true})
	assert.False(t, result.Found)
	assert.Equal(t, uint64(10), attempts.Load())
}

func TestWorkHonoursStopFlag(t *testing.T) {
	var attempts atomic.Uint64
	s := &search{
		header:   minertest.ZeroHeader(8),
		target:   miner.TargetFromUint64(0),
		hasher:   minertest.SolutionHasher{},
		attempts: &attempts,
	}
	s.halt()
	result := s.work(miner.NonceRange{Start: 0, End: 1000})
	assert.False(t, result.Found)
	assert.Zero(t, attempts.Load())
	assert.Equal(t, causeNone, s.cause.Load())
}

func TestStopFirstCauseWins(t *testing.T) {
	s := &search{}
	s.stop(causeFound)
	s.stop(causeCancelled)
	assert.Equal(t, causeFound, s.cause.Load())
	assert.True(t, s.stopped.Load())
}

func TestPickWinnerSmallestNonce(t *testing.T) {
	results := []miner.WorkerResult{
		{},
		{Found: true, Nonce: 900, Digest: minertest.NonceDigest(900)},
		{Found: true, Nonce: 310, Digest: minertest.NonceDigest(310)},
		{},
		{Found: true, Nonce: 512, Digest: minertest.NonceDigest(512)},
	}
	outcome := pickWinner(results)
	assert.Equal(t, miner.Success, outcome.Status)
	assert.Equal(t, uint64(310), outcome.Nonce)
	assert.Equal(t, minertest.NonceDigest(310), outcome.Digest)

	assert.Equal(t, miner.Exhausted, pickWinner(make([]miner.WorkerResult, 3)).Status)
}
