package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/NonceHunter/internal/logger"
	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
	"github.com/Amr-9/NonceHunter/pkg/search"
)

func emulatorOptions() []search.Option {
	return []search.Option{
		search.WithOpener(gpu.EmulatorOpener(1)),
		search.WithGeometry(gpu.Geometry{LocalSize: 64, LaunchSize: 1024}),
		search.WithLogger(logger.Discard()),
	}
}

func TestCasesAgreeOnEmulator(t *testing.T) {
	h := hasher.NewKeccak256()
	tcs := cases(h)

	passed, results := verify(context.Background(), h, 0, tcs, emulatorOptions())
	require.Len(t, results, len(tcs))
	for _, r := range results {
		assert.NoError(t, r.err, r.name)
		assert.True(t, r.match, r.name)
	}
	assert.True(t, passed)
	assert.Equal(t, miner.Exhausted, results[len(results)-1].gpu.Status)
}

func TestVerifyReportsGPUErrors(t *testing.T) {
	h := hasher.NewKeccak256()
	tcs := cases(h)[:1]

	passed, results := verify(context.Background(), h, 5, tcs, emulatorOptions())
	assert.False(t, passed)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].err, miner.ErrInvalidDevice)
}

func TestMismatchedStatusFails(t *testing.T) {
	h := hasher.NewKeccak256()
	tc := cases(h)[0]
	tc.want = miner.Exhausted

	r := runCase(context.Background(), h, 0, tc, emulatorOptions())
	require.NoError(t, r.err)
	assert.False(t, r.match)
}
