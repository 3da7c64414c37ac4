//go:build !opencl
// +build !opencl

package gpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
)

func TestOpenWithoutOpenCL(t *testing.T) {
	_, err := Open(0, hasher.NewKeccak256(), DefaultGeometry())
	assert.ErrorIs(t, err, miner.ErrGPUNotCompiled)
	assert.True(t, miner.IsDeviceError(err))
	assert.False(t, Available())

	_, err = ListDevices()
	assert.ErrorIs(t, err, miner.ErrGPUNotCompiled)
}

func TestDefaultBackendWithoutOpenCL(t *testing.T) {
	b := New(0, WithLogger(quietLogger))
	cfg := gpuConfig(hasher.NewKeccak256(), miner.MaxTarget(), 10)
	_, err := b.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, miner.ErrGPUNotCompiled)
}
