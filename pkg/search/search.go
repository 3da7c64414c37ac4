// Package search picks the backend for a search configuration and runs it.
//
// A configuration whose device selector is miner.CPUDevice runs on the CPU
// worker pool; any other selector names the GPU device to use. A GPU that
// cannot be opened is an error, the search never falls back to the CPU.
package search

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/cpu"
	"github.com/Amr-9/NonceHunter/pkg/miner/gpu"
)

type options struct {
	opener   gpu.Opener
	geometry gpu.Geometry
	logger   log.Logger
}

// Option configures backend construction.
type Option func(*options)

// WithOpener sets how GPU devices are opened, e.g. gpu.EmulatorOpener.
func WithOpener(opener gpu.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithGeometry sets the GPU launch shape.
func WithGeometry(geom gpu.Geometry) Option {
	return func(o *options) {
		o.geometry = geom
	}
}

// WithLogger sets the logger handed to the backend.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		opener:   gpu.Open,
		geometry: gpu.DefaultGeometry(),
		logger:   log.Root(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewBackend validates cfg and returns the backend its device selector
// asks for, so the caller can poll Stats while Run executes.
func NewBackend(cfg *miner.Config, opts ...Option) (miner.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if cfg.Device.IsCPU() {
		return cpu.New(cpu.WithLogger(o.logger)), nil
	}
	return newGPU(int(cfg.Device), o), nil
}

func newGPU(index int, o *options) *gpu.GPUBackend {
	return gpu.New(index,
		gpu.WithOpener(o.opener),
		gpu.WithGeometry(o.geometry),
		gpu.WithLogger(o.logger))
}

// Run searches cfg's nonce space on the backend its device selector names.
func Run(ctx context.Context, cfg *miner.Config, opts ...Option) (miner.Outcome, error) {
	b, err := NewBackend(cfg, opts...)
	if err != nil {
		return miner.Outcome{}, err
	}
	return b.Run(ctx, cfg)
}

// RunCPU searches on the CPU regardless of cfg.Device.
func RunCPU(ctx context.Context, cfg *miner.Config, opts ...Option) (miner.Outcome, error) {
	o := newOptions(opts)
	return cpu.New(cpu.WithLogger(o.logger)).Run(ctx, cfg)
}

// RunGPU searches on GPU cfg.Device. The CPU selector is not a GPU index
// and fails with miner.ErrInvalidDevice.
func RunGPU(ctx context.Context, cfg *miner.Config, opts ...Option) (miner.Outcome, error) {
	if cfg.Device.IsCPU() {
		return miner.Outcome{}, fmt.Errorf("%w: %s is not a GPU", miner.ErrInvalidDevice, cfg.Device)
	}
	return newGPU(int(cfg.Device), newOptions(opts)).Run(ctx, cfg)
}
