package gpu

import (
	"fmt"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// Launch geometry defaults.
const (
	DefaultLocalSize  = 256
	DefaultLaunchSize = 1 << 20

	// MaxLaunchSize keeps launch relative offsets below NoWinner.
	MaxLaunchSize = 1 << 30
)

// NoWinner is the winner slot value meaning no work item succeeded.
const NoWinner = ^uint32(0)

// Device is one compute device running the search kernel. A Device is used
// by a single host goroutine.
//
// Each work item gid of a launch hashes nonce start+gid and, if the digest
// meets the target, lowers the device winner slot to gid with an atomic
// minimum. After a launch the slot therefore holds the smallest successful
// offset of that launch, or NoWinner.
type Device interface {
	// Name identifies the device in logs.
	Name() string

	// Upload copies the search header and target to device memory. It is
	// called once per search, before the first launch.
	Upload(header []byte, target *miner.Target) error

	// ResetWinner sets the winner slot to NoWinner.
	ResetWinner() error

	// Launch runs count work items starting at nonce start and returns
	// when all of them have completed.
	Launch(start uint64, count uint32) error

	// Winner reads the winner slot.
	Winner() (offset uint32, found bool, err error)

	// Release frees every device resource. The Device is unusable after.
	Release()
}

// Opener opens device index for the given digest function.
type Opener func(index int, h miner.Hasher, geom Geometry) (Device, error)

// Geometry is the launch shape: LocalSize work items per work group and
// LaunchSize work items per kernel launch.
type Geometry struct {
	LocalSize  int
	LaunchSize int
}

// DefaultGeometry returns the default launch shape.
func DefaultGeometry() Geometry {
	return Geometry{LocalSize: DefaultLocalSize, LaunchSize: DefaultLaunchSize}
}

// Normalize validates g and rounds LaunchSize up to a multiple of
// LocalSize. Zero fields take their defaults.
func (g Geometry) Normalize() (Geometry, error) {
	if g.LocalSize == 0 {
		g.LocalSize = DefaultLocalSize
	}
	if g.LaunchSize == 0 {
		g.LaunchSize = DefaultLaunchSize
	}
	if g.LocalSize < 0 || g.LaunchSize < 0 {
		return Geometry{}, fmt.Errorf("%w: local %d, launch %d", miner.ErrInvalidGeometry, g.LocalSize, g.LaunchSize)
	}
	if g.LocalSize > MaxLaunchSize {
		return Geometry{}, fmt.Errorf("%w: local size %d exceeds %d", miner.ErrInvalidGeometry, g.LocalSize, MaxLaunchSize)
	}
	if rem := g.LaunchSize % g.LocalSize; rem != 0 {
		g.LaunchSize += g.LocalSize - rem
	}
	if g.LaunchSize > MaxLaunchSize {
		return Geometry{}, fmt.Errorf("%w: launch size %d exceeds %d", miner.ErrInvalidGeometry, g.LaunchSize, MaxLaunchSize)
	}
	return g, nil
}

// String formats the geometry for logs.
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.LaunchSize/max(g.LocalSize, 1), g.LocalSize)
}

// DeviceInfo describes an available GPU.
type DeviceInfo struct {
	Index        int
	Name         string
	Vendor       string
	MaxWorkGroup int
	ComputeUnits int
	GlobalMem    uint64
}
