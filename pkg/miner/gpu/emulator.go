package gpu

import (
	"bytes"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// Fault makes an Emulator fail one of its operations.
type Fault int

// Injectable faults.
const (
	FaultNone    Fault = iota
	FaultUpload        // Upload fails with ErrDeviceTransfer
	FaultLaunch        // Launch fails with ErrKernelLaunch
	FaultReadout       // Winner fails with ErrDeviceTransfer
	FaultCorrupt       // Winner reports a successful offset that is not one
)

// Emulator is a software Device. It runs the kernel contract in Go: work
// groups of LocalSize items are spread over goroutines and successful
// items lower the winner slot with a compare-and-swap minimum. It accepts
// any hasher and any header length.
type Emulator struct {
	name    string
	hasher  miner.Hasher
	geom    Geometry
	workers int
	fault   atomic.Int32 // Fault, settable while a search runs

	header []byte
	target [4]uint64
	loaded bool

	winner   atomic.Uint32
	launches atomic.Uint64
	released atomic.Bool
}

var _ Device = (*Emulator)(nil)

// NewEmulator creates an emulated device for h.
func NewEmulator(h miner.Hasher, geom Geometry) *Emulator {
	e := &Emulator{
		name:    "emulator",
		hasher:  h,
		geom:    geom,
		workers: runtime.NumCPU(),
	}
	e.winner.Store(NoWinner)
	return e
}

// EmulatorOpener returns an Opener exposing the given number of emulated
// devices. Indexes outside [0, devices) fail with ErrInvalidDevice.
func EmulatorOpener(devices int) Opener {
	return func(index int, h miner.Hasher, geom Geometry) (Device, error) {
		if index < 0 || index >= devices {
			return nil, fmt.Errorf("%w: %d (%d emulated devices)", miner.ErrInvalidDevice, index, devices)
		}
		e := NewEmulator(h, geom)
		e.name = fmt.Sprintf("emulator:%d", index)
		return e, nil
	}
}

// Inject makes the emulator fail with f from now on. It is safe to call
// while a search is using the device.
func (e *Emulator) Inject(f Fault) {
	e.fault.Store(int32(f))
}

func (e *Emulator) injected() Fault {
	return Fault(e.fault.Load())
}

// Launches returns the number of completed launches.
func (e *Emulator) Launches() uint64 {
	return e.launches.Load()
}

// Released reports whether Release was called.
func (e *Emulator) Released() bool {
	return e.released.Load()
}

// Name identifies the device.
func (e *Emulator) Name() string {
	return e.name
}

// Upload implements Device.
func (e *Emulator) Upload(header []byte, target *miner.Target) error {
	if e.injected() == FaultUpload {
		return fmt.Errorf("%w: header buffer", miner.ErrDeviceTransfer)
	}
	e.header = bytes.Clone(header)
	e.target = TargetWords(target)
	e.loaded = true
	return nil
}

// ResetWinner implements Device.
func (e *Emulator) ResetWinner() error {
	e.winner.Store(NoWinner)
	return nil
}

// Launch implements Device.
func (e *Emulator) Launch(start uint64, count uint32) error {
	if !e.loaded {
		return fmt.Errorf("%w: no search inputs uploaded", miner.ErrKernelLaunch)
	}
	if e.injected() == FaultLaunch {
		return fmt.Errorf("%w: emulated launch failure", miner.ErrKernelLaunch)
	}

	local := uint32(max(e.geom.LocalSize, 1))
	groups := (count + local - 1) / local
	var next atomic.Uint32

	var g errgroup.Group
	for w := 0; w < e.workers; w++ {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: work item panicked: %v", miner.ErrKernelLaunch, p)
				}
			}()
			for {
				group := next.Add(1) - 1
				if group >= groups {
					return nil
				}
				e.runGroup(start, group*local, min(group*local+local, count))
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.launches.Add(1)
	return nil
}

// runGroup executes work items [first, end) of a launch.
func (e *Emulator) runGroup(start uint64, first, end uint32) {
	for gid := first; gid < end; gid++ {
		// A smaller winner already exists; this item cannot change the slot.
		if gid >= e.winner.Load() {
			return
		}
		d := e.hasher.Digest(e.header, start+uint64(gid))
		if meetsWords(d, &e.target) {
			e.lowerWinner(gid)
			return
		}
	}
}

func (e *Emulator) lowerWinner(gid uint32) {
	for {
		cur := e.winner.Load()
		if gid >= cur || e.winner.CompareAndSwap(cur, gid) {
			return
		}
	}
}

// Winner implements Device.
func (e *Emulator) Winner() (uint32, bool, error) {
	switch e.injected() {
	case FaultReadout:
		return 0, false, fmt.Errorf("%w: winner slot", miner.ErrDeviceTransfer)
	case FaultCorrupt:
		// Report the first item after the true winner, or item 0 when
		// nothing was found.
		v := e.winner.Load()
		if v == NoWinner {
			return 0, true, nil
		}
		return v + 1, true, nil
	}
	v := e.winner.Load()
	return v, v != NoWinner, nil
}

// Release implements Device.
func (e *Emulator) Release() {
	e.released.Store(true)
	e.header = nil
	e.loaded = false
}
