//go:build !opencl
// +build !opencl

package gpu

import "github.com/Amr-9/NonceHunter/pkg/miner"

// Open returns ErrGPUNotCompiled when OpenCL is not enabled.
// Build with -tags opencl to enable GPU support.
func Open(index int, h miner.Hasher, geom Geometry) (Device, error) {
	return nil, miner.ErrGPUNotCompiled
}

// Available returns false when OpenCL is not compiled.
func Available() bool {
	return false
}

// ListDevices returns an error when OpenCL is not enabled.
func ListDevices() ([]DeviceInfo, error) {
	return nil, miner.ErrGPUNotCompiled
}
