package miner

import "errors"

// Error classes. Each class is a distinct string type so callers can tell a
// bad configuration from a hardware failure from a crashed worker; none of
// them is ever reported as an Exhausted search.
type (
	ConfigError string // Rejected before any hashing starts
	DeviceError string // GPU initialisation, transfer or launch failure
	WorkerError string // A CPU worker crashed
)

// Configuration errors.
var (
	ErrNoWorkers         = ConfigError("worker count must be at least one")
	ErrZeroThreads       = ConfigError("thread count must be positive")
	ErrInvalidDevice     = ConfigError("invalid device index")
	ErrEmptyHeader       = ConfigError("search header is empty")
	ErrHeaderTooLong     = ConfigError("search header is too long")
	ErrMissingHasher     = ConfigError("no digest function configured")
	ErrUnsupportedHasher = ConfigError("digest function not supported by device")
	ErrInvalidTarget     = ConfigError("invalid target")
	ErrInvalidGeometry   = ConfigError("invalid launch geometry")
)

// Device errors.
var (
	ErrGPUNotCompiled = DeviceError("GPU support not compiled. Build with: go build -tags opencl")
	ErrDeviceInit     = DeviceError("device initialisation failed")
	ErrDeviceTransfer = DeviceError("device memory transfer failed")
	ErrKernelLaunch   = DeviceError("kernel launch failed")
	ErrDeviceMismatch = DeviceError("device result failed host verification")
)

// Worker errors.
var (
	ErrWorkerPanic = WorkerError("search worker panicked")
)

func (e ConfigError) Error() string { return string(e) }
func (e DeviceError) Error() string { return string(e) }
func (e WorkerError) Error() string { return string(e) }

// IsConfigError reports whether err, or any error it wraps, is a ConfigError.
func IsConfigError(err error) bool {
	var e ConfigError
	return errors.As(err, &e)
}

// IsDeviceError reports whether err, or any error it wraps, is a DeviceError.
func IsDeviceError(err error) bool {
	var e DeviceError
	return errors.As(err, &e)
}

// IsWorkerError reports whether err, or any error it wraps, is a WorkerError.
func IsWorkerError(err error) bool {
	var e WorkerError
	return errors.As(err, &e)
}
