//go:build opencl
// +build opencl

package gpu

/*
#cgo CFLAGS: -I${SRCDIR}/../../../deps/opencl-headers -DCL_TARGET_OPENCL_VERSION=120
#cgo windows LDFLAGS: -L${SRCDIR}/../../../deps/lib -lOpenCL
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/Amr-9/NonceHunter/pkg/miner"
	"github.com/Amr-9/NonceHunter/pkg/miner/hasher"
)

// clDevice runs the embedded Keccak-256 kernel on an OpenCL GPU.
type clDevice struct {
	device  C.cl_device_id
	context C.cl_context
	queue   C.cl_command_queue
	program C.cl_program
	kernel  C.cl_kernel

	// buffers
	bufBlock  C.cl_mem // Padded input block template (136 bytes)
	bufTarget C.cl_mem // Target words (32 bytes, __constant)
	bufWinner C.cl_mem // Winner slot (4 bytes)

	info DeviceInfo
	geom Geometry
}

// Open opens OpenCL GPU number index, counting GPU devices across all
// platforms in enumeration order. Only keccak256 runs on the GPU.
func Open(index int, h miner.Hasher, geom Geometry) (Device, error) {
	if h == nil || h.Name() != hasher.Keccak256Name {
		name := "<nil>"
		if h != nil {
			name = h.Name()
		}
		return nil, fmt.Errorf("%w: %s (OpenCL devices run %s only)", miner.ErrUnsupportedHasher, name, hasher.Keccak256Name)
	}

	ids, err := gpuDeviceIDs()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(ids) {
		return nil, fmt.Errorf("%w: %d (%d OpenCL GPUs found)", miner.ErrInvalidDevice, index, len(ids))
	}

	d := &clDevice{device: ids[index], info: deviceInfo(index, ids[index]), geom: geom}
	if maxGroup := d.info.MaxWorkGroup; maxGroup > 0 && geom.LocalSize > maxGroup {
		return nil, fmt.Errorf("%w: local size %d exceeds device maximum %d", miner.ErrInvalidGeometry, geom.LocalSize, maxGroup)
	}
	if err := d.init(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

// Available reports whether any OpenCL GPU can be found.
func Available() bool {
	ids, err := gpuDeviceIDs()
	return err == nil && len(ids) > 0
}

// ListDevices describes every OpenCL GPU, indexed the way Open counts them.
func ListDevices() ([]DeviceInfo, error) {
	ids, err := gpuDeviceIDs()
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, len(ids))
	for i, id := range ids {
		infos[i] = deviceInfo(i, id)
	}
	return infos, nil
}

func gpuDeviceIDs() ([]C.cl_device_id, error) {
	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return nil, fmt.Errorf("%w: no OpenCL platforms", miner.ErrDeviceInit)
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)

	var ids []C.cl_device_id
	for _, p := range platforms {
		var numDevices C.cl_uint
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
			continue
		}
		devices := make([]C.cl_device_id, numDevices)
		C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, numDevices, &devices[0], nil)
		ids = append(ids, devices...)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no GPU devices", miner.ErrDeviceInit)
	}
	return ids, nil
}

func deviceInfo(index int, id C.cl_device_id) DeviceInfo {
	info := DeviceInfo{Index: index}
	info.Name = deviceString(id, C.CL_DEVICE_NAME)
	info.Vendor = deviceString(id, C.CL_DEVICE_VENDOR)

	var maxGroup C.size_t
	C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_WORK_GROUP_SIZE, C.size_t(unsafe.Sizeof(maxGroup)), unsafe.Pointer(&maxGroup), nil)
	info.MaxWorkGroup = int(maxGroup)

	var units C.cl_uint
	C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
	info.ComputeUnits = int(units)

	var mem C.cl_ulong
	C.clGetDeviceInfo(id, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem), nil)
	info.GlobalMem = uint64(mem)
	return info
}

func deviceString(id C.cl_device_id, param C.cl_device_info) string {
	var size C.size_t
	if C.clGetDeviceInfo(id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00 ")
}

func (d *clDevice) init() error {
	var ret C.cl_int
	d.context = C.clCreateContext(nil, 1, &d.device, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: context failed: %d", miner.ErrDeviceInit, ret)
	}

	d.queue = C.clCreateCommandQueue(d.context, d.device, 0, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: queue failed: %d", miner.ErrDeviceInit, ret)
	}

	src := C.CString(kernelSource)
	defer C.free(unsafe.Pointer(src))
	length := C.size_t(len(kernelSource))
	d.program = C.clCreateProgramWithSource(d.context, 1, &src, &length, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: program creation failed: %d", miner.ErrDeviceInit, ret)
	}

	ret = C.clBuildProgram(d.program, 1, &d.device, nil, nil, nil)
	if ret != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(d.program, d.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		buildLog := make([]byte, logSize+1)
		C.clGetProgramBuildInfo(d.program, d.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		return fmt.Errorf("%w: program build failed: %s", miner.ErrDeviceInit, strings.TrimRight(string(buildLog), "\x00"))
	}

	kName := C.CString(KernelName)
	defer C.free(unsafe.Pointer(kName))
	d.kernel = C.clCreateKernel(d.program, kName, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: kernel creation failed: %d", miner.ErrDeviceInit, ret)
	}

	d.bufBlock = C.clCreateBuffer(d.context, C.CL_MEM_READ_ONLY, C.size_t(blockLanes*8), nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: bufBlock failed: %d", miner.ErrDeviceInit, ret)
	}
	d.bufTarget = C.clCreateBuffer(d.context, C.CL_MEM_READ_ONLY, 32, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: bufTarget failed: %d", miner.ErrDeviceInit, ret)
	}
	d.bufWinner = C.clCreateBuffer(d.context, C.CL_MEM_READ_WRITE, 4, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: bufWinner failed: %d", miner.ErrDeviceInit, ret)
	}
	return nil
}

// Name identifies the device.
func (d *clDevice) Name() string {
	return fmt.Sprintf("%s (%s)", d.info.Name, d.info.Vendor)
}

// Upload writes the block template and target and binds the fixed kernel
// arguments.
func (d *clDevice) Upload(header []byte, target *miner.Target) error {
	params, err := NewKernelParams(header, target)
	if err != nil {
		return err
	}

	ret := C.clEnqueueWriteBuffer(d.queue, d.bufBlock, C.CL_TRUE, 0, C.size_t(blockLanes*8),
		unsafe.Pointer(&params.Block[0]), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: write block: %d", miner.ErrDeviceTransfer, ret)
	}
	ret = C.clEnqueueWriteBuffer(d.queue, d.bufTarget, C.CL_TRUE, 0, 32,
		unsafe.Pointer(&params.Target[0]), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: write target: %d", miner.ErrDeviceTransfer, ret)
	}

	noncePos := C.cl_uint(params.NoncePos)
	args := []struct {
		size C.size_t
		ptr  unsafe.Pointer
	}{
		{C.size_t(unsafe.Sizeof(d.bufBlock)), unsafe.Pointer(&d.bufBlock)},
		{C.size_t(unsafe.Sizeof(noncePos)), unsafe.Pointer(&noncePos)},
		{C.size_t(unsafe.Sizeof(d.bufTarget)), unsafe.Pointer(&d.bufTarget)},
	}
	for i, a := range args {
		if ret := C.clSetKernelArg(d.kernel, C.cl_uint(i), a.size, a.ptr); ret != C.CL_SUCCESS {
			return fmt.Errorf("%w: kernel arg %d: %d", miner.ErrKernelLaunch, i, ret)
		}
	}
	if ret := C.clSetKernelArg(d.kernel, 5, C.size_t(unsafe.Sizeof(d.bufWinner)), unsafe.Pointer(&d.bufWinner)); ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: kernel arg 5: %d", miner.ErrKernelLaunch, ret)
	}
	return nil
}

// ResetWinner writes NoWinner to the winner slot.
func (d *clDevice) ResetWinner() error {
	slot := C.cl_uint(NoWinner)
	ret := C.clEnqueueWriteBuffer(d.queue, d.bufWinner, C.CL_TRUE, 0, 4, unsafe.Pointer(&slot), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: reset winner: %d", miner.ErrDeviceTransfer, ret)
	}
	return nil
}

// Launch runs count work items from nonce start and waits for them.
func (d *clDevice) Launch(start uint64, count uint32) error {
	first := C.cl_ulong(start)
	n := C.cl_uint(count)
	if ret := C.clSetKernelArg(d.kernel, 3, C.size_t(unsafe.Sizeof(first)), unsafe.Pointer(&first)); ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: kernel arg 3: %d", miner.ErrKernelLaunch, ret)
	}
	if ret := C.clSetKernelArg(d.kernel, 4, C.size_t(unsafe.Sizeof(n)), unsafe.Pointer(&n)); ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: kernel arg 4: %d", miner.ErrKernelLaunch, ret)
	}

	local := uint64(d.geom.LocalSize)
	global := (uint64(count) + local - 1) / local * local
	globalSize := C.size_t(global)
	localSize := C.size_t(local)
	ret := C.clEnqueueNDRangeKernel(d.queue, d.kernel, 1, nil, &globalSize, &localSize, 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: enqueue: %d", miner.ErrKernelLaunch, ret)
	}
	if ret := C.clFinish(d.queue); ret != C.CL_SUCCESS {
		return fmt.Errorf("%w: finish: %d", miner.ErrKernelLaunch, ret)
	}
	return nil
}

// Winner reads the winner slot.
func (d *clDevice) Winner() (uint32, bool, error) {
	var slot C.cl_uint
	ret := C.clEnqueueReadBuffer(d.queue, d.bufWinner, C.CL_TRUE, 0, 4, unsafe.Pointer(&slot), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return 0, false, fmt.Errorf("%w: read winner: %d", miner.ErrDeviceTransfer, ret)
	}
	v := uint32(slot)
	return v, v != NoWinner, nil
}

// Release frees the buffers, kernel, program, queue and context.
func (d *clDevice) Release() {
	for _, buf := range []*C.cl_mem{&d.bufBlock, &d.bufTarget, &d.bufWinner} {
		if *buf != nil {
			C.clReleaseMemObject(*buf)
			*buf = nil
		}
	}
	if d.kernel != nil {
		C.clReleaseKernel(d.kernel)
		d.kernel = nil
	}
	if d.program != nil {
		C.clReleaseProgram(d.program)
		d.program = nil
	}
	if d.queue != nil {
		C.clReleaseCommandQueue(d.queue)
		d.queue = nil
	}
	if d.context != nil {
		C.clReleaseContext(d.context)
		d.context = nil
	}
}
