//go:build windows

package main

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// raisePriority moves the process to the high priority class, falling back
// to above normal, and turns off power throttling (Efficiency Mode).
func raisePriority() error {
	proc := windows.CurrentProcess()
	if err := windows.SetPriorityClass(proc, windows.HIGH_PRIORITY_CLASS); err != nil {
		if err := windows.SetPriorityClass(proc, windows.ABOVE_NORMAL_PRIORITY_CLASS); err != nil {
			return err
		}
	}
	disablePowerThrottling(proc)
	return nil
}

// disablePowerThrottling is best effort; SetProcessInformation needs
// Windows 10 1709 or later.
func disablePowerThrottling(proc windows.Handle) {
	const (
		processPowerThrottling        = 4
		powerThrottlingExecutionSpeed = 0x1
	)
	state := struct {
		Version     uint32
		ControlMask uint32
		StateMask   uint32
	}{Version: 1, ControlMask: powerThrottlingExecutionSpeed}

	setInfo := windows.NewLazySystemDLL("kernel32.dll").NewProc("SetProcessInformation")
	if setInfo.Find() != nil {
		return
	}
	setInfo.Call(uintptr(proc), processPowerThrottling, uintptr(unsafe.Pointer(&state)), unsafe.Sizeof(state))
}
