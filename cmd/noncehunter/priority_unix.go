//go:build linux || darwin || freebsd || netbsd || openbsd

package main

import "golang.org/x/sys/unix"

// highPriorityNice is the nice value requested by --high-priority. Values
// below zero need CAP_SYS_NICE or root.
const highPriorityNice = -10

// raisePriority lowers the nice value of the process.
func raisePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, highPriorityNice)
}
