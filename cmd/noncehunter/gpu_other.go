//go:build !windows

package main

// Elsewhere the GPU is chosen by --device; on hybrid Linux systems DRI_PRIME=1
// may also be needed for the discrete GPU to be enumerated first.
