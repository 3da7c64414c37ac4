//go:build windows

package main

// Exports the symbols NVIDIA and AMD drivers read to run the process on the
// discrete GPU instead of integrated graphics.

/*
#include <stdint.h>

__declspec(dllexport) uint32_t NvOptimusEnablement = 1;
__declspec(dllexport) uint32_t AmdPowerXpressRequestHighPerformance = 1;
*/
import "C"
