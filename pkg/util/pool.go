package util

import "runtime"

// GetOptimalPoolSize returns the concurrency limit for batched I/O such as
// font loading.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}
