package workers

import (
	"math"
	"os"
	"runtime"
	"strconv"
)

// Multipliers per workload shape. Decoding and compositing saturate a
// core, so CPU-bound pools get one worker per core; walks and cache
// writes spend most of their time blocked, so I/O pools get two.
const (
	cpuBound = 1.0
	ioBound  = 2.0
	mixed    = 1.5
)

// envOverride lets operators pin the pool size regardless of detected
// CPU count.
const envOverride = "PREVIEW_WORKERS"

// Count sizes a worker pool as multiplier workers per schedulable CPU,
// clamped to [1, limit] (limit 0 means unbounded). GOMAXPROCS reflects
// cgroup CPU limits, so the result stays honest inside containers.
func Count(multiplier float64, limit int) int {
	if n := override(); n > 0 {
		return clamp(n, limit)
	}
	n := int(math.Floor(float64(runtime.GOMAXPROCS(0)) * multiplier))
	return clamp(n, limit)
}

// ForCPU sizes a pool for CPU-bound work such as decoding and resizing.
func ForCPU(limit int) int { return Count(cpuBound, limit) }

// ForIO sizes a pool for I/O-bound work such as directory walks.
func ForIO(limit int) int { return Count(ioBound, limit) }

// ForMixed sizes a pool for work that alternates between reading files
// and processing them, which is the batch generator's profile.
func ForMixed(limit int) int { return Count(mixed, limit) }

func override() int {
	v := os.Getenv(envOverride)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func clamp(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
