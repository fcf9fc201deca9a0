// pool.go: Scratch buffer pooling for per-column and per-series work
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"sync"
)

var (
	// Scratch pools sized for typical trace counts to reduce GC pressure
	smallScratchPool = sync.Pool{
		New: func() interface{} {
			buf := make([]float64, 1024) // Covers small synthetic and benchmark batches
			return &buf
		},
	}

	largeScratchPool = sync.Pool{
		New: func() interface{} {
			buf := make([]float64, 16*1024) // Covers typical capture campaigns
			return &buf
		},
	}
)

// init pre-warms the pools to remove first-access latency
func init() {
	WarmupPools(2)
}

// getScratch retrieves a scratch slice of exactly size elements
func getScratch(size int) *[]float64 {
	switch {
	case size <= 1024:
		buf := smallScratchPool.Get().(*[]float64)
		*buf = (*buf)[:size]
		return buf
	case size <= 16*1024:
		buf := largeScratchPool.Get().(*[]float64)
		*buf = (*buf)[:size]
		return buf
	default:
		// Very large campaigns allocate directly
		buf := make([]float64, size)
		return &buf
	}
}

// putScratch returns a scratch slice to its pool; non-standard capacities are dropped
func putScratch(buf *[]float64) {
	if buf == nil {
		return
	}

	switch cap(*buf) {
	case 1024:
		smallScratchPool.Put(buf)
	case 16 * 1024:
		largeScratchPool.Put(buf)
	}
}

// WarmupPools pre allocates scratch buffers in the pools to reduce cold latency
func WarmupPools(count int) {
	small := make([]*[]float64, count)
	large := make([]*[]float64, count)

	for i := 0; i < count; i++ {
		small[i] = getScratch(1024)
		large[i] = getScratch(16 * 1024)
	}

	for i := 0; i < count; i++ {
		putScratch(small[i])
		putScratch(large[i])
	}
}
