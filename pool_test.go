// pool_test.go: Scratch pooling tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"sync"
	"testing"
)

// TestScratchPoolBasic verifies basic get/put operations of the scratch pools
func TestScratchPoolBasic(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"Small scratch", 100},
		{"Small boundary", 1024},
		{"Large scratch", 5000},
		{"Oversized scratch", 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := getScratch(tt.size)
			if buf == nil {
				t.Fatal("getScratch returned nil")
			}
			if len(*buf) != tt.size {
				t.Errorf("Scratch length %d, want %d", len(*buf), tt.size)
			}
			for i := range *buf {
				(*buf)[i] = float64(i)
			}
			putScratch(buf)
		})
	}
}

func TestPutScratchNil(t *testing.T) {
	putScratch(nil)
}

// TestScratchPoolConcurrency verifies thread-safety
func TestScratchPoolConcurrency(t *testing.T) {
	const numGoroutines = 50
	const numOpsPerGoroutine = 40

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOpsPerGoroutine; j++ {
				small := getScratch(64)
				(*small)[0] = float64(id)
				putScratch(small)

				large := getScratch(4096)
				(*large)[4095] = float64(j)
				putScratch(large)
			}
		}(i)
	}

	wg.Wait()
}

func BenchmarkScratchPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := getScratch(1000)
		putScratch(buf)
	}
}
