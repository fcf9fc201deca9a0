// simulate.go: Synthetic trace generation for calibrating attacks.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// DefaultStride is the default distance in samples between the leakage of two key bytes.
const DefaultStride = 4

// SimulationParams describes a synthetic capture campaign with a known key.
//
// Every sample not carrying leakage holds the Hamming weight of an unrelated random
// byte plus noise, so no column is constant.
type SimulationParams struct {
	Traces int          `json:"traces"` // Number of traces, must be positive
	Key    KeyCandidate `json:"key"`    // Fixed key used for every trace
	Noise  float64      `json:"noise"`  // Standard deviation of additive Gaussian noise

	// Masked splits each S-box output into a random mask m, leaking at LeakSample(b),
	// and SBOX[p^k] XOR m, leaking at LeakSample(b)+1.
	Masked bool `json:"masked"`

	// Offset is the sample at which byte 0 leaks; byte b leaks at Offset + b*Stride.
	// If Stride is zero, DefaultStride is used.
	Offset int `json:"offset"`
	Stride int `json:"stride"`

	// Samples is the trace length. If zero, just enough for all 16 bytes.
	Samples int `json:"samples"`

	Seed uint64 `json:"seed"` // Same seed, same campaign
}

func (p *SimulationParams) stride() int {
	if p.Stride > 0 {
		return p.Stride
	}
	return DefaultStride
}

// LeakSample returns the sample carrying the leakage of key byte b (the mask, when masked).
func (p *SimulationParams) LeakSample(b int) int {
	return p.Offset + b*p.stride()
}

// POIs returns the two points of interest of key byte b in a masked campaign.
func (p *SimulationParams) POIs(b int) (int, int) {
	return p.LeakSample(b), p.LeakSample(b) + 1
}

func (p *SimulationParams) samples() int {
	if p.Samples > 0 {
		return p.Samples
	}
	return p.LeakSample(BlockSize-1) + p.stride()
}

// Simulate generates a deterministic synthetic dataset whose keys are all p.Key.
//
// Returns ErrInvalidArgument for a non-positive trace count, negative noise or
// offset, a masked campaign with Stride 1, or a trace too short for every leak.
func Simulate(p SimulationParams) (*Dataset, error) {
	if p.Traces < 1 {
		return nil, invalidArgument("trace count %d must be positive", p.Traces)
	}
	if p.Noise < 0 || p.Offset < 0 || p.Stride < 0 {
		return nil, invalidArgument("noise, offset and stride must not be negative")
	}
	if p.Masked && p.stride() < 2 {
		return nil, invalidArgument("masked campaigns need a stride of at least 2")
	}
	samples := p.samples()
	last := p.LeakSample(BlockSize - 1)
	if p.Masked {
		last++
	}
	if last >= samples {
		return nil, invalidArgument("trace length %d too short, byte 15 leaks at sample %d", samples, last)
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	noise := func() float64 {
		return rng.NormFloat64() * p.Noise
	}
	randomByte := func() byte {
		return byte(rng.UintN(256))
	}

	data := make([]float64, p.Traces*samples)
	plaintexts := make([][]byte, p.Traces)
	keys := make([][]byte, p.Traces)

	for i := 0; i < p.Traces; i++ {
		row := data[i*samples : (i+1)*samples]
		for t := range row {
			row[t] = float64(HammingWeight(randomByte())) + noise()
		}

		pt := make([]byte, BlockSize)
		for b := range pt {
			pt[b] = randomByte()
		}
		plaintexts[i] = pt
		keys[i] = p.Key[:]

		for b := 0; b < BlockSize; b++ {
			at := p.LeakSample(b)
			if !p.Masked {
				row[at] = float64(Leak(pt[b], p.Key[b])) + noise()
				continue
			}
			m := randomByte()
			row[at] = float64(HammingWeight(m)) + noise()
			row[at+1] = float64(HammingWeight(SubByte(pt[b]^p.Key[b])^m)) + noise()
		}
	}

	return NewDataset(mat.NewDense(p.Traces, samples, data), plaintexts, keys)
}
