// hypothesis.go: Key-guess hypothesis matrix construction.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"gonum.org/v1/gonum/mat"
)

// BuildHypotheses returns the GuessCount x numTraces matrix of predicted leakage for
// one key byte: H[k][i] = Leak(plaintexts[i][targetByte], k).
//
// Parameters:
//   - plaintexts: plaintext blocks, only the first numTraces are read
//   - targetByte: key byte index in [0, BlockSize)
//   - numTraces: number of traces in [1, len(plaintexts)]
//
// Returns ErrInvalidArgument for an out-of-range index or count and
// ErrShapeMismatch when a consulted block is not BlockSize bytes.
func BuildHypotheses(plaintexts [][]byte, targetByte, numTraces int) (*mat.Dense, error) {
	if targetByte < 0 || targetByte >= BlockSize {
		return nil, invalidArgument("target byte %d outside [0, %d)", targetByte, BlockSize)
	}
	if numTraces < 1 || numTraces > len(plaintexts) {
		return nil, invalidArgument("trace count %d outside [1, %d]", numTraces, len(plaintexts))
	}

	data := make([]float64, GuessCount*numTraces)
	for i := 0; i < numTraces; i++ {
		if len(plaintexts[i]) != BlockSize {
			return nil, shapeMismatch("plaintext %d has %d bytes, expected %d", i, len(plaintexts[i]), BlockSize)
		}
		p := plaintexts[i][targetByte]
		for k := 0; k < GuessCount; k++ {
			data[k*numTraces+i] = float64(Leak(p, byte(k)))
		}
	}
	return mat.NewDense(GuessCount, numTraces, data), nil
}
