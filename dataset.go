// dataset.go: Trace and plaintext sets supplied by an external trace store.
//
// The engine never parses capture files. A Dataset is the boundary type: a dense
// N x T trace matrix, the N plaintexts encrypted while those traces were captured
// and, optionally, the N ground-truth keys used only for post-hoc validation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"
	"gonum.org/v1/gonum/mat"
)

// BlockSize is the AES block size in bytes and the number of key bytes attacked.
const BlockSize = 16

// Dataset pairs trace i with the plaintext (and optional key) of encryption i.
// It is immutable once built and safe for concurrent readers.
type Dataset struct {
	traces     *mat.Dense
	plaintexts [][]byte
	keys       [][]byte
}

// NewDataset validates the shapes of a trace matrix and its parallel plaintext set.
//
// Parameters:
//   - traces: N x T matrix of samples; a *mat.Dense is borrowed without copying
//   - plaintexts: N blocks of BlockSize bytes, plaintexts[i] belongs to trace row i
//   - keys: nil, or N blocks of BlockSize bytes used only by VerifyKey
//
// Returns ErrShapeMismatch when counts disagree or a block is not BlockSize bytes.
func NewDataset(traces mat.Matrix, plaintexts [][]byte, keys [][]byte) (*Dataset, error) {
	if traces == nil {
		return nil, shapeMismatch("trace matrix is nil")
	}
	rows, cols := traces.Dims()
	if rows == 0 || cols == 0 {
		return nil, shapeMismatch("trace matrix is empty (%d x %d)", rows, cols)
	}
	if len(plaintexts) != rows {
		return nil, shapeMismatch("trace count %d does not match plaintext count %d", rows, len(plaintexts))
	}
	if err := checkBlocks("plaintext", plaintexts); err != nil {
		return nil, err
	}
	if keys != nil {
		if len(keys) != rows {
			return nil, shapeMismatch("trace count %d does not match key count %d", rows, len(keys))
		}
		if err := checkBlocks("key", keys); err != nil {
			return nil, err
		}
	}

	dense, ok := traces.(*mat.Dense)
	if !ok {
		dense = mat.DenseCopyOf(traces)
	}

	return &Dataset{
		traces:     dense,
		plaintexts: plaintexts,
		keys:       keys,
	}, nil
}

// NewDatasetFromRows collects per-trace sample slices into a single N x T matrix.
//  _         _
// | -- T1  -- |
// | -- T2  -- |
// | -- ..  -- |
// | -- TN  -- |
// |_         _|
//
// Every trace must have the same number of samples.
func NewDatasetFromRows(traces [][]float64, plaintexts [][]byte, keys [][]byte) (*Dataset, error) {
	if len(traces) == 0 || len(traces[0]) == 0 {
		return nil, shapeMismatch("no samples supplied")
	}
	rows := len(traces)
	cols := len(traces[0])
	data := make([]float64, rows*cols)
	for i, trace := range traces {
		if len(trace) != cols {
			return nil, shapeMismatch("trace %d has %d samples, expected %d", i, len(trace), cols)
		}
		copy(data[i*cols:(i+1)*cols], trace)
	}
	return NewDataset(mat.NewDense(rows, cols, data), plaintexts, keys)
}

func checkBlocks(kind string, blocks [][]byte) error {
	for i, block := range blocks {
		if len(block) != BlockSize {
			return shapeMismatch("%s %d has %d bytes, expected %d", kind, i, len(block), BlockSize)
		}
	}
	return nil
}

// Len returns the number of traces N.
func (d *Dataset) Len() int {
	return len(d.plaintexts)
}

// Samples returns the number of samples per trace T.
func (d *Dataset) Samples() int {
	_, cols := d.traces.Dims()
	return cols
}

// Traces returns the read-only trace matrix.
func (d *Dataset) Traces() mat.Matrix {
	return d.traces
}

// Plaintexts returns the plaintext blocks. Callers must not modify them.
func (d *Dataset) Plaintexts() [][]byte {
	return d.plaintexts
}

// HasKeys reports whether ground-truth keys were supplied.
func (d *Dataset) HasKeys() bool {
	return d.keys != nil
}

// Prefix returns a view over the first n traces. The selection is always the same
// prefix, so repeated runs attack the same batch.
func (d *Dataset) Prefix(n int) (*Dataset, error) {
	if n < 1 || n > d.Len() {
		return nil, invalidArgument("trace count %d outside [1, %d]", n, d.Len())
	}
	if n == d.Len() {
		return d, nil
	}

	view := &Dataset{
		traces:     d.traces.Slice(0, n, 0, d.Samples()).(*mat.Dense),
		plaintexts: d.plaintexts[:n],
	}
	if d.keys != nil {
		view.keys = d.keys[:n]
	}
	return view, nil
}

// Fingerprint returns a short identifier of the traces and plaintexts, so logs can
// name exactly which batch an attack ran on. It is not a security primitive.
func (d *Dataset) Fingerprint() string {
	h, _ := blake2b.New256(nil) // only fails for MAC keys longer than 64 bytes

	rows, cols := d.traces.Dims()
	var word [8]byte
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(d.traces.At(i, j)))
			h.Write(word[:])
		}
		h.Write(d.plaintexts[i])
	}
	return fmt.Sprintf("%016x", h.Sum(nil)[:8])
}
