// correlate.go: First-order and second-order correlation surfaces.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelateFirstOrder returns the K x T Pearson correlation surface between every
// hypothesis row of h (K x N) and every sample column of traces (N x T):
//
//	C = rowstd(H) * colstd(T) / N
//
// Both operands are mean-zero and unit-variance after standardization, so the single
// dense product yields every coefficient at once.
//
// Returns ErrShapeMismatch when the trace counts differ and ErrNumeric when a
// hypothesis row or a trace column is constant.
func CorrelateFirstOrder(h, traces mat.Matrix) (*mat.Dense, error) {
	_, n := h.Dims()
	tn, _ := traces.Dims()
	if n != tn {
		return nil, shapeMismatch("hypotheses cover %d traces, trace matrix has %d", n, tn)
	}

	hn, err := StandardizeRows(h)
	if err != nil {
		return nil, err
	}
	tr, err := StandardizeColumns(traces)
	if err != nil {
		return nil, err
	}

	var surface mat.Dense
	surface.Mul(hn, tr)
	inv := 1 / float64(n)
	surface.Apply(func(_, _ int, v float64) float64 {
		return clampUnit(v * inv)
	}, &surface)
	return &surface, nil
}

// CenteredProduct combines two points of interest of every trace into one series:
//
//	cp[i] = (t[i][poi1] - mean(t[:,poi1])) * (t[i][poi2] - mean(t[:,poi2]))
//
// Returns ErrInvalidArgument when a point of interest lies outside [0, T).
func CenteredProduct(traces mat.Matrix, poi1, poi2 int) ([]float64, error) {
	_, samples := traces.Dims()
	if poi1 < 0 || poi1 >= samples {
		return nil, invalidArgument("point of interest %d outside [0, %d)", poi1, samples)
	}
	if poi2 < 0 || poi2 >= samples {
		return nil, invalidArgument("point of interest %d outside [0, %d)", poi2, samples)
	}

	first := mat.Col(nil, poi1, traces)
	second := mat.Col(nil, poi2, traces)
	floats.AddConst(-stat.Mean(first, nil), first)
	floats.AddConst(-stat.Mean(second, nil), second)
	floats.Mul(first, second)
	return first, nil
}

// CorrelateSecondOrder correlates the centered product of two points of interest
// against every hypothesis row of h, returning one coefficient per row.
//
// Each coefficient is the Pearson correlation of one standardized hypothesis row with
// the standardized centered product, computed directly as a dot product over N.
//
// Returns ErrShapeMismatch when the trace counts differ, ErrInvalidArgument for an
// out-of-range point of interest and ErrNumeric when the centered product or a
// hypothesis row is constant.
func CorrelateSecondOrder(h, traces mat.Matrix, poi1, poi2 int) ([]float64, error) {
	guesses, n := h.Dims()
	tn, _ := traces.Dims()
	if n != tn {
		return nil, shapeMismatch("hypotheses cover %d traces, trace matrix has %d", n, tn)
	}

	cp, err := CenteredProduct(traces, poi1, poi2)
	if err != nil {
		return nil, err
	}
	if !standardizeInPlace(cp) {
		return nil, numericError("centered product of samples %d and %d has zero variance", poi1, poi2)
	}

	hn, err := StandardizeRows(h)
	if err != nil {
		return nil, err
	}

	inv := 1 / float64(n)
	out := make([]float64, guesses)
	for k := range out {
		out[k] = clampUnit(floats.Dot(hn.RawRowView(k), cp) * inv)
	}
	return out, nil
}

// clampUnit absorbs rounding that pushes a coefficient just past +-1.
func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
