// correlate_test.go: Tests for the first-order and second-order correlators.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// noiseTraces returns an n x samples matrix of Gaussian noise.
func noiseTraces(n, samples int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, 2))
	data := make([]float64, n*samples)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(n, samples, data)
}

func TestCorrelateFirstOrder_MatchesPearson(t *testing.T) {
	const n = 120
	pts := randomPlaintexts(n, 11)
	h, err := BuildHypotheses(pts, 0, n)
	require.NoError(t, err)
	traces := noiseTraces(n, 6, 11)

	surface, err := CorrelateFirstOrder(h, traces)
	require.NoError(t, err)

	rows, cols := surface.Dims()
	require.Equal(t, GuessCount, rows)
	require.Equal(t, 6, cols)

	for _, k := range []int{0, 17, 255} {
		for j := 0; j < cols; j++ {
			want := stat.Correlation(mat.Row(nil, k, h), mat.Col(nil, j, traces), nil)
			assert.InDelta(t, want, surface.At(k, j), tolerance, "C[%d][%d]", k, j)
		}
	}
}

func TestCorrelateFirstOrder_ScaleInvariant(t *testing.T) {
	const n = 150
	h, err := BuildHypotheses(randomPlaintexts(n, 13), 2, n)
	require.NoError(t, err)
	traces := noiseTraces(n, 5, 13)

	var tiny mat.Dense
	tiny.Scale(1e-13, traces)

	want, err := CorrelateFirstOrder(h, traces)
	require.NoError(t, err)
	got, err := CorrelateFirstOrder(h, &tiny)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, tolerance))
}

func TestCorrelateSecondOrder_ScaleInvariant(t *testing.T) {
	const n = 150
	h, err := BuildHypotheses(randomPlaintexts(n, 14), 6, n)
	require.NoError(t, err)
	traces := noiseTraces(n, 4, 14)

	// The centered product squares the scale of the traces
	var tiny mat.Dense
	tiny.Scale(1e-9, traces)

	want, err := CorrelateSecondOrder(h, traces, 1, 3)
	require.NoError(t, err)
	got, err := CorrelateSecondOrder(h, &tiny, 1, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, tolerance)
}

func TestCorrelateFirstOrder_PerfectAndInverse(t *testing.T) {
	const n = 64
	pts := randomPlaintexts(n, 5)
	h, err := BuildHypotheses(pts, 3, n)
	require.NoError(t, err)

	traces := noiseTraces(n, 3, 5)
	for i := 0; i < n; i++ {
		traces.Set(i, 1, 2*h.At(0x42, i)+10)
		traces.Set(i, 2, -0.5*h.At(0x42, i))
	}

	surface, err := CorrelateFirstOrder(h, traces)
	require.NoError(t, err)
	assert.InDelta(t, 1, surface.At(0x42, 1), tolerance)
	assert.InDelta(t, -1, surface.At(0x42, 2), tolerance)

	best, err := BestGuess(surface)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), best.Guess)
}

func TestCorrelateFirstOrder_Bounds(t *testing.T) {
	const n = 50
	h, err := BuildHypotheses(randomPlaintexts(n, 9), 7, n)
	require.NoError(t, err)

	surface, err := CorrelateFirstOrder(h, noiseTraces(n, 20, 9))
	require.NoError(t, err)

	for _, v := range surface.RawMatrix().Data {
		require.False(t, math.IsNaN(v))
		require.GreaterOrEqual(t, v, -1.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestCorrelateFirstOrder_Errors(t *testing.T) {
	const n = 30
	h, err := BuildHypotheses(randomPlaintexts(n, 1), 0, n)
	require.NoError(t, err)

	t.Run("trace count mismatch", func(t *testing.T) {
		_, err := CorrelateFirstOrder(h, noiseTraces(n+1, 4, 1))
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("constant trace column", func(t *testing.T) {
		traces := noiseTraces(n, 4, 1)
		for i := 0; i < n; i++ {
			traces.Set(i, 2, 3.3)
		}
		surface, err := CorrelateFirstOrder(h, traces)
		assert.Nil(t, surface)
		assert.ErrorIs(t, err, ErrNumeric)
	})

	t.Run("constant hypothesis row", func(t *testing.T) {
		pts := randomPlaintexts(n, 1)
		for i := range pts {
			pts[i][0] = 0xa5
		}
		flat, err := BuildHypotheses(pts, 0, n)
		require.NoError(t, err)
		_, err = CorrelateFirstOrder(flat, noiseTraces(n, 4, 1))
		assert.ErrorIs(t, err, ErrNumeric)
	})
}

func TestCenteredProduct(t *testing.T) {
	traces := mat.NewDense(4, 3, []float64{
		1, 0, 10,
		2, 9, 20,
		3, 9, 30,
		6, 9, 40,
	})

	cp, err := CenteredProduct(traces, 0, 2)
	require.NoError(t, err)
	// means 3 and 25
	assert.InDeltaSlice(t, []float64{30, 5, 0, 45}, cp, tolerance)

	// Input untouched
	assert.Equal(t, 1.0, traces.At(0, 0))

	_, err = CenteredProduct(traces, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = CenteredProduct(traces, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCorrelateSecondOrder_MatchesPearson(t *testing.T) {
	const n = 200
	h, err := BuildHypotheses(randomPlaintexts(n, 21), 1, n)
	require.NoError(t, err)
	traces := noiseTraces(n, 5, 21)

	vector, err := CorrelateSecondOrder(h, traces, 1, 3)
	require.NoError(t, err)
	require.Len(t, vector, GuessCount)

	cp, err := CenteredProduct(traces, 1, 3)
	require.NoError(t, err)
	for _, k := range []int{0, 99, 200} {
		want := stat.Correlation(mat.Row(nil, k, h), cp, nil)
		assert.InDelta(t, want, vector[k], tolerance, "r[%d]", k)
	}
	for _, v := range vector {
		require.GreaterOrEqual(t, v, -1.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestCorrelateSecondOrder_Errors(t *testing.T) {
	const n = 40
	h, err := BuildHypotheses(randomPlaintexts(n, 2), 0, n)
	require.NoError(t, err)
	traces := noiseTraces(n, 4, 2)

	tests := []struct {
		name   string
		poi1   int
		poi2   int
		target error
	}{
		{"negative first poi", -1, 0, ErrInvalidArgument},
		{"first poi past end", 4, 0, ErrInvalidArgument},
		{"second poi past end", 0, 4, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CorrelateSecondOrder(h, traces, tt.poi1, tt.poi2)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("constant centered product", func(t *testing.T) {
		flat := mat.DenseCopyOf(traces)
		for i := 0; i < n; i++ {
			flat.Set(i, 0, 1)
		}
		_, err := CorrelateSecondOrder(h, flat, 0, 1)
		assert.ErrorIs(t, err, ErrNumeric)
	})

	t.Run("trace count mismatch", func(t *testing.T) {
		_, err := CorrelateSecondOrder(h, noiseTraces(n-1, 4, 2), 0, 1)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
