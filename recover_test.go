// recover_test.go: Tests for key byte selection and ranking.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBestGuess_UsesAbsolutePeak(t *testing.T) {
	surface := mat.NewDense(GuessCount, 3, nil)
	surface.Set(10, 1, 0.4)
	surface.Set(200, 2, -0.7)
	surface.Set(55, 0, 0.69)

	best, err := BestGuess(surface)
	require.NoError(t, err)
	assert.Equal(t, byte(200), best.Guess)
	assert.InDelta(t, 0.7, best.Peak, tolerance)
	assert.Equal(t, 2, best.Sample)
}

func TestBestGuess_TieBreakLowestGuess(t *testing.T) {
	surface := mat.NewDense(GuessCount, 2, nil)
	surface.Set(90, 1, 0.5)
	surface.Set(30, 0, -0.5)
	surface.Set(31, 1, 0.5)

	for i := 0; i < 5; i++ {
		best, err := BestGuess(surface)
		require.NoError(t, err)
		assert.Equal(t, byte(30), best.Guess)
	}
}

func TestRank_HeadMatchesBestGuessOnTies(t *testing.T) {
	surface := mat.NewDense(GuessCount, 3, nil)
	surface.Set(200, 2, 0.7)
	surface.Set(41, 1, -0.7)
	surface.Set(41, 2, 0.7)
	surface.Set(77, 0, 0.7)

	best, err := BestGuess(surface)
	require.NoError(t, err)
	peaks, samples, err := PeakPerGuess(surface)
	require.NoError(t, err)

	head := Rank(peaks, samples, 1)[0]
	assert.Equal(t, best, head)
	assert.Equal(t, byte(41), head.Guess)
	assert.Equal(t, 1, head.Sample)
}

func TestBestGuess_FirstPeakSampleWins(t *testing.T) {
	surface := mat.NewDense(GuessCount, 4, nil)
	surface.Set(3, 1, 0.9)
	surface.Set(3, 3, -0.9)

	peaks, samples, err := PeakPerGuess(surface)
	require.NoError(t, err)
	assert.Equal(t, 0.9, peaks[3])
	assert.Equal(t, 1, samples[3])
}

func TestBestGuess_ShapeMismatch(t *testing.T) {
	_, err := BestGuess(mat.NewDense(10, 3, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = BestGuessVector(make([]float64, 12))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBestGuessVector(t *testing.T) {
	v := make([]float64, GuessCount)
	v[7] = -0.3
	v[8] = 0.3
	v[250] = 0.1

	best, err := BestGuessVector(v)
	require.NoError(t, err)
	assert.Equal(t, byte(7), best.Guess)
	assert.InDelta(t, 0.3, best.Peak, tolerance)
	assert.Equal(t, -0.3, v[7], "input must not be modified")
}

func TestRank(t *testing.T) {
	peaks := make([]float64, GuessCount)
	peaks[4] = 0.2
	peaks[9] = 0.8
	peaks[2] = 0.2
	peaks[100] = 0.5

	top := Rank(peaks, nil, 4)
	require.Len(t, top, 4)
	assert.Equal(t, []byte{9, 100, 2, 4}, []byte{top[0].Guess, top[1].Guess, top[2].Guess, top[3].Guess})

	all := Rank(peaks, nil, 0)
	assert.Len(t, all, GuessCount)
	// Remaining zero peaks keep increasing guess order
	assert.Equal(t, byte(0), all[4].Guess)
	assert.Equal(t, byte(1), all[5].Guess)

	assert.InDelta(t, 1.6, Margin(top), tolerance)
}

func TestRank_CarriesSamples(t *testing.T) {
	peaks := []float64{0.1, 0.3}
	samples := []int{5, 12}

	ranking := Rank(peaks, samples, 0)
	assert.Equal(t, Candidate{Guess: 1, Peak: 0.3, Sample: 12}, ranking[0])
	assert.Equal(t, Candidate{Guess: 0, Peak: 0.1, Sample: 5}, ranking[1])
}

func TestMargin_Degenerate(t *testing.T) {
	assert.True(t, math.IsInf(Margin(nil), 1))
	assert.True(t, math.IsInf(Margin([]Candidate{{Peak: 0.4}}), 1))
	assert.True(t, math.IsInf(Margin([]Candidate{{Peak: 0.4}, {Peak: 0}}), 1))
	assert.InDelta(t, 1, Margin([]Candidate{{Peak: 0.4}, {Peak: 0.4}}), tolerance)
}
