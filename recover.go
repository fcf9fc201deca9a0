// recover.go: Key byte selection from correlation surfaces and vectors.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Candidate is one key guess with its peak absolute correlation.
type Candidate struct {
	Guess  byte    `json:"guess"`
	Peak   float64 `json:"peak"`   // max |r| over samples (first order) or |r| (second order)
	Sample int     `json:"sample"` // time index of the peak, 0 for second order
}

// PeakPerGuess reduces a GuessCount x T surface to the largest |C[k][t]| of each row and
// the first sample index at which it occurs.
func PeakPerGuess(surface mat.Matrix) (peaks []float64, samples []int, err error) {
	rows, cols := surface.Dims()
	if rows != GuessCount || cols == 0 {
		return nil, nil, shapeMismatch("correlation surface is %d x %d, expected %d rows", rows, cols, GuessCount)
	}

	peaks = make([]float64, rows)
	samples = make([]int, rows)
	for k := 0; k < rows; k++ {
		best := -1.0
		for t := 0; t < cols; t++ {
			if v := math.Abs(surface.At(k, t)); v > best {
				best = v
				samples[k] = t
			}
		}
		peaks[k] = best
	}
	return peaks, samples, nil
}

// BestGuess returns argmax_k max_t |C[k][t]|. The lowest guess wins ties.
func BestGuess(surface mat.Matrix) (Candidate, error) {
	peaks, samples, err := PeakPerGuess(surface)
	if err != nil {
		return Candidate{}, err
	}
	k := floats.MaxIdx(peaks)
	return Candidate{Guess: byte(k), Peak: peaks[k], Sample: samples[k]}, nil
}

// BestGuessVector returns argmax_k |C[k]|. The lowest guess wins ties.
func BestGuessVector(correlations []float64) (Candidate, error) {
	if len(correlations) != GuessCount {
		return Candidate{}, shapeMismatch("correlation vector has %d entries, expected %d", len(correlations), GuessCount)
	}
	peaks := absolute(correlations)
	k := floats.MaxIdx(peaks)
	return Candidate{Guess: byte(k), Peak: peaks[k]}, nil
}

// Rank orders guesses by decreasing peak, keeping the lowest guess first among equal
// peaks, and returns the first k (all of them when k <= 0).
func Rank(peaks []float64, samples []int, k int) []Candidate {
	ranking := make([]Candidate, len(peaks))
	for g, peak := range peaks {
		ranking[g] = Candidate{Guess: byte(g), Peak: peak}
		if samples != nil {
			ranking[g].Sample = samples[g]
		}
	}
	slices.SortStableFunc(ranking, func(a, b Candidate) int {
		switch {
		case a.Peak > b.Peak:
			return -1
		case a.Peak < b.Peak:
			return 1
		}
		return 0
	})
	if k > 0 && k < len(ranking) {
		ranking = ranking[:k]
	}
	return ranking
}

// Margin is the ratio of the best peak to the second best. Values near 1 mean the
// winner is barely distinguishable; +Inf means every other guess scored zero.
func Margin(ranking []Candidate) float64 {
	if len(ranking) < 2 {
		return math.Inf(1)
	}
	if ranking[1].Peak == 0 {
		return math.Inf(1)
	}
	return ranking[0].Peak / ranking[1].Peak
}

func absolute(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}
