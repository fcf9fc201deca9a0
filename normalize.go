// normalize.go: Row-wise and column-wise standardization.
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

// varianceFloor is the variance, relative to the squared mean, below which a series
// counts as constant. Rounding leaves a constant series with a variance near
// (ulp*mean)^2, far below it. The floor has no absolute part, so a series in small
// units standardizes exactly like the same series at unit scale.
const varianceFloor = 1e-24

// StandardizeRows returns a copy of m in which every row has zero mean and unit
// population variance (ddof=0).
//
// Returns ErrNumeric when a row is constant.
func StandardizeRows(m mat.Matrix) (*mat.Dense, error) {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)

	buf := getScratch(cols)
	defer putScratch(buf)

	for i := 0; i < rows; i++ {
		row := mat.Row(*buf, i, m)
		if !standardizeInPlace(row) {
			return nil, numericError("row %d has zero variance", i)
		}
		out.SetRow(i, row)
	}
	return out, nil
}

// StandardizeColumns returns a copy of m in which every column has zero mean and
// unit population variance (ddof=0).
//
// Returns ErrNumeric when a column is constant.
func StandardizeColumns(m mat.Matrix) (*mat.Dense, error) {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)

	buf := getScratch(rows)
	defer putScratch(buf)

	for j := 0; j < cols; j++ {
		col := mat.Col(*buf, j, m)
		if !standardizeInPlace(col) {
			return nil, numericError("column %d has zero variance", j)
		}
		out.SetCol(j, col)
	}
	return out, nil
}

// StandardizeVector returns a standardized copy of v.
//
// Returns ErrNumeric when v is constant.
func StandardizeVector(v []float64) ([]float64, error) {
	out := make([]float64, len(v))
	copy(out, v)
	if !standardizeInPlace(out) {
		return nil, numericError("series of length %d has zero variance", len(v))
	}
	return out, nil
}

// standardizeInPlace reports false, leaving x untouched, for empty, constant or NaN input.
func standardizeInPlace(x []float64) bool {
	if len(x) == 0 {
		return false
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	if !(variance > 0 && variance > varianceFloor*mean*mean) {
		return false
	}
	floats.AddConst(-mean, x)
	floats.Scale(1/math.Sqrt(variance), x)
	return true
}
