// errors.go: Error taxonomy for the correlation engine.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Public standard errors.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidArgument is returned for an out-of-range byte index, point of interest,
	// trace count, mode or parameter. Arguments are never clamped.
	ErrInvalidArgument = errors.New("cpa: invalid argument")

	// ErrNumeric is returned when a row, column or series has zero variance and
	// standardizing it would divide by zero.
	ErrNumeric = errors.New("cpa: numeric error")

	// ErrShapeMismatch is returned when trace and plaintext counts disagree or an
	// input has malformed dimensions.
	ErrShapeMismatch = errors.New("cpa: data shape mismatch")

	// ErrNoGroundTruth is returned when a key check is requested on a dataset without keys.
	ErrNoGroundTruth = errors.New("cpa: dataset carries no ground-truth keys")
)

// Error codes for rich error handling
const (
	ErrCodeInvalidArgument = "CPA_INVALID_ARGUMENT"
	ErrCodeNumeric         = "CPA_NUMERIC"
	ErrCodeShapeMismatch   = "CPA_SHAPE_MISMATCH"
	ErrCodeNoGroundTruth   = "CPA_NO_GROUND_TRUTH"
	ErrCodeKeyDecode       = "CPA_KEY_DECODE"
)

func invalidArgument(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeInvalidArgument, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrInvalidArgument, richErr)
}

func numericError(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeNumeric, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrNumeric, richErr)
}

func shapeMismatch(format string, args ...interface{}) error {
	richErr := goerrors.New(ErrCodeShapeMismatch, fmt.Sprintf(format, args...))
	return fmt.Errorf("%w: %w", ErrShapeMismatch, richErr)
}
