// params.go: Attack parameters for full-key recovery.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"runtime"
	"strings"
)

// Mode selects the correlation order used for each key byte.
type Mode int

const (
	// FirstOrder correlates hypotheses against every sample of the traces.
	FirstOrder Mode = iota
	// SecondOrder correlates hypotheses against the centered product of two samples.
	SecondOrder
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case FirstOrder:
		return "first-order"
	case SecondOrder:
		return "second-order"
	default:
		return "unknown"
	}
}

// ParseMode accepts "first-order"/"first"/"1" and "second-order"/"second"/"2".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first-order", "first", "1":
		return FirstOrder, nil
	case "second-order", "second", "2":
		return SecondOrder, nil
	}
	return 0, invalidArgument("unknown attack mode %q", s)
}

// WeakMargin is the best/second-best peak ratio under which a recovered byte is
// reported as unconvincing. The engine still returns the winner.
const WeakMargin = 1.1

// AttackParams configures RecoverFullKey.
//
// If a field is zero, the default is used. This mirrors how the rest of the library
// treats parameter structs.
//
// Example:
//
//	// Masked implementation, same points of interest for every byte
//	params := cpa.SecondOrderParams(120, 340)
//	result, err := cpa.RecoverFullKey(ds, 5000, params)
//
//	// Unprotected implementation with defaults (pass nil)
//	result, err := cpa.RecoverFullKey(ds, 500, nil)
type AttackParams struct {
	// Mode is the correlation order. Zero value is FirstOrder.
	Mode Mode `json:"mode"`

	// POI1 and POI2 are the sample indices combined by the second-order attack.
	// Ignored for FirstOrder.
	POI1 int `json:"poi1,omitempty"`
	POI2 int `json:"poi2,omitempty"`

	// BytePOIs optionally overrides POI1/POI2 per key byte. When set it must hold
	// exactly BlockSize pairs.
	BytePOIs [][2]int `json:"byte_pois,omitempty"`

	// Workers bounds the number of key bytes attacked concurrently.
	// If zero, runtime.NumCPU() is used.
	Workers int `json:"workers,omitempty"`
}

// FirstOrderParams returns parameters for an unprotected implementation.
func FirstOrderParams() *AttackParams {
	return &AttackParams{Mode: FirstOrder}
}

// SecondOrderParams returns parameters for a first-order masked implementation whose
// mask and masked value leak at poi1 and poi2 for every key byte.
func SecondOrderParams(poi1, poi2 int) *AttackParams {
	return &AttackParams{
		Mode: SecondOrder,
		POI1: poi1,
		POI2: poi2,
	}
}

// workers returns the effective worker count.
func (p *AttackParams) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// pois returns the points of interest for one key byte.
func (p *AttackParams) pois(targetByte int) (int, int) {
	if p.BytePOIs != nil {
		return p.BytePOIs[targetByte][0], p.BytePOIs[targetByte][1]
	}
	return p.POI1, p.POI2
}

// validate checks p against a trace length before any byte attack starts.
func (p *AttackParams) validate(samples int) error {
	if p.Workers < 0 {
		return invalidArgument("worker count %d is negative", p.Workers)
	}

	switch p.Mode {
	case FirstOrder:
		return nil
	case SecondOrder:
	default:
		return invalidArgument("unknown attack mode %d", int(p.Mode))
	}

	if p.BytePOIs != nil && len(p.BytePOIs) != BlockSize {
		return invalidArgument("per-byte points of interest hold %d pairs, expected %d", len(p.BytePOIs), BlockSize)
	}
	for b := 0; b < BlockSize; b++ {
		poi1, poi2 := p.pois(b)
		if poi1 < 0 || poi1 >= samples || poi2 < 0 || poi2 >= samples {
			return invalidArgument("points of interest (%d, %d) for byte %d outside [0, %d)", poi1, poi2, b, samples)
		}
	}
	return nil
}
