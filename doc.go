// Package cpa provides a Correlation Power Analysis engine for AES-128.
//
// Given power traces captured during encryptions and the matching known plaintexts,
// the engine correlates a Hamming-weight prediction of the first-round S-box output
// against the measured samples and reports, per key byte, the guess with the highest
// absolute correlation together with the full correlation data.
//
// The package offers:
//   - A Hamming-weight leakage model over the AES S-box (Leak)
//   - Hypothesis matrix construction for one key byte (BuildHypotheses)
//   - Population standardization of rows, columns and series (StandardizeRows, ...)
//   - First-order correlation as a single dense matrix product (CorrelateFirstOrder)
//   - Second-order correlation on the centered product of two samples (CorrelateSecondOrder)
//   - Stable argmax key byte selection and top-K ranking (BestGuess, Rank, Margin)
//   - Full 16-byte key recovery on a bounded worker pool (RecoverFullKey)
//   - Pluggable trace sources, in process or behind go-plugins (SourceManager, MemorySource)
//   - Synthetic trace generation for calibration (Simulate)
//
// # Quick Start
//
// First-order attack on one key byte:
//
//	ds, err := cpa.NewDatasetFromRows(traces, plaintexts, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := cpa.AttackFirstOrder(ds, 0, 500)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("k[0] = %02x, |r| = %.3f at sample %d\n", res.BestGuess, res.Peak, res.PeakSample)
//
// Full key, masked implementation:
//
//	res, err := cpa.RecoverFullKey(ds, 5000, cpa.SecondOrderParams(120, 340))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Key.Hex(), res.WeakBytes())
//
// # Error Handling
//
// Failures wrap one of three sentinels and carry a rich error from
// github.com/agilira/go-errors:
//
//	_, err := cpa.AttackFirstOrder(ds, 3, 500)
//	switch {
//	case errors.Is(err, cpa.ErrInvalidArgument):
//		// byte index, point of interest or trace count out of range
//	case errors.Is(err, cpa.ErrNumeric):
//		// a hypothesis row, trace column or centered product is constant
//	case errors.Is(err, cpa.ErrShapeMismatch):
//		// traces and plaintexts disagree
//	}
//
// The engine never returns NaN correlations and never retries: the computation is
// deterministic, so a retry needs corrected arguments.
//
// # Logging
//
// RecoverFullKey logs per-byte progress through github.com/golang/glog at verbosity 1
// and warns when a byte's best peak is within WeakMargin of the runner-up.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package cpa
