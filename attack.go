// attack.go: Single-byte CPA attacks and full-key recovery.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// ByteResult is the outcome of one key byte attack plus the data needed to judge it.
type ByteResult struct {
	TargetByte int  `json:"target_byte"` // Key byte index in [0, BlockSize)
	Mode       Mode `json:"mode"`        // Correlation order used
	NumTraces  int  `json:"num_traces"`  // Length of the trace prefix attacked

	BestGuess  byte    `json:"best_guess"`  // argmax of the peak absolute correlation
	Peak       float64 `json:"peak"`        // |r| of the best guess
	PeakSample int     `json:"peak_sample"` // Sample index of the peak (first order only)
	Margin     float64 `json:"margin"`      // Best peak over second-best peak

	Surface *mat.Dense  `json:"-"`       // GuessCount x T correlations (first order)
	Vector  []float64   `json:"-"`       // GuessCount correlations (second order)
	Peaks   []float64   `json:"-"`       // Peak |r| per guess
	Ranking []Candidate `json:"ranking"` // All guesses by decreasing peak

	Elapsed time.Duration `json:"elapsed"`
}

// KeyResult is a full 16-byte key candidate assembled from independent byte attacks.
type KeyResult struct {
	Key         KeyCandidate           `json:"key"`
	Bytes       [BlockSize]*ByteResult `json:"bytes"`
	Mode        Mode                   `json:"mode"`
	NumTraces   int                    `json:"num_traces"`
	Fingerprint string                 `json:"fingerprint"` // Dataset.Fingerprint of the attacked prefix
	StartedAt   time.Time              `json:"started_at"`
	Elapsed     time.Duration          `json:"elapsed"`
}

// WeakBytes returns the byte indices whose margin is below WeakMargin.
func (r *KeyResult) WeakBytes() []int {
	var weak []int
	for b, br := range r.Bytes {
		if br != nil && br.Margin < WeakMargin {
			weak = append(weak, b)
		}
	}
	return weak
}

// AttackFirstOrder recovers one key byte by correlating the Hamming-weight hypotheses
// against every sample of the first numTraces traces.
//
// Parameters:
//   - ds: the dataset, borrowed read-only
//   - targetByte: key byte index in [0, BlockSize)
//   - numTraces: prefix length in [1, ds.Len()]
//
// Returns:
//   - The best guess with the GuessCount x T correlation surface
//   - ErrInvalidArgument, ErrShapeMismatch or ErrNumeric on failure
//
// Example:
//
//	res, err := cpa.AttackFirstOrder(ds, 0, 500)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("k[0] = %02x (|r| = %.3f at sample %d)\n", res.BestGuess, res.Peak, res.PeakSample)
func AttackFirstOrder(ds *Dataset, targetByte, numTraces int) (*ByteResult, error) {
	start := time.Now()

	batch, h, err := prepare(ds, targetByte, numTraces)
	if err != nil {
		return nil, err
	}

	surface, err := CorrelateFirstOrder(h, batch.traces)
	if err != nil {
		return nil, err
	}

	peaks, samples, err := PeakPerGuess(surface)
	if err != nil {
		return nil, err
	}
	// Stable ranking puts the lowest guess first among equal peaks, as BestGuess does
	ranking := Rank(peaks, samples, 0)
	best := ranking[0]

	return &ByteResult{
		TargetByte: targetByte,
		Mode:       FirstOrder,
		NumTraces:  numTraces,
		BestGuess:  best.Guess,
		Peak:       best.Peak,
		PeakSample: best.Sample,
		Margin:     Margin(ranking),
		Surface:    surface,
		Peaks:      peaks,
		Ranking:    ranking,
		Elapsed:    time.Since(start),
	}, nil
}

// AttackSecondOrder recovers one key byte of a first-order masked implementation by
// correlating the hypotheses against the centered product of samples poi1 and poi2.
//
// Parameters:
//   - ds: the dataset, borrowed read-only
//   - targetByte: key byte index in [0, BlockSize)
//   - poi1, poi2: sample indices in [0, T), typically the mask and the masked value
//   - numTraces: prefix length in [1, ds.Len()]
//
// Returns:
//   - The best guess with the GuessCount correlation vector
//   - ErrInvalidArgument, ErrShapeMismatch or ErrNumeric on failure
func AttackSecondOrder(ds *Dataset, targetByte, poi1, poi2, numTraces int) (*ByteResult, error) {
	start := time.Now()

	batch, h, err := prepare(ds, targetByte, numTraces)
	if err != nil {
		return nil, err
	}

	vector, err := CorrelateSecondOrder(h, batch.traces, poi1, poi2)
	if err != nil {
		return nil, err
	}

	if len(vector) != GuessCount {
		return nil, shapeMismatch("correlation vector has %d entries, expected %d", len(vector), GuessCount)
	}
	peaks := absolute(vector)
	ranking := Rank(peaks, nil, 0)
	best := ranking[0]

	return &ByteResult{
		TargetByte: targetByte,
		Mode:       SecondOrder,
		NumTraces:  numTraces,
		BestGuess:  best.Guess,
		Peak:       best.Peak,
		Margin:     Margin(ranking),
		Vector:     vector,
		Peaks:      peaks,
		Ranking:    ranking,
		Elapsed:    time.Since(start),
	}, nil
}

// prepare validates the common arguments and builds the hypothesis matrix.
func prepare(ds *Dataset, targetByte, numTraces int) (*Dataset, *mat.Dense, error) {
	if ds == nil {
		return nil, nil, shapeMismatch("dataset is nil")
	}
	if targetByte < 0 || targetByte >= BlockSize {
		return nil, nil, invalidArgument("target byte %d outside [0, %d)", targetByte, BlockSize)
	}
	batch, err := ds.Prefix(numTraces)
	if err != nil {
		return nil, nil, err
	}
	h, err := BuildHypotheses(batch.plaintexts, targetByte, numTraces)
	if err != nil {
		return nil, nil, err
	}
	return batch, h, nil
}

// RecoverFullKey runs the attack selected by params on every key byte and assembles
// the 16-byte candidate. Byte attacks are independent and run on a bounded worker pool;
// each worker writes only its own slot, so the result does not depend on scheduling.
//
// If params is nil, FirstOrderParams() is used.
//
// Returns the error of the lowest failing byte index, wrapped with that index.
//
// Example:
//
//	res, err := cpa.RecoverFullKey(ds, 5000, cpa.SecondOrderParams(120, 340))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("key candidate:", res.Key.Hex())
func RecoverFullKey(ds *Dataset, numTraces int, params *AttackParams) (*KeyResult, error) {
	if ds == nil {
		return nil, shapeMismatch("dataset is nil")
	}
	if params == nil {
		params = FirstOrderParams()
	}
	if err := params.validate(ds.Samples()); err != nil {
		return nil, err
	}
	batch, err := ds.Prefix(numTraces)
	if err != nil {
		return nil, err
	}

	result := &KeyResult{
		Mode:        params.Mode,
		NumTraces:   numTraces,
		Fingerprint: batch.Fingerprint(),
		StartedAt:   timecache.CachedTime().UTC(),
	}
	start := time.Now()

	var errs [BlockSize]error
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := params.workers()
	if workers > BlockSize {
		workers = BlockSize
	}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for b := range jobs {
				result.Bytes[b], errs[b] = attackByte(batch, b, numTraces, params)
			}
		}()
	}
	for b := 0; b < BlockSize; b++ {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	for b, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("key byte %d: %w", b, err)
		}
	}

	for b, br := range result.Bytes {
		result.Key[b] = br.BestGuess
		glog.V(1).Infof("cpa: %s byte %2d = %02x (|r| %.4f, margin %.2f, %s)",
			params.Mode, b, br.BestGuess, br.Peak, br.Margin, br.Elapsed)
		if br.Margin < WeakMargin {
			glog.Warningf("cpa: byte %d peak is not distinct (margin %.3f); consider more traces", b, br.Margin)
		}
	}
	result.Elapsed = time.Since(start)

	glog.V(1).Infof("cpa: recovered %s from %d traces of %s in %s",
		result.Key.Hex(), numTraces, result.Fingerprint, result.Elapsed)
	return result, nil
}

func attackByte(ds *Dataset, targetByte, numTraces int, params *AttackParams) (*ByteResult, error) {
	if params.Mode == SecondOrder {
		poi1, poi2 := params.pois(targetByte)
		return AttackSecondOrder(ds, targetByte, poi1, poi2, numTraces)
	}
	return AttackFirstOrder(ds, targetByte, numTraces)
}
