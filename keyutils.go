// keyutils.go: Key candidate encoding and ground-truth validation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package cpa

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// KeyCandidate is a recovered AES-128 key, one independently chosen byte per position.
type KeyCandidate [BlockSize]byte

// Hex encodes the candidate as 32 lowercase hexadecimal characters.
//
// Example:
//
//	res, _ := cpa.RecoverFullKey(ds, 500, nil)
//	fmt.Println("key:", res.Key.Hex()) // e.g. "2b7e151628aed2a6abf7158809cf4f3c"
func (k KeyCandidate) Hex() string {
	return hex.EncodeToString(k[:])
}

// String implements fmt.Stringer.
func (k KeyCandidate) String() string {
	return k.Hex()
}

// Base64 encodes the candidate for text-based storage.
func (k KeyCandidate) Base64() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// ParseKeyCandidate decodes a hexadecimal key of exactly BlockSize bytes.
// Upper and lower case digits are accepted.
func ParseKeyCandidate(s string) (KeyCandidate, error) {
	var k KeyCandidate
	raw, err := hex.DecodeString(s)
	if err != nil {
		return k, goerrors.Wrap(err, ErrCodeKeyDecode, "failed to decode hex key")
	}
	if len(raw) != BlockSize {
		return k, invalidArgument("key has %d bytes, expected %d", len(raw), BlockSize)
	}
	copy(k[:], raw)
	return k, nil
}

// KeyCandidateFromBase64 is the inverse of KeyCandidate.Base64.
func KeyCandidateFromBase64(s string) (KeyCandidate, error) {
	var k KeyCandidate
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, goerrors.Wrap(err, ErrCodeKeyDecode, "failed to decode base64 key")
	}
	if len(raw) != BlockSize {
		return k, invalidArgument("key has %d bytes, expected %d", len(raw), BlockSize)
	}
	copy(k[:], raw)
	return k, nil
}

// VerifyKey compares a candidate with the ground-truth key. CPA assumes one fixed key
// across the attacked traces, so every key row must be identical.
//
// Returns the per-byte match mask and the number of correct bytes, ErrNoGroundTruth
// when the dataset has no keys, or ErrShapeMismatch when the key varies across traces.
func (d *Dataset) VerifyKey(candidate KeyCandidate) ([BlockSize]bool, int, error) {
	var matches [BlockSize]bool
	if d.keys == nil {
		richErr := goerrors.New(ErrCodeNoGroundTruth, "dataset was built without a key set")
		return matches, 0, fmt.Errorf("%w: %w", ErrNoGroundTruth, richErr)
	}

	for i := 1; i < len(d.keys); i++ {
		if !bytes.Equal(d.keys[i], d.keys[0]) {
			return matches, 0, shapeMismatch("key of trace %d differs from the key of trace 0", i)
		}
	}

	correct := 0
	for b := range candidate {
		if candidate[b] == d.keys[0][b] {
			matches[b] = true
			correct++
		}
	}
	return matches, correct, nil
}
