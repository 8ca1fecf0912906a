// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gameid.
//
// go-gameid is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gameid is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gameid.  If not, see <https://www.gnu.org/licenses/>.

// Package rangecoder implements the binary arithmetic coder that drives
// LZMA: an adaptive bitmodel encoder/decoder with carry propagation,
// 11-bit probabilities, and the fixed bittree/direct-bits helpers the
// LZMA symbol coders build on.
package rangecoder

import "errors"

// Prob is an 11-bit adaptive probability of the next bit being 0.
// It is never 0 and never 1<<ProbBits.
type Prob uint16

const (
	// ProbBits is the number of bits of precision in a Prob.
	ProbBits = 11
	// ProbInit is the initial value of every Prob: exactly in the middle.
	ProbInit Prob = 1 << (ProbBits - 1)
	// moveBits is the adaptation speed (spec.md §3 "Bit model").
	moveBits = 5

	topValue = 1 << 24
)

// NewProbs returns a slice of n Probs all initialized to ProbInit.
func NewProbs(n int) []Prob {
	p := make([]Prob, n)
	for i := range p {
		p[i] = ProbInit
	}
	return p
}

// ResetProbs reassigns every element of p to ProbInit in place.
func ResetProbs(p []Prob) {
	for i := range p {
		p[i] = ProbInit
	}
}

// ErrCorrupted indicates the encoded stream is not a valid range-coder
// bitstream (bad first byte, or nonzero code left over at stream end).
var ErrCorrupted = errors.New("rangecoder: corrupted stream")
