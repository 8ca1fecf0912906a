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

package rangecoder

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/archivekit/xzkit/internal/bitio"
)

// TestBitRoundTrip encodes then decodes a sequence of (probIndex, bit)
// pairs under a fixed sequence of probability accesses and checks the
// decoder recovers the same bits with prob in range throughout
// (spec.md §8, properties 3 and 6).
func TestBitRoundTrip(t *testing.T) {
	t.Parallel()

	const numProbs = 16
	const numSymbols = 20000

	rng := rand.New(rand.NewSource(1))
	indices := make([]int, numSymbols)
	bits := make([]uint32, numSymbols)
	for i := range numSymbols {
		indices[i] = rng.Intn(numProbs)
		bits[i] = uint32(rng.Intn(2))
	}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	encProbs := NewProbs(numProbs)
	enc := NewEncoder(sink)
	for i := range numSymbols {
		if err := enc.EncodeBit(&encProbs[indices[i]], bits[i]); err != nil {
			t.Fatalf("EncodeBit: %v", err)
		}
		assertProbInRange(t, encProbs[indices[i]])
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush sink: %v", err)
	}

	decProbs := NewProbs(numProbs)
	dec, err := NewDecoder(bitio.NewSource(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	for i := range numSymbols {
		got, err := dec.DecodeBit(&decProbs[indices[i]])
		if err != nil {
			t.Fatalf("DecodeBit[%d]: %v", i, err)
		}
		if got != bits[i] {
			t.Fatalf("bit %d: got %d, want %d", i, got, bits[i])
		}
		assertProbInRange(t, decProbs[indices[i]])
	}
	if err := dec.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func assertProbInRange(t *testing.T, p Prob) {
	t.Helper()
	if p < 1 || p > (1<<ProbBits)-1 {
		t.Fatalf("prob out of range: %d", p)
	}
}

func TestDirectBitsRoundTrip(t *testing.T) {
	t.Parallel()

	values := []struct {
		v    uint32
		bits int
	}{
		{0, 1}, {1, 1}, {0, 8}, {255, 8}, {12345, 16}, {0xFFFFFFFF, 32}, {1, 32},
	}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	enc := NewEncoder(sink)
	for _, v := range values {
		if err := enc.EncodeDirectBits(v.v&mask(v.bits), v.bits); err != nil {
			t.Fatalf("EncodeDirectBits: %v", err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush sink: %v", err)
	}

	dec, err := NewDecoder(bitio.NewSource(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	for _, v := range values {
		got, err := dec.DecodeDirectBits(v.bits)
		if err != nil {
			t.Fatalf("DecodeDirectBits: %v", err)
		}
		if want := v.v & mask(v.bits); got != want {
			t.Errorf("DecodeDirectBits(%d) = %d, want %d", v.bits, got, want)
		}
	}
}

func mask(bits int) uint32 {
	if bits >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << bits) - 1
}

func TestBitTreeRoundTrip(t *testing.T) {
	t.Parallel()

	const numBits = 6
	syms := []uint32{0, 1, 31, 63, 17, 42}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	enc := NewEncoder(sink)
	probs := NewProbs(1 << numBits)
	for _, s := range syms {
		if err := enc.EncodeBitTree(probs, numBits, s); err != nil {
			t.Fatalf("EncodeBitTree: %v", err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("Flush sink: %v", err)
	}

	dec, err := NewDecoder(bitio.NewSource(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	decProbs := NewProbs(1 << numBits)
	for _, want := range syms {
		got, err := dec.DecodeBitTree(decProbs, numBits)
		if err != nil {
			t.Fatalf("DecodeBitTree: %v", err)
		}
		if got != want {
			t.Errorf("DecodeBitTree = %d, want %d", got, want)
		}
	}
}

func TestMalformedFirstByte(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0, 0, 0, 0}
	if _, err := NewDecoder(bitio.NewSource(bytes.NewReader(data))); err == nil {
		t.Fatal("expected error for nonzero first byte")
	}
}
