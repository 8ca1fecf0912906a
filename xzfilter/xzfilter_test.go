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

package xzfilter

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, tr Transform, data []byte) {
	t.Helper()
	orig := bytes.Clone(data)
	tr.Encode(data)
	tr.Decode(data)
	if !bytes.Equal(data, orig) {
		t.Fatalf("round trip mismatch: got %v, want %v", data, orig)
	}
}

func TestDeltaRoundTrip(t *testing.T) {
	t.Parallel()

	tr, err := New(IDDelta, []byte{3}) // distance 4
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 7)
	}
	roundTrip(t, tr, data)
}

func TestBCJX86RoundTrip(t *testing.T) {
	t.Parallel()

	tr, err := New(IDBCJX86, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// A plausible x86 call sequence: E8 <rel32>, repeated.
	data := []byte{
		0xE8, 0x01, 0x02, 0x03, 0x00,
		0x90, 0x90,
		0xE8, 0x10, 0x20, 0x00, 0x00,
		0xC3,
	}
	roundTrip(t, tr, data)
}

func TestBCJARMRoundTrip(t *testing.T) {
	t.Parallel()

	tr, err := New(IDBCJARM, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte{0x01, 0x02, 0x03, 0xEB, 0x04, 0x05, 0x06, 0xEB}
	roundTrip(t, tr, data)
}

func TestBCJPowerPCRoundTrip(t *testing.T) {
	t.Parallel()

	tr, err := New(IDBCJPowerPC, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte{0x48, 0x00, 0x00, 0x01, 0x48, 0x00, 0x10, 0x01}
	roundTrip(t, tr, data)
}

func TestBCJSPARCRoundTrip(t *testing.T) {
	t.Parallel()

	tr, err := New(IDBCJSPARC, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte{0x40, 0x00, 0x00, 0x01, 0x7F, 0xFF, 0xFF, 0xFE}
	roundTrip(t, tr, data)
}

func TestUnsupportedFiltersRejected(t *testing.T) {
	t.Parallel()

	for _, id := range []ID{IDBCJIA64, IDBCJARM64, IDBCJRISCV} {
		if _, err := New(id, nil); err == nil {
			t.Fatalf("expected UnsupportedFilterError for id 0x%x", id)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if !IsTerminal(IDLZMA2) {
		t.Fatal("LZMA2 must be terminal")
	}
	if IsTerminal(IDDelta) {
		t.Fatal("Delta must not be terminal")
	}
}
