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

package lzdict

import (
	"bytes"
	"testing"

	"github.com/archivekit/xzkit/internal/bitio"
)

func TestSelfOverlapCopy(t *testing.T) {
	t.Parallel()

	// "Distance-4 match overlapping itself 10x" boundary case (spec.md §8).
	d := New(64)
	for _, b := range []byte("ABCD") {
		d.PutByte(b)
	}
	if err := d.CopyMatch(4, 40); err != nil {
		t.Fatalf("CopyMatch: %v", err)
	}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	if err := d.FlushTo(sink, 44); err != nil {
		t.Fatalf("FlushTo: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("sink.Flush: %v", err)
	}

	want := "ABCD" + strings11("ABCD", 10)
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func strings11(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for range n {
		out = append(out, s...)
	}
	return string(out)
}

func TestInvalidDistance(t *testing.T) {
	t.Parallel()

	d := New(16)
	d.PutByte('x')
	if err := d.CopyMatch(0, 1); err == nil {
		t.Fatal("expected error for distance 0")
	}
	if err := d.CopyMatch(2, 1); err == nil {
		t.Fatal("expected error for distance beyond available data")
	}
}

func TestRingWrapAndReset(t *testing.T) {
	t.Parallel()

	d := New(4)
	for _, b := range []byte("ABCDEFGH") {
		d.PutByte(b)
	}
	if d.Available() != 4 {
		t.Fatalf("Available() = %d, want 4", d.Available())
	}
	b, err := d.Peek(1)
	if err != nil || b != 'H' {
		t.Fatalf("Peek(1) = %q, %v, want 'H', nil", b, err)
	}
	b, err = d.Peek(4)
	if err != nil || b != 'E' {
		t.Fatalf("Peek(4) = %q, %v, want 'E', nil", b, err)
	}

	d.Reset()
	if d.Available() != 0 {
		t.Fatalf("Available() after Reset = %d, want 0", d.Available())
	}
	if _, err := d.Peek(1); err == nil {
		t.Fatal("expected error peeking an empty dictionary")
	}
}
