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

package lzma2

import (
	"bytes"
	"strings"
	"testing"

	"github.com/archivekit/xzkit/lzma"
)

func TestRoundTripSingleChunk(t *testing.T) {
	t.Parallel()

	want := "Hello, LZMA2!" + strings.Repeat(" chunked stream ", 30)
	var buf bytes.Buffer
	if err := Encode(&buf, []byte(want), lzma.Default); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(buf.Bytes()), 1<<20); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestRoundTripMultiChunk(t *testing.T) {
	t.Parallel()

	// Force several independent chunks by feeding data bigger than the
	// per-chunk cap would allow in one pass, at a smaller synthetic cap
	// by repeating content so the match finder still does useful work.
	want := strings.Repeat("xzkit lzma2 chunk boundary test data. ", 5000)
	var buf bytes.Buffer
	if err := Encode(&buf, []byte(want), lzma.Default); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(buf.Bytes()), 1<<20); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.String() != want {
		t.Fatalf("round trip mismatch, got %d bytes want %d", out.Len(), len(want))
	}
}

func TestUncompressedChunkPreloadsDictionary(t *testing.T) {
	t.Parallel()

	// A raw uncompressed chunk (control 0x01, dictionary reset) directly
	// encoding "ABCDEFGH" (8 bytes, size field = 7), followed by End.
	stream := []byte{
		0x01, 0x00, 0x07,
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H',
		0x00,
	}
	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(stream), 1<<16); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.String() != "ABCDEFGH" {
		t.Fatalf("got %q, want %q", out.String(), "ABCDEFGH")
	}
}

func TestIllegalControlByteRejected(t *testing.T) {
	t.Parallel()

	stream := []byte{0x03, 0x00, 0x00}
	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(stream), 1<<16); err == nil {
		t.Fatal("expected error for illegal control byte 0x03")
	}
}

func TestCompressedChunkOverRawChunkLen(t *testing.T) {
	t.Parallel()

	// Hand-build a single compressed chunk whose declared uncompressed
	// size exceeds the 64 KiB that a raw Uncompressed chunk's 16-bit
	// size field can express. The 21-bit uncompressed-size field a
	// compressed chunk's control byte carries (spec.md §3/§4.7) allows
	// up to 2 MiB; a decoder that mistakenly reuses the Uncompressed
	// chunk's 64 KiB ceiling here would reject this chunk even though
	// it is perfectly valid LZMA2.
	chunk := bytes.Repeat([]byte("xzkit oversized lzma2 chunk data "), 3000)
	if len(chunk) <= 1<<16 {
		t.Fatalf("test chunk too small to exercise the bug: %d bytes", len(chunk))
	}

	var buf bytes.Buffer
	if err := encodeChunk(&buf, chunk, lzma.Default); err != nil {
		t.Fatalf("encodeChunk: %v", err)
	}
	buf.WriteByte(controlEnd)

	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(buf.Bytes()), 1<<21); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out.Bytes(), chunk) {
		t.Fatalf("round trip mismatch for oversized chunk: got %d bytes, want %d", out.Len(), len(chunk))
	}
}

func TestEmptyStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, nil, lzma.Default); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != 1 || buf.Bytes()[0] != controlEnd {
		t.Fatalf("empty encode = %v, want single End byte", buf.Bytes())
	}
	var out bytes.Buffer
	if err := Decode(&out, bytes.NewReader(buf.Bytes()), 1<<16); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("got %d bytes, want 0", out.Len())
	}
}
