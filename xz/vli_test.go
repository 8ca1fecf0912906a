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

package xz

import "testing"

func TestVLIRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1 << 40, 1<<63 - 1}
	for _, v := range cases {
		enc := EncodeVLI(nil, v)
		got, n, err := DecodeVLI(enc)
		if err != nil {
			t.Fatalf("DecodeVLI(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("DecodeVLI round trip: got %d, want %d", got, v)
		}
		if n != len(enc) {
			t.Fatalf("DecodeVLI consumed %d bytes, EncodeVLI emitted %d", n, len(enc))
		}
		if n != VLILen(v) {
			t.Fatalf("VLILen(%d) = %d, want %d", v, VLILen(v), n)
		}
	}
}

func TestVLINonCanonicalRejected(t *testing.T) {
	t.Parallel()

	// 0x80, 0x00 encodes zero using two bytes instead of one: a
	// continuation bit followed by a final zero byte is never canonical.
	_, _, err := DecodeVLI([]byte{0x80, 0x00})
	if err == nil {
		t.Fatal("expected error for non-canonical VLI encoding")
	}
}

func TestVLITruncated(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeVLI([]byte{0x80, 0x80})
	if err == nil {
		t.Fatal("expected error for truncated VLI")
	}
}

func TestVLITooLong(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := DecodeVLI(buf)
	if err == nil {
		t.Fatal("expected error for a VLI exceeding 9 bytes")
	}
}
