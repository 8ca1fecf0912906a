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

import (
	"bytes"
	"strings"
	"testing"

	"github.com/archivekit/xzkit/internal/checksum"
	"github.com/archivekit/xzkit/lzma"
)

// FuzzDecode feeds arbitrary bytes to Decode: it must never panic, and
// on any malformed input it must return an error rather than a
// silently short or fabricated output.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("not an xz stream"))
	f.Add(headerMagic[:])

	var valid bytes.Buffer
	if _, err := Encode(strings.NewReader("Hello, LZMA2!"), &valid, EncodeOptions{CheckKind: checksum.KindCRC32, LZMAParams: lzma.Default}); err == nil {
		f.Add(valid.Bytes())
		if valid.Len() > 4 {
			f.Add(valid.Bytes()[:valid.Len()/2])
		}
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		var out bytes.Buffer
		_, _ = Decode(bytes.NewReader(data), &out, DecodeOptions{})
	})
}

// FuzzDecodeVLI checks that DecodeVLI never panics and that any
// successfully decoded value re-encodes to exactly the bytes consumed.
func FuzzDecodeVLI(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7F})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, n, err := DecodeVLI(data)
		if err != nil {
			return
		}
		if n <= 0 || n > len(data) {
			t.Fatalf("DecodeVLI returned n=%d for input len %d", n, len(data))
		}
		if !bytes.Equal(EncodeVLI(nil, v), data[:n]) {
			t.Fatalf("DecodeVLI(%x) = %d consuming %d bytes, which does not re-encode canonically", data, v, n)
		}
	})
}
