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

// Package xz implements the XZ container format: stream header/footer,
// block header and filter chain, the index, and the per-block integrity
// check, layered on top of the lzma2 chunk codec and the xzfilter
// preprocessors.
package xz

import (
	"errors"
	"fmt"
)

// VLIUnknown is the reserved all-ones value meaning "unknown" in the
// compressed/uncompressed size fields of a block header.
const VLIUnknown = ^uint64(0)

// ErrVLITooLong is returned when a variable-length integer takes more
// than the format's 9-byte maximum encoding, or is not in canonical
// (no redundant continuation bytes) form.
var ErrVLITooLong = errors.New("xz: variable-length integer malformed or non-canonical")

// DecodeVLI reads a little-endian base-128 variable-length integer
// (spec.md §4.9 "VLI"): each byte's low 7 bits are payload, the high bit
// marks continuation; at most 9 bytes may be used. Returns the decoded
// value and the number of bytes consumed.
func DecodeVLI(data []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < 9; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated", ErrVLITooLong)
		}
		b := data[i]
		v |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			if i > 0 && b == 0 {
				return 0, 0, fmt.Errorf("%w: non-canonical final byte", ErrVLITooLong)
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: exceeds 9 bytes", ErrVLITooLong)
}

// EncodeVLI appends v's canonical little-endian base-128 encoding to dst.
func EncodeVLI(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		dst = append(dst, b)
		return dst
	}
}

// VLILen reports how many bytes EncodeVLI would emit for v.
func VLILen(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
