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

// Package lzdict implements the LZ77 sliding-window dictionary LZMA
// decodes and encodes matches against: a ring buffer of up to 4 GiB with
// absolute position tracking and self-overlapping match copy.
package lzdict

import (
	"errors"
	"fmt"

	"github.com/archivekit/xzkit/internal/bitio"
)

// ErrInvalidDistance indicates a match distance of 0, or a distance
// that reaches outside the bytes written since the last reset.
var ErrInvalidDistance = errors.New("lzdict: invalid match distance")

// Dict is a ring-buffer LZ77 window. The zero value is not usable; use New.
type Dict struct {
	buf   []byte
	pos   int   // next write index, wraps at len(buf)
	total int64 // bytes written since the last Reset
	size  int
}

// New returns a Dict with the given dictionary size in bytes.
func New(size int) *Dict {
	return &Dict{buf: make([]byte, size), size: size}
}

// Reset clears the dictionary: no prior bytes are available afterward,
// though the backing array is reused.
func (d *Dict) Reset() {
	d.pos = 0
	d.total = 0
}

// Size returns the configured dictionary size.
func (d *Dict) Size() int { return d.size }

// Available returns how many bytes back a match or peek may reach.
func (d *Dict) Available() int {
	if d.total > int64(d.size) {
		return d.size
	}
	//nolint:gosec // bounded by d.size above
	return int(d.total)
}

// Pos returns the number of bytes produced since the last Reset,
// unsaturated — used for posState and literal-context computation.
func (d *Dict) Pos() int64 { return d.total }

// PutByte appends a single byte to the window.
func (d *Dict) PutByte(b byte) {
	d.buf[d.pos] = b
	d.pos++
	if d.pos == d.size {
		d.pos = 0
	}
	d.total++
}

// Peek returns the byte rel positions back from the write cursor; rel
// must be in [1, Available()].
func (d *Dict) Peek(rel int) (byte, error) {
	if rel < 1 || rel > d.Available() {
		return 0, fmt.Errorf("lzdict: peek %d outside available %d", rel, d.Available())
	}
	idx := d.pos - rel
	if idx < 0 {
		idx += d.size
	}
	return d.buf[idx], nil
}

// CopyMatch appends length bytes found distance back from the write
// cursor. distance == 0 is always invalid here (spec.md §4.4); the LZMA
// decoder only ever calls CopyMatch with distance = rep+1. Overlapping
// copies (distance < length) are copied one byte at a time so later
// bytes observe earlier ones, matching spec.md §4.4.
func (d *Dict) CopyMatch(distance, length int) error {
	if distance < 1 || distance > d.Available() {
		return ErrInvalidDistance
	}
	for range length {
		b, err := d.Peek(distance)
		if err != nil {
			return err
		}
		d.PutByte(b)
	}
	return nil
}

// FlushTo writes the n most-recently written bytes, in original stream
// order, to sink. This is the dictionary's only path for data leaving
// the window; callers never read the backing array directly.
func (d *Dict) FlushTo(sink *bitio.Sink, n int) error {
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := range n {
		b, err := d.Peek(n - i)
		if err != nil {
			return err
		}
		out[i] = b
	}
	return sink.Write(out)
}
