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
	"errors"
	"fmt"

	"github.com/archivekit/xzkit/internal/checksum"
)

// ErrBadMagic is returned when a stream header or footer's magic bytes
// do not match the fixed XZ constants (spec.md §3 "XZ stream").
var ErrBadMagic = errors.New("xz: bad magic")

// ErrCorruptedData is returned for any structural violation that is not
// a checksum mismatch or truncation: an invalid control byte, an
// illegal state transition, an out-of-range field, or a reserved bit
// set (spec.md §7 "CorruptedData").
var ErrCorruptedData = errors.New("xz: corrupted data")

// ErrUnexpectedEOF is returned when the source ends in the middle of a
// structure (spec.md §7 "UnexpectedEof").
var ErrUnexpectedEOF = errors.New("xz: unexpected end of stream")

// ErrTruncated is returned when the source ends outside any legal
// stream boundary (spec.md §4.9 "End-of-source outside of a stream
// boundary is clean EOF; inside ⇒ Truncated").
var ErrTruncated = errors.New("xz: truncated stream")

// UnsupportedCheckError is returned when a stream declares a check
// kind this module does not recognize.
type UnsupportedCheckError struct {
	Kind byte
}

func (e *UnsupportedCheckError) Error() string {
	return fmt.Sprintf("xz: unsupported check type 0x%02x", e.Kind)
}

// ChecksumFailedError reports a mismatch between a stored integrity
// check and the value computed while reading.
type ChecksumFailedError struct {
	Kind     string
	Expected []byte
	Actual   []byte
}

func (e *ChecksumFailedError) Error() string {
	return fmt.Sprintf("xz: %s checksum mismatch: expected %x, got %x", e.Kind, e.Expected, e.Actual)
}

// DictionaryTooLargeError reports a declared dictionary size above the
// caller's memory-limit policy (spec.md §5 "Memory budget").
type DictionaryTooLargeError struct {
	Requested uint32
	Limit     uint32
}

func (e *DictionaryTooLargeError) Error() string {
	return fmt.Sprintf("xz: dictionary size %d exceeds limit %d", e.Requested, e.Limit)
}

// IndexMismatchError reports a disagreement between the index's
// declared per-block sizes and what was actually observed while
// decoding the stream's blocks.
type IndexMismatchError struct {
	Field    string
	Observed uint64
	Declared uint64
}

func (e *IndexMismatchError) Error() string {
	return fmt.Sprintf("xz: index mismatch on %s: observed %d, declared %d", e.Field, e.Observed, e.Declared)
}

func crc32Mismatch(kind string, expected, actual uint32) error {
	return &ChecksumFailedError{
		Kind:     kind,
		Expected: []byte{byte(expected), byte(expected >> 8), byte(expected >> 16), byte(expected >> 24)},
		Actual:   []byte{byte(actual), byte(actual >> 8), byte(actual >> 16), byte(actual >> 24)},
	}
}

func checkMismatch(kind checksum.Kind, expected, actual []byte) error {
	return &ChecksumFailedError{Kind: kind.String(), Expected: expected, Actual: actual}
}
