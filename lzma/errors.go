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

package lzma

import "errors"

// ErrInvalidDistance is returned when a decoded MATCH or REP0-long
// distance exceeds the dictionary's available history.
var ErrInvalidDistance = errors.New("lzma: match distance exceeds available history")

// ErrUnexpectedEOPM is returned by callers that decode a fixed-length
// payload (LZMA2 chunks, LZMA-alone with a known size) and encounter an
// end-of-payload marker before the expected number of bytes were
// produced.
var ErrUnexpectedEOPM = errors.New("lzma: unexpected end-of-payload marker")

// ErrOutputLimitExceeded is returned when decoding would produce more
// bytes than the caller declared it expects.
var ErrOutputLimitExceeded = errors.New("lzma: decoded output exceeds declared limit")
