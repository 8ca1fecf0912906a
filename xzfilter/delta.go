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

import "fmt"

// deltaMinDistance and deltaMaxDistance bound the single properties byte
// (distance - 1) the Delta filter's header carries.
const (
	deltaMinDistance = 1
	deltaMaxDistance = 256
)

type delta struct {
	distance int
}

func newDelta(props []byte) (*delta, error) {
	if len(props) != 1 {
		return nil, fmt.Errorf("xzfilter: delta filter requires a 1-byte properties field, got %d", len(props))
	}
	dist := int(props[0]) + 1
	if dist < deltaMinDistance || dist > deltaMaxDistance {
		return nil, fmt.Errorf("xzfilter: delta distance %d out of range", dist)
	}
	return &delta{distance: dist}, nil
}

// Encode replaces each byte with its difference from the byte `distance`
// positions earlier, matching xz-utils' delta_encode.
func (d *delta) Encode(data []byte) {
	hist := make([]byte, d.distance)
	pos := 0
	for i, b := range data {
		prev := hist[pos]
		data[i] = b - prev
		hist[pos] = b
		pos++
		if pos == d.distance {
			pos = 0
		}
	}
}

// Decode reverses Encode: each byte is the running sum of itself and the
// reconstructed byte `distance` positions earlier.
func (d *delta) Decode(data []byte) {
	hist := make([]byte, d.distance)
	pos := 0
	for i, b := range data {
		v := b + hist[pos]
		data[i] = v
		hist[pos] = v
		pos++
		if pos == d.distance {
			pos = 0
		}
	}
}
