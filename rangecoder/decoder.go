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

package rangecoder

import "github.com/archivekit/xzkit/internal/bitio"

// Decoder is a range-coder decoder reading from a bitio.Source.
//
// range is kept >= 1<<24 after every Normalize call, and code < range
// always holds for a well-formed stream (spec.md §3 "Range coder state").
type Decoder struct {
	src   *bitio.Source
	code  uint32
	rng   uint32
}

// NewDecoder reads and discards the leading byte (required to be zero)
// then loads the initial 4-byte code, per spec.md §4.3.
func NewDecoder(src *bitio.Source) (*Decoder, error) {
	var hdr [5]byte
	if err := src.ReadFull(hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != 0 {
		return nil, ErrCorrupted
	}
	d := &Decoder{
		src: src,
		rng: 0xFFFFFFFF,
		code: uint32(hdr[1])<<24 | uint32(hdr[2])<<16 |
			uint32(hdr[3])<<8 | uint32(hdr[4]),
	}
	return d, nil
}

func (d *Decoder) normalize() error {
	if d.rng < topValue {
		b, err := d.src.ReadByte()
		if err != nil {
			return err
		}
		d.rng <<= 8
		d.code = d.code<<8 | uint32(b)
	}
	return nil
}

// DecodeBit decodes one bit using and adapting *p.
func (d *Decoder) DecodeBit(p *Prob) (uint32, error) {
	if err := d.normalize(); err != nil {
		return 0, err
	}
	bound := (d.rng >> ProbBits) * uint32(*p)
	if d.code < bound {
		d.rng = bound
		*p += Prob((1<<ProbBits)-*p) >> moveBits
		return 0, nil
	}
	d.rng -= bound
	d.code -= bound
	*p -= *p >> moveBits
	return 1, nil
}

// DecodeDirectBits decodes numBits bits with a fixed 1/2 probability
// (no adaptive model, no prob array), MSB first.
func (d *Decoder) DecodeDirectBits(numBits int) (uint32, error) {
	var res uint32
	for ; numBits > 0; numBits-- {
		d.rng >>= 1
		d.code -= d.rng
		t := uint32(0) - (d.code >> 31)
		d.code += d.rng & t
		if err := d.normalize(); err != nil {
			return 0, err
		}
		res = (res << 1) + (t + 1)
	}
	return res, nil
}

// DecodeBitTree walks a 1<<numBits-leaf bittree rooted at probs[1],
// MSB first, and returns the decoded numBits-bit symbol.
func (d *Decoder) DecodeBitTree(probs []Prob, numBits int) (uint32, error) {
	m := uint32(1)
	for range numBits {
		bit, err := d.DecodeBit(&probs[m])
		if err != nil {
			return 0, err
		}
		m = (m << 1) | bit
	}
	return m - (1 << numBits), nil
}

// DecodeBitTreeReverse is like DecodeBitTree but emits bits LSB first,
// as used for the LZMA "align" distance coder.
func (d *Decoder) DecodeBitTreeReverse(probs []Prob, numBits int) (uint32, error) {
	m := uint32(1)
	var res uint32
	for i := range numBits {
		bit, err := d.DecodeBit(&probs[m])
		if err != nil {
			return 0, err
		}
		m = (m << 1) | bit
		res |= bit << i
	}
	return res, nil
}

// Finish verifies that no bits remain uncommitted: a well-formed stream
// always leaves code == 0 at its final boundary.
func (d *Decoder) Finish() error {
	if d.code != 0 {
		return ErrCorrupted
	}
	return nil
}
