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

// Encoder is a range-coder encoder writing to a bitio.Sink.
//
// low is tracked as a 64-bit value so the carry out of bit 32 can be
// detected directly instead of with a separate carry flag; cache/
// cacheSize hold the run of pending 0xFF bytes a carry might still
// need to ripple through (spec.md §3 "Range coder state").
type Encoder struct {
	dst       *bitio.Sink
	low       uint64
	rng       uint32
	cache     byte
	cacheSize int64
}

// NewEncoder returns a fresh Encoder writing to dst.
func NewEncoder(dst *bitio.Sink) *Encoder {
	return &Encoder{dst: dst, rng: 0xFFFFFFFF, cacheSize: 1}
}

func (e *Encoder) shiftLow() error {
	if uint32(e.low>>32) != 0 || e.low < 0xFF000000 {
		temp := e.cache
		carry := byte(e.low >> 32)
		for {
			if err := e.dst.WriteByte(temp + carry); err != nil {
				return err
			}
			temp = 0xFF
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = (e.low << 8) & 0xFFFFFFFF
	return nil
}

// EncodeBit encodes bit (0 or 1) using and adapting *p.
func (e *Encoder) EncodeBit(p *Prob, bit uint32) error {
	bound := (e.rng >> ProbBits) * uint32(*p)
	if bit == 0 {
		e.rng = bound
		*p += Prob((1<<ProbBits)-*p) >> moveBits
	} else {
		e.low += uint64(bound)
		e.rng -= bound
		*p -= *p >> moveBits
	}
	for e.rng < topValue {
		e.rng <<= 8
		if err := e.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

// EncodeDirectBits encodes the low numBits bits of v, MSB first, with
// no adaptive model.
func (e *Encoder) EncodeDirectBits(v uint32, numBits int) error {
	for numBits--; numBits >= 0; numBits-- {
		e.rng >>= 1
		if (v>>uint(numBits))&1 != 0 {
			e.low += uint64(e.rng)
		}
		for e.rng < topValue {
			e.rng <<= 8
			if err := e.shiftLow(); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeBitTree encodes the low numBits bits of sym (MSB first) through
// the bittree rooted at probs[1].
func (e *Encoder) EncodeBitTree(probs []Prob, numBits int, sym uint32) error {
	m := uint32(1)
	for i := numBits - 1; i >= 0; i-- {
		bit := (sym >> uint(i)) & 1
		if err := e.EncodeBit(&probs[m], bit); err != nil {
			return err
		}
		m = (m << 1) | bit
	}
	return nil
}

// EncodeBitTreeReverse encodes sym LSB first through the bittree rooted
// at probs[1], the mirror of DecodeBitTreeReverse.
func (e *Encoder) EncodeBitTreeReverse(probs []Prob, numBits int, sym uint32) error {
	m := uint32(1)
	for i := range numBits {
		bit := (sym >> uint(i)) & 1
		if err := e.EncodeBit(&probs[m], bit); err != nil {
			return err
		}
		m = (m << 1) | bit
	}
	return nil
}

// Flush drains the final cached byte and any pending 0xFF run, emitting
// exactly 5 bytes as the decoder's Init expects to consume.
func (e *Encoder) Flush() error {
	for range 5 {
		if err := e.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}
