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

// Package lzma implements the LZMA symbol decoder and encoder: the
// adaptive literal/match/rep/short-rep state machine, its length and
// distance subcoders, and the dictionary-backed match copy they drive.
package lzma

import (
	"errors"
	"fmt"
)

// Params carries the three LZMA property bits and the dictionary size.
type Params struct {
	LC       int // literal-context bits, 0..8
	LP       int // literal-position bits, 0..4
	PB       int // position bits, 0..4
	DictSize uint32
}

// Default matches the conventional xz/7-Zip default of lc=3, lp=0, pb=2.
var Default = Params{LC: 3, LP: 0, PB: 2, DictSize: 1 << 23}

// ErrInvalidParams indicates lc/lp/pb are out of range or violate the
// lc+lp <= 4 constraint from spec.md §3.
var ErrInvalidParams = errors.New("lzma: invalid lc/lp/pb parameters")

// Validate checks the hard constraints from spec.md §3: lc in [0,8],
// lp in [0,4], pb in [0,4], lc+lp <= 4.
func (p Params) Validate() error {
	if p.LC < 0 || p.LC > 8 {
		return fmt.Errorf("%w: lc=%d", ErrInvalidParams, p.LC)
	}
	if p.LP < 0 || p.LP > 4 {
		return fmt.Errorf("%w: lp=%d", ErrInvalidParams, p.LP)
	}
	if p.PB < 0 || p.PB > 4 {
		return fmt.Errorf("%w: pb=%d", ErrInvalidParams, p.PB)
	}
	if p.LC+p.LP > 4 {
		return fmt.Errorf("%w: lc+lp=%d > 4", ErrInvalidParams, p.LC+p.LP)
	}
	return nil
}

// PropByte packs lc/lp/pb into the single properties byte used by the
// LZMA-alone header and the LZMA2 properties byte: (pb*5+lp)*9+lc.
func (p Params) PropByte() (byte, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return byte((p.PB*5+p.LP)*9 + p.LC), nil
}

// ParseProps decodes a properties byte into lc/lp/pb, leaving DictSize
// untouched (callers fill it in separately, since its encoding differs
// between LZMA-alone and LZMA2).
func ParseProps(b byte) (Params, error) {
	if int(b) >= 9*5*5 {
		return Params{}, fmt.Errorf("%w: properties byte %d out of range", ErrInvalidParams, b)
	}
	lc := int(b) % 9
	rem := int(b) / 9
	lp := rem % 5
	pb := rem / 5
	p := Params{LC: lc, LP: lp, PB: pb}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// DictSizeFromLZMA2Byte implements the LZMA2 single-byte dictionary size
// encoding from spec.md §3: dict = (2 | (p&1)) << (p/2 + 11), p in
// [0,40]; p == 40 saturates to 0xFFFFFFFF.
func DictSizeFromLZMA2Byte(p byte) (uint32, error) {
	if p > 40 {
		return 0, fmt.Errorf("%w: lzma2 dict-size byte %d > 40", ErrInvalidParams, p)
	}
	if p == 40 {
		return 0xFFFFFFFF, nil
	}
	return (2 | (uint32(p) & 1)) << (uint32(p)/2 + 11), nil
}

// LZMA2ByteFromDictSize finds the smallest LZMA2 dictionary-size byte
// whose decoded size is >= size, the inverse of DictSizeFromLZMA2Byte.
func LZMA2ByteFromDictSize(size uint32) byte {
	for p := byte(0); p < 40; p++ {
		ds, _ := DictSizeFromLZMA2Byte(p)
		if ds >= size {
			return p
		}
	}
	return 40
}
