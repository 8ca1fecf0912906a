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

import "github.com/archivekit/xzkit/rangecoder"

const (
	// MinMatchLen is the shortest length a MATCH or REP symbol can encode.
	MinMatchLen = 2
	// MaxMatchLen is the longest length a MATCH or REP symbol can encode:
	// 2 (minimum) + 8 (low) + 8 (mid) + 255 (high) = 273. spec.md §9
	// "Open questions" is explicit that this is 273, not 257 (that is the
	// unrelated RAR LZ77+Huffman maximum).
	MaxMatchLen = 273

	numPosBitsMax  = 4
	numPosStates   = 1 << numPosBitsMax
	lenLowBits     = 3
	lenMidBits     = 3
	lenHighBits    = 8
	lenLowSymbols  = 1 << lenLowBits
	lenMidSymbols  = 1 << lenMidBits
	lenHighSymbols = 1 << lenHighBits
)

// lenCoder implements the two-tier length subcoder shared by MATCH and
// REP lengths (spec.md §4.5 "Length coder"): one choice bit picks the
// low 3-bit tree (length 2..9, posState-dependent), a second choice bit
// picks the mid 3-bit tree (10..17, posState-dependent), and otherwise
// an 8-bit tree covers 18..273.
type lenCoder struct {
	choice  rangecoder.Prob
	choice2 rangecoder.Prob
	low     [numPosStates][]rangecoder.Prob
	mid     [numPosStates][]rangecoder.Prob
	high    []rangecoder.Prob
}

func newLenCoder() *lenCoder {
	lc := &lenCoder{
		choice:  rangecoder.ProbInit,
		choice2: rangecoder.ProbInit,
		high:    rangecoder.NewProbs(lenHighSymbols),
	}
	for i := range numPosStates {
		lc.low[i] = rangecoder.NewProbs(lenLowSymbols)
		lc.mid[i] = rangecoder.NewProbs(lenMidSymbols)
	}
	return lc
}

func (lc *lenCoder) reset() {
	lc.choice = rangecoder.ProbInit
	lc.choice2 = rangecoder.ProbInit
	rangecoder.ResetProbs(lc.high)
	for i := range numPosStates {
		rangecoder.ResetProbs(lc.low[i])
		rangecoder.ResetProbs(lc.mid[i])
	}
}

// decode returns length - MinMatchLen (0-based symbol).
func (lc *lenCoder) decode(rc *rangecoder.Decoder, posState int) (uint32, error) {
	bit, err := rc.DecodeBit(&lc.choice)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return rc.DecodeBitTree(lc.low[posState], lenLowBits)
	}
	bit, err = rc.DecodeBit(&lc.choice2)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		sym, err := rc.DecodeBitTree(lc.mid[posState], lenMidBits)
		if err != nil {
			return 0, err
		}
		return lenLowSymbols + sym, nil
	}
	sym, err := rc.DecodeBitTree(lc.high, lenHighBits)
	if err != nil {
		return 0, err
	}
	return lenLowSymbols + lenMidSymbols + sym, nil
}

// encode writes length - MinMatchLen (0-based symbol).
func (lc *lenCoder) encode(rc *rangecoder.Encoder, posState int, sym uint32) error {
	if sym < lenLowSymbols {
		if err := rc.EncodeBit(&lc.choice, 0); err != nil {
			return err
		}
		return rc.EncodeBitTree(lc.low[posState], lenLowBits, sym)
	}
	if err := rc.EncodeBit(&lc.choice, 1); err != nil {
		return err
	}
	sym -= lenLowSymbols
	if sym < lenMidSymbols {
		if err := rc.EncodeBit(&lc.choice2, 0); err != nil {
			return err
		}
		return rc.EncodeBitTree(lc.mid[posState], lenMidBits, sym)
	}
	if err := rc.EncodeBit(&lc.choice2, 1); err != nil {
		return err
	}
	sym -= lenMidSymbols
	return rc.EncodeBitTree(lc.high, lenHighBits, sym)
}
