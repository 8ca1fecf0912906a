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

const literalProbsPerContext = 0x300

// literalCoder implements the LZMA literal subcoder (spec.md §4.5
// "Literal coder"): one 0x300-probability context per (position-low-bits,
// previous-byte-high-bits) pair, with a "matched" decode path used right
// after a MATCH/REP symbol that mixes in the byte already sitting in the
// dictionary at the current match distance.
type literalCoder struct {
	lc, lp int
	probs  [][]rangecoder.Prob
}

func newLiteralCoder(lc, lp int) *literalCoder {
	n := 1 << (lc + lp)
	probs := make([][]rangecoder.Prob, n)
	for i := range probs {
		probs[i] = rangecoder.NewProbs(literalProbsPerContext)
	}
	return &literalCoder{lc: lc, lp: lp, probs: probs}
}

func (l *literalCoder) reset() {
	for _, p := range l.probs {
		rangecoder.ResetProbs(p)
	}
}

// litState computes the context index from spec.md §4.5:
// ((pos & ((1<<lp)-1)) << lc) + (prevByte >> (8-lc)).
func (l *literalCoder) litState(pos int64, prevByte byte) int {
	lpMask := uint32(1)<<uint(l.lp) - 1
	posLow := uint32(pos) & lpMask
	var prevHigh byte
	if l.lc > 0 {
		prevHigh = prevByte >> uint(8-l.lc)
	}
	return int(posLow<<uint(l.lc)) + int(prevHigh)
}

// decodeNormal decodes a literal with no preceding match context (state
// is a literal state, or this is the very first byte of the stream).
func (l *literalCoder) decodeNormal(rc *rangecoder.Decoder, pos int64, prevByte byte) (byte, error) {
	probs := l.probs[l.litState(pos, prevByte)]
	symbol := uint32(1)
	for symbol < 0x100 {
		bit, err := rc.DecodeBit(&probs[symbol])
		if err != nil {
			return 0, err
		}
		symbol = (symbol << 1) | bit
	}
	return byte(symbol), nil
}

// decodeMatched decodes a literal immediately following a MATCH/REP
// symbol, mixing in matchByte (the byte at the current match distance in
// the dictionary) per spec.md §4.5's matched-literal path.
func (l *literalCoder) decodeMatched(rc *rangecoder.Decoder, pos int64, prevByte, matchByte byte) (byte, error) {
	probs := l.probs[l.litState(pos, prevByte)]
	symbol := uint32(1)
	mb := uint32(matchByte)
	for symbol < 0x100 {
		mb <<= 1
		matchBit := mb & 0x100
		bit, err := rc.DecodeBit(&probs[0x100+matchBit+symbol])
		if err != nil {
			return 0, err
		}
		symbol = (symbol << 1) | bit
		if matchBit != bit<<8 {
			for symbol < 0x100 {
				bit, err := rc.DecodeBit(&probs[symbol])
				if err != nil {
					return 0, err
				}
				symbol = (symbol << 1) | bit
			}
			break
		}
	}
	return byte(symbol), nil
}

func (l *literalCoder) encodeNormal(rc *rangecoder.Encoder, pos int64, prevByte, b byte) error {
	probs := l.probs[l.litState(pos, prevByte)]
	symbol := uint32(b) | 0x100
	for i := 7; i >= 0; i-- {
		bit := (symbol >> uint(i)) & 1
		ctx := symbol >> uint(i+1)
		if err := rc.EncodeBit(&probs[ctx], bit); err != nil {
			return err
		}
	}
	return nil
}

func (l *literalCoder) encodeMatched(rc *rangecoder.Encoder, pos int64, prevByte, matchByte, b byte) error {
	probs := l.probs[l.litState(pos, prevByte)]
	symbol := uint32(b) | 0x100
	mb := uint32(matchByte)
	offset := uint32(0x100)
	for i := 7; i >= 0; i-- {
		mb <<= 1
		matchBit := mb & 0x100
		bit := (symbol >> uint(i)) & 1
		ctx := offset + matchBit + (symbol >> uint(i+1))
		if err := rc.EncodeBit(&probs[ctx], bit); err != nil {
			return err
		}
		if matchBit != bit<<8 {
			offset = 0
			for i--; i >= 0; i-- {
				bit := (symbol >> uint(i)) & 1
				ctx := symbol >> uint(i+1)
				if err := rc.EncodeBit(&probs[ctx], bit); err != nil {
					return err
				}
			}
			break
		}
	}
	return nil
}
