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

import (
	"github.com/archivekit/xzkit/lzdict"
	"github.com/archivekit/xzkit/rangecoder"
)

// minEncodeMatchLen is the shortest match the encoder bothers emitting;
// shorter runs cost more than they save against literal coding.
const minEncodeMatchLen = MinMatchLen

// Encoder mirrors Decoder's state machine on the write side: it emits
// literal, MATCH, REP and SHORT-REP symbols chosen by its caller.
// EncodeBuffer drives it over an input buffer, greedily taking the
// longest back-reference from a simple hash-chain match finder or from
// the four standing rep-distances.
type Encoder struct {
	rc     *rangecoder.Encoder
	dict   *lzdict.Dict
	params Params
	state  State
	reps   [4]uint32
	pos    int64

	isMatch    [NumStates][numPosStates]rangecoder.Prob
	isRep      [NumStates]rangecoder.Prob
	isRepG0    [NumStates]rangecoder.Prob
	isRepG1    [NumStates]rangecoder.Prob
	isRepG2    [NumStates]rangecoder.Prob
	isRep0Long [NumStates][numPosStates]rangecoder.Prob

	lenCoder    *lenCoder
	repLenCoder *lenCoder
	distCoder   *distCoder
	lit         *literalCoder
}

// NewEncoder builds a symbol encoder writing to rc and keeping
// dictionary history in dict (every Encode* call appends the bytes it
// codes to dict, so matched literals and rep distances see the same
// window the decoder will).
func NewEncoder(rc *rangecoder.Encoder, dict *lzdict.Dict, params Params) (*Encoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Encoder{
		rc:          rc,
		dict:        dict,
		params:      params,
		lenCoder:    newLenCoder(),
		repLenCoder: newLenCoder(),
		distCoder:   newDistCoder(),
		lit:         newLiteralCoder(params.LC, params.LP),
	}
	e.resetProbs()
	return e, nil
}

func (e *Encoder) ResetState() {
	e.state = 0
	e.reps = [4]uint32{}
}

func (e *Encoder) ResetProbs() {
	e.resetProbs()
	e.ResetState()
}

func (e *Encoder) resetProbs() {
	for i := range e.isMatch {
		rangecoder.ResetProbs(e.isMatch[i][:])
		rangecoder.ResetProbs(e.isRep0Long[i][:])
	}
	rangecoder.ResetProbs(e.isRep[:])
	rangecoder.ResetProbs(e.isRepG0[:])
	rangecoder.ResetProbs(e.isRepG1[:])
	rangecoder.ResetProbs(e.isRepG2[:])
	e.lenCoder.reset()
	e.repLenCoder.reset()
	e.distCoder.reset()
	e.lit.reset()
}

func (e *Encoder) SetPos(pos int64) { e.pos = pos }

func (e *Encoder) posState() int {
	mask := uint32(1)<<uint(e.params.PB) - 1
	return int(uint32(e.pos) & mask)
}

// EncodeLiteral emits a single uncompressed byte, choosing the normal or
// matched literal path from the current state exactly as the decoder's
// DecodeSymbol would select on the read side.
func (e *Encoder) EncodeLiteral(b byte) error {
	posState := e.posState()
	if err := e.rc.EncodeBit(&e.isMatch[e.state][posState], 0); err != nil {
		return err
	}
	var prev byte
	if e.dict.Available() > 0 {
		prev, _ = e.dict.Peek(1)
	}
	var err error
	if e.state.IsLiteralState() {
		err = e.lit.encodeNormal(e.rc, e.pos, prev, b)
	} else {
		matchByte, perr := e.dict.Peek(int(e.reps[0]) + 1)
		if perr != nil {
			return perr
		}
		err = e.lit.encodeMatched(e.rc, e.pos, prev, matchByte, b)
	}
	if err != nil {
		return err
	}
	e.dict.PutByte(b)
	e.pos++
	e.state = e.state.NextLiteral()
	return nil
}

// EncodeMatch emits a fresh (non-rep) MATCH symbol of the given distance
// (1-based, i.e. the same convention CopyMatch takes) and length, then
// advances the dictionary and rep-distance history.
func (e *Encoder) EncodeMatch(distance, length int) error {
	posState := e.posState()
	if err := e.rc.EncodeBit(&e.isMatch[e.state][posState], 1); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRep[e.state], 0); err != nil {
		return err
	}
	e.reps[3], e.reps[2], e.reps[1] = e.reps[2], e.reps[1], e.reps[0]
	e.reps[0] = uint32(distance - 1)

	lenSym := uint32(length - MinMatchLen)
	if err := e.lenCoder.encode(e.rc, posState, lenSym); err != nil {
		return err
	}
	e.state = e.state.NextMatch()
	if err := e.distCoder.encode(e.rc, lenSym, e.reps[0]); err != nil {
		return err
	}
	return e.applyMatch(distance, length)
}

// EncodeEOPM emits the end-of-payload marker: a fresh MATCH whose
// distance field is EOPMDistance. Used only by formats that terminate an
// LZMA stream without an externally known uncompressed size.
func (e *Encoder) EncodeEOPM() error {
	posState := e.posState()
	if err := e.rc.EncodeBit(&e.isMatch[e.state][posState], 1); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRep[e.state], 0); err != nil {
		return err
	}
	lenSym := uint32(0)
	if err := e.lenCoder.encode(e.rc, posState, lenSym); err != nil {
		return err
	}
	return e.distCoder.encode(e.rc, lenSym, EOPMDistance)
}

// EncodeRepMatch emits a REP symbol referencing one of the four standing
// distances (repIndex 0-3) and the given length.
func (e *Encoder) EncodeRepMatch(repIndex, length int) error {
	posState := e.posState()
	if err := e.rc.EncodeBit(&e.isMatch[e.state][posState], 1); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRep[e.state], 1); err != nil {
		return err
	}

	if repIndex == 0 {
		if err := e.rc.EncodeBit(&e.isRepG0[e.state], 0); err != nil {
			return err
		}
		if err := e.rc.EncodeBit(&e.isRep0Long[e.state][posState], 1); err != nil {
			return err
		}
	} else {
		if err := e.rc.EncodeBit(&e.isRepG0[e.state], 1); err != nil {
			return err
		}
		if repIndex == 1 {
			if err := e.rc.EncodeBit(&e.isRepG1[e.state], 0); err != nil {
				return err
			}
			e.reps[0], e.reps[1] = e.reps[1], e.reps[0]
		} else {
			if err := e.rc.EncodeBit(&e.isRepG1[e.state], 1); err != nil {
				return err
			}
			if repIndex == 2 {
				if err := e.rc.EncodeBit(&e.isRepG2[e.state], 0); err != nil {
					return err
				}
				e.reps[0], e.reps[1], e.reps[2] = e.reps[2], e.reps[0], e.reps[1]
			} else {
				if err := e.rc.EncodeBit(&e.isRepG2[e.state], 1); err != nil {
					return err
				}
				e.reps[0], e.reps[1], e.reps[2], e.reps[3] = e.reps[3], e.reps[0], e.reps[1], e.reps[2]
			}
		}
	}

	lenSym := uint32(length - MinMatchLen)
	if err := e.repLenCoder.encode(e.rc, posState, lenSym); err != nil {
		return err
	}
	e.state = e.state.NextRep()
	return e.applyMatch(int(e.reps[0])+1, length)
}

// EncodeShortRep emits a one-byte SHORT-REP symbol copying the byte at
// the current rep0 distance.
func (e *Encoder) EncodeShortRep() error {
	posState := e.posState()
	if err := e.rc.EncodeBit(&e.isMatch[e.state][posState], 1); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRep[e.state], 1); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRepG0[e.state], 0); err != nil {
		return err
	}
	if err := e.rc.EncodeBit(&e.isRep0Long[e.state][posState], 0); err != nil {
		return err
	}
	e.state = e.state.NextShortRep()
	return e.applyMatch(int(e.reps[0])+1, 1)
}

func (e *Encoder) applyMatch(distance, length int) error {
	if err := e.dict.CopyMatch(distance, length); err != nil {
		return err
	}
	e.pos += int64(length)
	return nil
}

// EncodeLiterals is a convenience helper for callers that do their own
// match finding and just need to push a literal run through the symbol
// encoder.
func (e *Encoder) EncodeLiterals(data []byte) error {
	for _, b := range data {
		if err := e.EncodeLiteral(b); err != nil {
			return err
		}
	}
	return nil
}
