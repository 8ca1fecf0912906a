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
	"fmt"

	"github.com/archivekit/xzkit/lzdict"
	"github.com/archivekit/xzkit/rangecoder"
)

// Decoder drives the LZMA symbol state machine (spec.md §4.6 "Symbol
// decode loop"): it reads LITERAL/MATCH/REP/SHORT-REP symbols off a
// range decoder and materializes them into a dictionary window.
type Decoder struct {
	rc     *rangecoder.Decoder
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

// NewDecoder builds a symbol decoder reading from rc and materializing
// output into dict. dict is supplied (not owned) so LZMA2 chunk framing
// can preserve it across range-decoder resets.
func NewDecoder(rc *rangecoder.Decoder, dict *lzdict.Dict, params Params) (*Decoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{
		rc:          rc,
		dict:        dict,
		params:      params,
		lenCoder:    newLenCoder(),
		repLenCoder: newLenCoder(),
		distCoder:   newDistCoder(),
		lit:         newLiteralCoder(params.LC, params.LP),
	}
	d.resetProbs()
	return d, nil
}

// ResetState resets the state machine (S=0, reps={0,0,0,0}) without
// touching the probability model, matching an LZMA2 "state reset"
// control byte.
func (d *Decoder) ResetState() {
	d.state = 0
	d.reps = [4]uint32{}
}

// ResetProbs resets the adaptive probability model, matching an LZMA2
// "state + props reset" control byte. It implies ResetState.
func (d *Decoder) ResetProbs() {
	d.resetProbs()
	d.ResetState()
}

func (d *Decoder) resetProbs() {
	for i := range d.isMatch {
		rangecoder.ResetProbs(d.isMatch[i][:])
		rangecoder.ResetProbs(d.isRep0Long[i][:])
	}
	rangecoder.ResetProbs(d.isRep[:])
	rangecoder.ResetProbs(d.isRepG0[:])
	rangecoder.ResetProbs(d.isRepG1[:])
	rangecoder.ResetProbs(d.isRepG2[:])
	d.lenCoder.reset()
	d.repLenCoder.reset()
	d.distCoder.reset()
	d.lit.reset()
}

// Rebind points the decoder at a fresh range decoder while preserving
// probability model, state, and rep-distance history; LZMA2 uses this
// to give each compressed chunk its own range-coder instance without
// disturbing the adaptive model chunks are allowed to share.
func (d *Decoder) Rebind(rc *rangecoder.Decoder) { d.rc = rc }

// SetPos sets the output-position counter used for posState and literal
// litState computation; LZMA2 resets this to 0 at the start of every
// dictionary-reset chunk and otherwise lets it run across chunks.
func (d *Decoder) SetPos(pos int64) { d.pos = pos }

// Pos returns the running output-position counter. Unlike the backing
// dictionary's Available(), this never saturates when the ring buffer
// wraps, so callers driving a stop condition across many chunks must use
// this instead of the dictionary's byte count.
func (d *Decoder) Pos() int64 { return d.pos }

func (d *Decoder) posState() int {
	mask := uint32(1)<<uint(d.params.PB) - 1
	return int(uint32(d.pos) & mask)
}

func (d *Decoder) prevByte() byte {
	if d.dict.Available() == 0 {
		return 0
	}
	b, _ := d.dict.Peek(1)
	return b
}

// DecodeSymbol decodes and materializes one symbol. It reports done=true
// when the symbol decoded was the end-of-payload marker (a MATCH whose
// distance field is EOPMDistance); no byte is produced in that case.
func (d *Decoder) DecodeSymbol() (done bool, err error) {
	posState := d.posState()
	bit, err := d.rc.DecodeBit(&d.isMatch[d.state][posState])
	if err != nil {
		return false, err
	}
	if bit == 0 {
		return false, d.decodeLiteral()
	}

	bit, err = d.rc.DecodeBit(&d.isRep[d.state])
	if err != nil {
		return false, err
	}
	if bit == 0 {
		return d.decodeMatch(posState)
	}
	return false, d.decodeRepMatch(posState)
}

func (d *Decoder) decodeLiteral() error {
	prev := d.prevByte()
	var b byte
	var err error
	if d.state.IsLiteralState() {
		b, err = d.lit.decodeNormal(d.rc, d.pos, prev)
	} else {
		matchByte, perr := d.dict.Peek(int(d.reps[0]) + 1)
		if perr != nil {
			return fmt.Errorf("lzma: matched literal: %w", perr)
		}
		b, err = d.lit.decodeMatched(d.rc, d.pos, prev, matchByte)
	}
	if err != nil {
		return err
	}
	d.dict.PutByte(b)
	d.pos++
	d.state = d.state.NextLiteral()
	return nil
}

func (d *Decoder) decodeMatch(posState int) (bool, error) {
	d.reps[3], d.reps[2], d.reps[1] = d.reps[2], d.reps[1], d.reps[0]

	lenSym, err := d.lenCoder.decode(d.rc, posState)
	if err != nil {
		return false, err
	}
	d.state = d.state.NextMatch()
	dist, err := d.distCoder.decode(d.rc, lenSym)
	if err != nil {
		return false, err
	}
	d.reps[0] = dist
	if dist == EOPMDistance {
		return true, nil
	}
	return false, d.copyMatch(lenSym)
}

func (d *Decoder) decodeRepMatch(posState int) error {
	bit, err := d.rc.DecodeBit(&d.isRepG0[d.state])
	if err != nil {
		return err
	}
	if bit == 0 {
		bit, err = d.rc.DecodeBit(&d.isRep0Long[d.state][posState])
		if err != nil {
			return err
		}
		if bit == 0 {
			b, perr := d.dict.Peek(int(d.reps[0]) + 1)
			if perr != nil {
				return fmt.Errorf("lzma: short rep: %w", perr)
			}
			d.dict.PutByte(b)
			d.pos++
			d.state = d.state.NextShortRep()
			return nil
		}
	} else {
		bit, err = d.rc.DecodeBit(&d.isRepG1[d.state])
		if err != nil {
			return err
		}
		if bit == 0 {
			d.reps[0], d.reps[1] = d.reps[1], d.reps[0]
		} else {
			bit, err = d.rc.DecodeBit(&d.isRepG2[d.state])
			if err != nil {
				return err
			}
			if bit == 0 {
				d.reps[0], d.reps[1], d.reps[2] = d.reps[2], d.reps[0], d.reps[1]
			} else {
				d.reps[0], d.reps[1], d.reps[2], d.reps[3] = d.reps[3], d.reps[0], d.reps[1], d.reps[2]
			}
		}
	}

	lenSym, err := d.repLenCoder.decode(d.rc, posState)
	if err != nil {
		return err
	}
	d.state = d.state.NextRep()
	return d.copyMatch(lenSym)
}

func (d *Decoder) copyMatch(lenSym uint32) error {
	length := int(lenSym) + MinMatchLen
	if err := d.dict.CopyMatch(int(d.reps[0])+1, length); err != nil {
		return fmt.Errorf("lzma: %w", err)
	}
	d.pos += int64(length)
	return nil
}
