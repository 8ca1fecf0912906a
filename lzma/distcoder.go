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
	numLenToPosStates = 4
	numPosSlotBits    = 6
	numPosSlots       = 1 << numPosSlotBits
	numAlignBits      = 4
	endPosModelIndex  = 14
	numFullDistances  = 1 << (endPosModelIndex >> 1) // 128
	// EOPMDistance is the distance value that signals end-of-payload
	// marker: a MATCH decoded with this distance carries no dictionary
	// meaning and instead terminates the symbol stream (spec.md GLOSSARY).
	EOPMDistance = 0xFFFFFFFF
)

// distCoder implements the position-slot + direct-bits + align distance
// subcoder (spec.md §4.5 "Distance coder"): 64 position slots bucketed
// by length into 4 trees, direct (unmodeled) high bits for large
// distances, and a 4-bit reverse-bittree "align" coder shared by all of
// them for the low bits.
type distCoder struct {
	slot  [numLenToPosStates][]rangecoder.Prob // 6-bit tree per len-state bucket
	spec  []rangecoder.Prob                    // shared reverse-bittree probs for mid-range slots
	align []rangecoder.Prob                    // shared 4-bit reverse-bittree, low bits of large distances
}

func newDistCoder() *distCoder {
	dc := &distCoder{
		spec:  rangecoder.NewProbs(numFullDistances - endPosModelIndex + 1), // bit trees index from 1
		align: rangecoder.NewProbs(1 << numAlignBits),
	}
	for i := range numLenToPosStates {
		dc.slot[i] = rangecoder.NewProbs(numPosSlots)
	}
	return dc
}

func (dc *distCoder) reset() {
	rangecoder.ResetProbs(dc.spec)
	rangecoder.ResetProbs(dc.align)
	for i := range numLenToPosStates {
		rangecoder.ResetProbs(dc.slot[i])
	}
}

// lenToPosState buckets a 0-based length symbol into one of the 4
// position-slot trees.
func lenToPosState(lenSym uint32) int {
	if lenSym >= numLenToPosStates {
		return numLenToPosStates - 1
	}
	return int(lenSym)
}

func (dc *distCoder) decode(rc *rangecoder.Decoder, lenSym uint32) (uint32, error) {
	state := lenToPosState(lenSym)
	slot, err := rc.DecodeBitTree(dc.slot[state], numPosSlotBits)
	if err != nil {
		return 0, err
	}
	if slot < 4 {
		return slot, nil
	}
	numDirectBits := int(slot>>1) - 1
	dist := (2 | (slot & 1)) << uint(numDirectBits)
	if slot < endPosModelIndex {
		offset := dist - slot
		rev, err := rc.DecodeBitTreeReverse(dc.spec[offset:], numDirectBits)
		if err != nil {
			return 0, err
		}
		return dist + rev, nil
	}
	direct, err := rc.DecodeDirectBits(numDirectBits - numAlignBits)
	if err != nil {
		return 0, err
	}
	dist += direct << numAlignBits
	align, err := rc.DecodeBitTreeReverse(dc.align, numAlignBits)
	if err != nil {
		return 0, err
	}
	return dist + align, nil
}

func (dc *distCoder) encode(rc *rangecoder.Encoder, lenSym uint32, distance uint32) error {
	state := lenToPosState(lenSym)
	slot := distSlot(distance)
	if err := rc.EncodeBitTree(dc.slot[state], numPosSlotBits, slot); err != nil {
		return err
	}
	if slot < 4 {
		return nil
	}
	numDirectBits := int(slot>>1) - 1
	base := (2 | (slot & 1)) << uint(numDirectBits)
	if slot < endPosModelIndex {
		offset := base - slot
		return rc.EncodeBitTreeReverse(dc.spec[offset:], numDirectBits, distance-base)
	}
	rem := distance - base
	if err := rc.EncodeDirectBits(rem>>numAlignBits, numDirectBits-numAlignBits); err != nil {
		return err
	}
	return rc.EncodeBitTreeReverse(dc.align, numAlignBits, rem&((1<<numAlignBits)-1))
}

// distSlot computes the 6-bit position slot for a given distance, the
// inverse of the slot -> distance formula in spec.md §4.5.
func distSlot(dist uint32) uint32 {
	if dist < 4 {
		return dist
	}
	n := 31 - leadingZeros32(dist)
	slot := uint32(n) << 1
	if (dist>>uint(n-1))&1 != 0 {
		slot++
	}
	return slot
}

func leadingZeros32(v uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			return n
		}
		n++
	}
	return 32
}
