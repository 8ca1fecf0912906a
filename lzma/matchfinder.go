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

const (
	hashBits    = 16
	hashSize    = 1 << hashBits
	maxChainLen = 64
	niceLen     = 64
)

// matchFinder is a greedy hash-chain LZ77 parser over an in-memory
// buffer, the minimal match finder the LZMA SDK's "fast" mode uses:
// a head table keyed on a 3-byte hash, chained through every prior
// occurrence up to maxChainLen, picking the longest candidate.
type matchFinder struct {
	data  []byte
	head  [hashSize]int32
	chain []int32
}

func newMatchFinder(data []byte) *matchFinder {
	mf := &matchFinder{data: data, chain: make([]int32, len(data))}
	for i := range mf.head {
		mf.head[i] = -1
	}
	return mf
}

func hash3(b0, b1, b2 byte) uint32 {
	h := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
	h *= 2654435761
	return h >> (32 - hashBits)
}

// insert records position i in the hash chain; must be called exactly
// once per position, in increasing order.
func (mf *matchFinder) insert(i int) {
	if i+3 > len(mf.data) {
		mf.chain[i] = -1
		return
	}
	h := hash3(mf.data[i], mf.data[i+1], mf.data[i+2])
	mf.chain[i] = mf.head[h]
	mf.head[h] = int32(i)
}

// findMatch searches for the longest match ending at or before pos-1
// for the bytes starting at pos, capped at maxLen bytes and at
// maxDistance away. It returns (distance, length); length 0 means no
// usable match was found.
func (mf *matchFinder) findMatch(pos, maxLen, maxDistance int) (distance, length int) {
	if pos+3 > len(mf.data) {
		return 0, 0
	}
	h := hash3(mf.data[pos], mf.data[pos+1], mf.data[pos+2])
	cand := mf.head[h]
	bestLen := 0
	bestDist := 0
	for depth := 0; cand >= 0 && depth < maxChainLen; depth++ {
		c := int(cand)
		if pos-c > maxDistance {
			break
		}
		l := matchLen(mf.data, c, pos, maxLen)
		if l > bestLen {
			bestLen = l
			bestDist = pos - c
			if l >= niceLen {
				break
			}
		}
		cand = mf.chain[c]
	}
	if bestLen < minEncodeMatchLen {
		return 0, 0
	}
	return bestDist, bestLen
}

func matchLen(data []byte, a, b, maxLen int) int {
	n := 0
	for n < maxLen && b+n < len(data) && data[a+n] == data[b+n] {
		n++
	}
	return n
}

// repMatchLen reports how many bytes starting at pos match the bytes
// `distance` back, used to score standing rep-distances against a fresh
// match candidate.
func repMatchLen(data []byte, pos, distance, maxLen int) int {
	if distance <= 0 || distance > pos {
		return 0
	}
	return matchLen(data, pos-distance, pos, maxLen)
}

// EncodeBuffer greedily parses data and drives e through the resulting
// literal/match/rep symbol sequence. It is the match-finding counterpart
// to Encoder's low-level Encode* primitives, used by callers (LZMA-alone,
// LZMA2) that need to compress an in-memory chunk in one call.
func EncodeBuffer(e *Encoder, data []byte) error {
	mf := newMatchFinder(data)
	pos := 0
	for pos < len(data) {
		maxLen := len(data) - pos
		if maxLen > MaxMatchLen {
			maxLen = MaxMatchLen
		}

		bestRep := -1
		bestRepLen := 0
		for i, r := range e.reps {
			l := repMatchLen(data, pos, int(r)+1, maxLen)
			if l > bestRepLen {
				bestRepLen = l
				bestRep = i
			}
		}

		dist, mlen := mf.findMatch(pos, maxLen, len(data))
		mf.insert(pos)

		switch {
		case bestRepLen >= minEncodeMatchLen && bestRepLen+1 >= mlen:
			if err := e.EncodeRepMatch(bestRep, bestRepLen); err != nil {
				return err
			}
			for i := 1; i < bestRepLen; i++ {
				mf.insert(pos + i)
			}
			pos += bestRepLen
		case mlen >= minEncodeMatchLen:
			if err := e.EncodeMatch(dist, mlen); err != nil {
				return err
			}
			for i := 1; i < mlen; i++ {
				mf.insert(pos + i)
			}
			pos += mlen
		default:
			if err := e.EncodeLiteral(data[pos]); err != nil {
				return err
			}
			pos++
		}
	}
	return nil
}
