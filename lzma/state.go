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

// State is the 12-state literal/match history the LZMA symbol loop
// keys its probability selection on (spec.md §3 "State S").
type State int

// NumStates is the size of the state space, S in [0, NumStates).
const NumStates = 12

// IsLiteralState reports whether the previous symbol was a literal;
// true exactly for S < 7.
func (s State) IsLiteralState() bool { return s < 7 }

// state transition table, one function per previous-symbol class,
// matching the LZMA reference table in spec.md §4.5 byte-for-byte:
//
//	S < 7:  LIT -> max(S-3,0) | MATCH -> 7 | REP -> 8 | SHORTREP -> 9
//	S >= 7: LIT -> S-6 if S in [7,9] else S-4 | MATCH -> 10 | REP -> 11 | SHORTREP -> 11

// NextLiteral returns the state after decoding/encoding a literal.
func (s State) NextLiteral() State {
	switch {
	case s <= 3:
		return 0
	case s <= 6:
		return s - 3
	case s <= 9:
		return s - 6
	default:
		return s - 4
	}
}

// NextMatch returns the state after a MATCH symbol.
func (s State) NextMatch() State {
	if s < 7 {
		return 7
	}
	return 10
}

// NextRep returns the state after a REP symbol.
func (s State) NextRep() State {
	if s < 7 {
		return 8
	}
	return 11
}

// NextShortRep returns the state after a SHORTREP symbol.
func (s State) NextShortRep() State {
	if s < 7 {
		return 9
	}
	return 11
}
