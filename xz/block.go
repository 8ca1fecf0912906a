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

package xz

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/checksum"
	"github.com/archivekit/xzkit/xzfilter"
)

const (
	blockFlagHasCompressedSize   = 0x40
	blockFlagHasUncompressedSize = 0x80
	blockFlagReservedMask        = 0x3C
	maxFiltersPerBlock           = 4
)

// FilterDescriptor names one entry of a block's filter chain: an XZ
// filter ID plus its raw properties blob (spec.md §3 "Block header").
type FilterDescriptor struct {
	ID    xzfilter.ID
	Props []byte
}

// BlockHeader is the parsed form of one XZ block header.
type BlockHeader struct {
	Filters          []FilterDescriptor
	CompressedSize   int64 // -1 if not present
	UncompressedSize int64 // -1 if not present
	HeaderLen        int   // total encoded size including the size byte, excluding CRC32
}

// readBlockHeader reads a block header given its already-consumed first
// byte (the block-header-size field). The caller is responsible for
// distinguishing a zero first byte (index indicator) from a real block.
func readBlockHeader(r io.Reader, sizeByte byte) (BlockHeader, error) {
	headerSize := (int(sizeByte) + 1) * 4
	rest := make([]byte, headerSize-1+4) // header body + trailing CRC32
	if _, err := io.ReadFull(r, rest); err != nil {
		return BlockHeader{}, fmt.Errorf("%w: block header: %v", ErrUnexpectedEOF, err)
	}
	full := make([]byte, 0, headerSize+4)
	full = append(full, sizeByte)
	full = append(full, rest...)

	body := full[:headerSize]
	crcBytes := full[headerSize : headerSize+4]
	wantCRC := binary.LittleEndian.Uint32(crcBytes)
	gotCRC := checksum.CRC32(body)
	if wantCRC != gotCRC {
		return BlockHeader{}, crc32Mismatch("block header crc32", wantCRC, gotCRC)
	}

	flagsByte := body[1]
	if flagsByte&blockFlagReservedMask != 0 {
		return BlockHeader{}, fmt.Errorf("%w: block flags reserved bits set: 0x%02x", ErrCorruptedData, flagsByte)
	}
	numFilters := int(flagsByte&0x3) + 1

	pos := 2
	compSize := int64(-1)
	if flagsByte&blockFlagHasCompressedSize != 0 {
		v, n, err := DecodeVLI(body[pos:])
		if err != nil {
			return BlockHeader{}, err
		}
		compSize = int64(v)
		pos += n
	}
	uncompSize := int64(-1)
	if flagsByte&blockFlagHasUncompressedSize != 0 {
		v, n, err := DecodeVLI(body[pos:])
		if err != nil {
			return BlockHeader{}, err
		}
		uncompSize = int64(v)
		pos += n
	}

	filters := make([]FilterDescriptor, 0, numFilters)
	for i := 0; i < numFilters; i++ {
		idVal, n, err := DecodeVLI(body[pos:])
		if err != nil {
			return BlockHeader{}, err
		}
		pos += n
		propLen, n, err := DecodeVLI(body[pos:])
		if err != nil {
			return BlockHeader{}, err
		}
		pos += n
		if pos+int(propLen) > len(body) {
			return BlockHeader{}, fmt.Errorf("%w: filter properties run past header", ErrCorruptedData)
		}
		props := append([]byte(nil), body[pos:pos+int(propLen)]...)
		pos += int(propLen)
		filters = append(filters, FilterDescriptor{ID: xzfilter.ID(idVal), Props: props})
	}

	for _, b := range body[pos:] {
		if b != 0 {
			return BlockHeader{}, fmt.Errorf("%w: non-zero block header padding", ErrCorruptedData)
		}
	}

	if err := validateFilterChain(filters); err != nil {
		return BlockHeader{}, err
	}

	return BlockHeader{
		Filters:          filters,
		CompressedSize:   compSize,
		UncompressedSize: uncompSize,
		HeaderLen:        headerSize,
	}, nil
}

// validateFilterChain enforces spec.md §4.8: LZMA2 must be last and
// only last, at most 4 filters, and no filter ID may repeat.
func validateFilterChain(filters []FilterDescriptor) error {
	if len(filters) == 0 || len(filters) > maxFiltersPerBlock {
		return fmt.Errorf("%w: filter chain length %d out of range", ErrCorruptedData, len(filters))
	}
	seen := make(map[xzfilter.ID]bool, len(filters))
	for i, f := range filters {
		if seen[f.ID] {
			return fmt.Errorf("%w: filter id 0x%x repeated in chain", ErrCorruptedData, uint64(f.ID))
		}
		seen[f.ID] = true
		isLast := i == len(filters)-1
		switch {
		case xzfilter.IsTerminal(f.ID) && !isLast:
			return fmt.Errorf("%w: filter id 0x%x may only appear last", ErrCorruptedData, uint64(f.ID))
		case !xzfilter.IsTerminal(f.ID) && isLast:
			return fmt.Errorf("%w: filter chain must end in a terminal filter", ErrCorruptedData)
		}
	}
	return nil
}

// writeBlockHeader encodes hdr and returns the full header bytes
// (including the trailing CRC32), padded to a multiple of 4.
func writeBlockHeader(hdr BlockHeader) ([]byte, error) {
	if err := validateFilterChain(hdr.Filters); err != nil {
		return nil, err
	}
	var flagsByte byte
	flagsByte |= byte(len(hdr.Filters) - 1)
	if hdr.CompressedSize >= 0 {
		flagsByte |= blockFlagHasCompressedSize
	}
	if hdr.UncompressedSize >= 0 {
		flagsByte |= blockFlagHasUncompressedSize
	}

	body := []byte{0, flagsByte} // body[0] placeholder for size byte
	if hdr.CompressedSize >= 0 {
		body = EncodeVLI(body, uint64(hdr.CompressedSize))
	}
	if hdr.UncompressedSize >= 0 {
		body = EncodeVLI(body, uint64(hdr.UncompressedSize))
	}
	for _, f := range hdr.Filters {
		body = EncodeVLI(body, uint64(f.ID))
		body = EncodeVLI(body, uint64(len(f.Props)))
		body = append(body, f.Props...)
	}

	unpaddedLen := len(body)
	paddedLen := (unpaddedLen + 3) &^ 3
	if paddedLen == 0 {
		paddedLen = 4
	}
	for len(body) < paddedLen {
		body = append(body, 0)
	}
	body[0] = byte(paddedLen/4 - 1)

	crc := checksum.CRC32(body)
	crcBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(crcBytes, crc)
	return append(body, crcBytes...), nil
}
