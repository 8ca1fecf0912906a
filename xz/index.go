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
)

// indexRecord is one block's entry in the stream index: the size of
// that block's header+payload+check rounded down to an exact byte
// count ("unpadded"), and its uncompressed size (spec.md §3 "Index").
type indexRecord struct {
	UnpaddedSize     uint64
	UncompressedSize uint64
}

// readIndex reads the index field given that its 0x00 indicator byte
// has already been consumed by the caller, returning the records and
// the total byte length of the field (indicator + records + padding +
// CRC32), which the footer's backward-size must match.
func readIndex(r io.Reader) ([]indexRecord, int64, error) {
	var raw []byte
	raw = append(raw, 0x00) // indicator byte, consumed by the caller

	numRecords, _, err := readVLIFrom(r, &raw)
	if err != nil {
		return nil, 0, err
	}

	records := make([]indexRecord, 0, numRecords)
	for i := uint64(0); i < numRecords; i++ {
		unpadded, _, err := readVLIFrom(r, &raw)
		if err != nil {
			return nil, 0, err
		}
		uncompressed, _, err := readVLIFrom(r, &raw)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, indexRecord{UnpaddedSize: unpadded, UncompressedSize: uncompressed})
	}

	padLen := (4 - len(raw)%4) % 4
	pad := make([]byte, padLen)
	if padLen > 0 {
		if _, err := io.ReadFull(r, pad); err != nil {
			return nil, 0, fmt.Errorf("%w: index padding: %v", ErrUnexpectedEOF, err)
		}
		for _, b := range pad {
			if b != 0 {
				return nil, 0, fmt.Errorf("%w: non-zero index padding", ErrCorruptedData)
			}
		}
		raw = append(raw, pad...)
	}

	crcBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, crcBuf); err != nil {
		return nil, 0, fmt.Errorf("%w: index crc32: %v", ErrUnexpectedEOF, err)
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf)
	gotCRC := checksum.CRC32(raw)
	if wantCRC != gotCRC {
		return nil, 0, crc32Mismatch("index crc32", wantCRC, gotCRC)
	}

	return records, int64(len(raw) + 4), nil
}

// writeIndex encodes records as a complete index field (indicator byte
// through CRC32) and returns its bytes.
func writeIndex(records []indexRecord) []byte {
	raw := []byte{0x00}
	raw = EncodeVLI(raw, uint64(len(records)))
	for _, rec := range records {
		raw = EncodeVLI(raw, rec.UnpaddedSize)
		raw = EncodeVLI(raw, rec.UncompressedSize)
	}
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	crc := checksum.CRC32(raw)
	crcBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(crcBuf, crc)
	return append(raw, crcBuf...)
}

// readVLIFrom reads one VLI byte-by-byte from r, appending every
// consumed byte to *raw so the caller can feed the exact wire bytes
// into the index CRC32.
func readVLIFrom(r io.Reader, raw *[]byte) (uint64, int, error) {
	var v uint64
	buf := make([]byte, 1)
	for i := 0; i < 9; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, 0, fmt.Errorf("%w: vli: %v", ErrUnexpectedEOF, err)
		}
		*raw = append(*raw, buf[0])
		v |= uint64(buf[0]&0x7F) << (7 * i)
		if buf[0]&0x80 == 0 {
			if i > 0 && buf[0] == 0 {
				return 0, 0, fmt.Errorf("%w: non-canonical vli", ErrCorruptedData)
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: vli exceeds 9 bytes", ErrCorruptedData)
}
