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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/checksum"
)

var headerMagic = [6]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

var footerMagic = [2]byte{'Y', 'Z'}

const (
	headerLen = 12 // 6 magic + 2 flags + 4 crc32
	footerLen = 12 // 4 crc32 + 4 backward-size + 2 flags + 2 magic
)

// StreamFlags is the 2-byte field carried identically in a stream's
// header and footer: byte 0 is reserved (must be zero), byte 1 names
// the per-block integrity check (spec.md §3 "XZ stream").
type StreamFlags struct {
	Check checksum.Kind
}

func (f StreamFlags) encode() [2]byte {
	return [2]byte{0, byte(f.Check)}
}

func decodeStreamFlags(b [2]byte) (StreamFlags, error) {
	if b[0] != 0 {
		return StreamFlags{}, fmt.Errorf("%w: stream flags reserved byte 0x%02x", ErrCorruptedData, b[0])
	}
	kind := checksum.Kind(b[1])
	switch kind {
	case checksum.KindNone, checksum.KindCRC32, checksum.KindCRC64, checksum.KindSHA256:
		return StreamFlags{Check: kind}, nil
	default:
		return StreamFlags{}, &UnsupportedCheckError{Kind: b[1]}
	}
}

// readStreamHeader reads and validates the 12-byte stream header:
// 6-byte magic, 2-byte stream flags, and the CRC32 guarding them.
func readStreamHeader(r io.Reader) (StreamFlags, error) {
	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return StreamFlags{}, io.EOF
		}
		return StreamFlags{}, fmt.Errorf("%w: stream header: %v", ErrUnexpectedEOF, err)
	}
	if !bytes.Equal(buf[0:6], headerMagic[:]) {
		return StreamFlags{}, ErrBadMagic
	}
	var flagBytes [2]byte
	copy(flagBytes[:], buf[6:8])
	flags, err := decodeStreamFlags(flagBytes)
	if err != nil {
		return StreamFlags{}, err
	}
	wantCRC := binary.LittleEndian.Uint32(buf[8:12])
	gotCRC := checksum.CRC32(buf[6:8])
	if wantCRC != gotCRC {
		return StreamFlags{}, crc32Mismatch("stream header crc32", wantCRC, gotCRC)
	}
	return flags, nil
}

// writeStreamHeader emits the 12-byte stream header for flags.
func writeStreamHeader(w io.Writer, flags StreamFlags) error {
	fb := flags.encode()
	buf := make([]byte, headerLen)
	copy(buf[0:6], headerMagic[:])
	copy(buf[6:8], fb[:])
	binary.LittleEndian.PutUint32(buf[8:12], checksum.CRC32(fb[:]))
	_, err := w.Write(buf)
	return err
}

// readStreamFooter reads and validates the 12-byte stream footer,
// returning the decoded backward size (in bytes, already multiplied by
// 4) and the stream flags, which callers must compare against the
// header's.
func readStreamFooter(r io.Reader) (backwardSize int64, flags StreamFlags, err error) {
	buf := make([]byte, footerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, StreamFlags{}, fmt.Errorf("%w: stream footer: %v", ErrUnexpectedEOF, err)
	}
	wantCRC := binary.LittleEndian.Uint32(buf[0:4])
	gotCRC := checksum.CRC32(buf[4:10])
	if wantCRC != gotCRC {
		return 0, StreamFlags{}, crc32Mismatch("stream footer crc32", wantCRC, gotCRC)
	}
	backwardField := binary.LittleEndian.Uint32(buf[4:8])
	backwardSize = (int64(backwardField) + 1) * 4
	var fb [2]byte
	copy(fb[:], buf[8:10])
	flags, err = decodeStreamFlags(fb)
	if err != nil {
		return 0, StreamFlags{}, err
	}
	if !bytes.Equal(buf[10:12], footerMagic[:]) {
		return 0, StreamFlags{}, ErrBadMagic
	}
	return backwardSize, flags, nil
}

// writeStreamFooter emits the 12-byte stream footer. indexSize is the
// exact byte length of the index field that precedes the footer.
func writeStreamFooter(w io.Writer, flags StreamFlags, indexSize int64) error {
	if indexSize <= 0 || indexSize%4 != 0 {
		return fmt.Errorf("%w: index size %d not a positive multiple of 4", ErrCorruptedData, indexSize)
	}
	backwardField := uint32(indexSize/4 - 1)
	fb := flags.encode()
	buf := make([]byte, footerLen)
	binary.LittleEndian.PutUint32(buf[4:8], backwardField)
	copy(buf[8:10], fb[:])
	copy(buf[10:12], footerMagic[:])
	binary.LittleEndian.PutUint32(buf[0:4], checksum.CRC32(buf[4:10]))
	_, err := w.Write(buf)
	return err
}
