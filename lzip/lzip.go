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

// Package lzip implements the ".lz" container: a 6-byte header (4-byte
// "LZIP" magic, version, dictionary-size exponent), a raw LZMA1 stream with
// an implicit lc=3/lp=0/pb=2, and a 20-byte trailer carrying the CRC32
// of the uncompressed data alongside the member's compressed and
// uncompressed sizes.
package lzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/bitio"
	"github.com/archivekit/xzkit/internal/checksum"
	"github.com/archivekit/xzkit/lzdict"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/rangecoder"
)

var magic = [4]byte{'L', 'Z', 'I', 'P'}

const (
	headerLen  = 6
	trailerLen = 20
	version    = 1
)

var (
	// ErrBadMagic is returned when the 4-byte "LZIP" magic is missing.
	ErrBadMagic = errors.New("lzip: bad magic")
	// ErrUnsupportedVersion is returned for any version byte other than 1.
	ErrUnsupportedVersion = errors.New("lzip: unsupported version")
	// ErrCRCMismatch is returned when the trailer CRC32 does not match
	// the decoded payload.
	ErrCRCMismatch = errors.New("lzip: CRC32 mismatch")
	// ErrSizeMismatch is returned when the trailer's declared
	// uncompressed size does not match the decoded payload length.
	ErrSizeMismatch = errors.New("lzip: uncompressed size mismatch")
)

// dictSizeFromExponent implements lzip's single-byte dictionary size
// encoding: bits 0-4 are an exponent n in [12,29]; bits 5-7 are a
// fractional correction identical in spirit to LZMA2's scheme but over
// a different base.
func dictSizeFromExponent(b byte) uint32 {
	n := uint32(b) & 0x1F
	if n < 12 || n > 29 {
		n = 12
	}
	size := uint32(1) << n
	frac := (uint32(b) >> 5) & 0x7
	return size - (size/16)*frac
}

func exponentFromDictSize(size uint32) byte {
	for n := uint32(12); n <= 29; n++ {
		if uint32(1)<<n >= size {
			return byte(n)
		}
	}
	return 29
}

// Decode reads one LZIP member from r and returns its decompressed
// payload.
func Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen+trailerLen {
		return nil, fmt.Errorf("lzip: %w: stream too short", ErrBadMagic)
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if data[4] != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	dictSize := dictSizeFromExponent(data[5])

	trailer := data[len(data)-trailerLen:]
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	wantUncompressed := binary.LittleEndian.Uint64(trailer[12:20])

	body := data[headerLen : len(data)-trailerLen]
	params := lzma.Params{LC: 3, LP: 0, PB: 2, DictSize: dictSize}

	src := bitio.NewSource(bytes.NewReader(body))
	rc, err := rangecoder.NewDecoder(src)
	if err != nil {
		return nil, fmt.Errorf("lzip: %w", err)
	}
	dict := lzdict.New(int(dictSize))
	dec, err := lzma.NewDecoder(rc, dict, params)
	if err != nil {
		return nil, err
	}
	for int64(dict.Available()) < int64(wantUncompressed) {
		done, err := dec.DecodeSymbol()
		if err != nil {
			return nil, fmt.Errorf("lzip: %w", err)
		}
		if done {
			break
		}
	}
	if int64(dict.Available()) != int64(wantUncompressed) {
		return nil, ErrSizeMismatch
	}

	var out bytes.Buffer
	sink := bitio.NewSink(&out)
	if err := dict.FlushTo(sink, dict.Available()); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	if checksum.CRC32(out.Bytes()) != wantCRC {
		return nil, ErrCRCMismatch
	}
	return out.Bytes(), nil
}

// Encode compresses data into a single LZIP member written to w.
func Encode(w io.Writer, data []byte) error {
	dictSize := uint32(max(len(data), 1<<12))
	params := lzma.Params{LC: 3, LP: 0, PB: 2, DictSize: dictSize}

	header := []byte{magic[0], magic[1], magic[2], magic[3], version, exponentFromDictSize(dictSize)}
	if _, err := w.Write(header); err != nil {
		return err
	}

	var body bytes.Buffer
	sink := bitio.NewSink(&body)
	rc := rangecoder.NewEncoder(sink)
	dict := lzdict.New(int(dictSize))
	enc, err := lzma.NewEncoder(rc, dict, params)
	if err != nil {
		return err
	}
	if err := lzma.EncodeBuffer(enc, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := sink.Flush(); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}

	trailer := make([]byte, trailerLen)
	binary.LittleEndian.PutUint32(trailer[0:4], checksum.CRC32(data))
	binary.LittleEndian.PutUint64(trailer[4:12], uint64(body.Len()))
	binary.LittleEndian.PutUint64(trailer[12:20], uint64(len(data)))
	_, err = w.Write(trailer)
	return err
}
