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

// Package lzmaalone implements the legacy ".lzma" container: a 13-byte
// header (1 properties byte, 4-byte little-endian dictionary size,
// 8-byte little-endian uncompressed size or the all-ones "unknown"
// sentinel) directly in front of a single raw LZMA stream.
package lzmaalone

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/bitio"
	"github.com/archivekit/xzkit/lzdict"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/rangecoder"
)

const headerLen = 13

// UnknownSize is the sentinel stored in the header's size field when the
// uncompressed length was not known at encode time; such a stream must
// end with an LZMA end-of-payload marker.
const UnknownSize = ^uint64(0)

var (
	// ErrShortHeader is returned when fewer than 13 header bytes are
	// available.
	ErrShortHeader = errors.New("lzmaalone: header truncated")
	// ErrSizeMismatch is returned when a known-size header's declared
	// length does not match the decoded output length.
	ErrSizeMismatch = errors.New("lzmaalone: decoded size does not match header")
)

// Header is the parsed 13-byte LZMA-alone header.
type Header struct {
	Params           lzma.Params
	UncompressedSize uint64 // UnknownSize if absent
}

// ParseHeader reads and validates a 13-byte LZMA-alone header.
func ParseHeader(r io.Reader) (Header, error) {
	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, ErrShortHeader
		}
		return Header{}, err
	}
	params, err := lzma.ParseProps(buf[0])
	if err != nil {
		return Header{}, fmt.Errorf("lzmaalone: %w", err)
	}
	params.DictSize = binary.LittleEndian.Uint32(buf[1:5])
	size := binary.LittleEndian.Uint64(buf[5:13])
	return Header{Params: params, UncompressedSize: size}, nil
}

// WriteHeader emits a 13-byte LZMA-alone header.
func WriteHeader(w io.Writer, h Header) error {
	propByte, err := h.Params.PropByte()
	if err != nil {
		return err
	}
	buf := make([]byte, headerLen)
	buf[0] = propByte
	binary.LittleEndian.PutUint32(buf[1:5], h.Params.DictSize)
	binary.LittleEndian.PutUint64(buf[5:13], h.UncompressedSize)
	_, err = w.Write(buf)
	return err
}

// Decode reads a complete LZMA-alone stream from r and returns its
// decompressed payload.
func Decode(r io.Reader) ([]byte, error) {
	h, err := ParseHeader(r)
	if err != nil {
		return nil, err
	}
	dictSize := h.Params.DictSize
	if dictSize == 0 {
		dictSize = 1 << 12
	}
	dict := lzdict.New(int(dictSize))
	src := bitio.NewSource(r)
	rc, err := rangecoder.NewDecoder(src)
	if err != nil {
		return nil, fmt.Errorf("lzmaalone: %w", err)
	}
	dec, err := lzma.NewDecoder(rc, dict, h.Params)
	if err != nil {
		return nil, err
	}

	known := h.UncompressedSize != UnknownSize
	for {
		if known && int64(dict.Available()) >= int64(h.UncompressedSize) {
			break
		}
		done, err := dec.DecodeSymbol()
		if err != nil {
			return nil, fmt.Errorf("lzmaalone: %w", err)
		}
		if done {
			break
		}
	}
	if known && int64(dict.Available()) != int64(h.UncompressedSize) {
		return nil, ErrSizeMismatch
	}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	if err := dict.FlushTo(sink, dict.Available()); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode compresses data into a complete LZMA-alone stream written to w,
// using params (DictSize is recomputed to fit data if left zero).
func Encode(w io.Writer, data []byte, params lzma.Params) error {
	if params.DictSize == 0 {
		params.DictSize = uint32(max(len(data), 1<<12))
	}
	h := Header{Params: params, UncompressedSize: uint64(len(data))}
	if err := WriteHeader(w, h); err != nil {
		return err
	}

	var buf bytes.Buffer
	sink := bitio.NewSink(&buf)
	rc := rangecoder.NewEncoder(sink)
	dict := lzdict.New(int(params.DictSize))
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
	_, err = w.Write(buf.Bytes())
	return err
}
