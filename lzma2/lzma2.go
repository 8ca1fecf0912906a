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

// Package lzma2 implements the LZMA2 chunk framing layer that sits
// between the XZ block body and the raw LZMA symbol coder: a sequence
// of uncompressed or compressed chunks, each tagged with a control byte
// that also carries the dictionary/state/properties reset policy.
package lzma2

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/bitio"
	"github.com/archivekit/xzkit/lzdict"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/rangecoder"
)

const (
	controlEnd            = 0x00
	controlUncompressed   = 0x01 // dictionary reset
	controlUncompressedNR = 0x02 // no dictionary reset
	controlCompressedMin  = 0x80

	maxRawChunkLen          = 1 << 16 // Uncompressed chunk: 2-byte size-1 field, 1..65536
	maxChunkUncompressedLen = 1 << 21 // Compressed chunk: 21-bit uncompressed-size field, 1..2 MiB
	maxChunkCompressedLen   = 1 << 16 // Compressed chunk: 2-byte compressed-size-1 field, 1..65536

	// encodeChunkSplitLen is the input size Encode actually feeds to each
	// compressed chunk. It stays well under maxChunkUncompressedLen so
	// that even an incompressible chunk's encoded body (which can exceed
	// its input by the range coder's few-byte flush overhead) still fits
	// the 16-bit packedSize field; decode-side accepts chunks up to the
	// full format maximum regardless of what this encoder emits.
	encodeChunkSplitLen = 1 << 15
)

// ErrIllegalControlByte is returned for any control byte that is neither
// End (0x00), an uncompressed-chunk tag (0x01/0x02), nor a compressed
// chunk tag (0x80-0xFF); 0x03-0x7F is reserved and unused.
var ErrIllegalControlByte = errors.New("lzma2: illegal control byte")

// ErrChunkTooLarge is returned when a chunk's declared size field
// exceeds the format's hard limits.
var ErrChunkTooLarge = errors.New("lzma2: chunk size exceeds format limit")

// resetKind captures what a compressed chunk's control byte bits 5-6
// demand before decoding its body (spec.md §4.7 "Control byte").
type resetKind int

const (
	resetNone       resetKind = iota // continue prior state and probs
	resetState                      // reset state machine, keep probs, keep dict
	resetStateProps                 // reset state machine and probability model
	resetAll                        // reset state, probs, and dictionary
)

func parseCompressedControl(b byte) (unpackedSizeHigh uint32, kind resetKind, err error) {
	if b < controlCompressedMin {
		return 0, 0, fmt.Errorf("%w: 0x%02x", ErrIllegalControlByte, b)
	}
	unpackedSizeHigh = uint32(b) & 0x1F
	switch (b >> 5) & 0x3 {
	case 0:
		kind = resetNone
	case 1:
		kind = resetState
	case 2:
		kind = resetStateProps
	case 3:
		kind = resetAll
	}
	return unpackedSizeHigh, kind, nil
}

// Decode decodes a complete LZMA2 stream from r, writing the
// decompressed result to w. dictSize bounds the LZ window.
func Decode(w io.Writer, r io.Reader, dictSize uint32) error {
	src := bitio.NewSource(r)
	dict := lzdict.New(int(dictSize))
	var dec *lzma.Decoder
	var params lzma.Params
	havePropsAndDec := false
	var pos int64

	for {
		ctrl, err := src.ReadByte()
		if err != nil {
			return fmt.Errorf("lzma2: reading control byte: %w", err)
		}
		if ctrl == controlEnd {
			return nil
		}
		if ctrl == controlUncompressed || ctrl == controlUncompressedNR {
			sizeBytes, err := readBE16(src)
			if err != nil {
				return err
			}
			size := int(sizeBytes) + 1
			if size > maxRawChunkLen {
				return ErrChunkTooLarge
			}
			if ctrl == controlUncompressed {
				dict.Reset()
				pos = 0
				if dec != nil {
					dec.ResetState()
				}
			}
			buf := make([]byte, size)
			if err := src.ReadFull(buf); err != nil {
				return fmt.Errorf("lzma2: uncompressed chunk body: %w", err)
			}
			for _, b := range buf {
				dict.PutByte(b)
			}
			pos += int64(size)
			if dec != nil {
				dec.SetPos(pos)
			}
			if err := flushDict(w, dict, size); err != nil {
				return err
			}
			continue
		}

		sizeHigh, kind, err := parseCompressedControl(ctrl)
		if err != nil {
			return err
		}
		sizeLow, err := readBE16(src)
		if err != nil {
			return err
		}
		unpackedSize := int(sizeHigh)<<16 + int(sizeLow) + 1
		if unpackedSize > maxChunkUncompressedLen {
			return ErrChunkTooLarge
		}
		packedSizeField, err := readBE16(src)
		if err != nil {
			return err
		}
		packedSize := int(packedSizeField) + 1
		if packedSize > maxChunkCompressedLen {
			return ErrChunkTooLarge
		}

		if kind == resetStateProps || kind == resetAll {
			propByte, err := src.ReadByte()
			if err != nil {
				return fmt.Errorf("lzma2: properties byte: %w", err)
			}
			params, err = lzma.ParseProps(propByte)
			if err != nil {
				return err
			}
			havePropsAndDec = false
		}
		if !havePropsAndDec {
			if kind != resetStateProps && kind != resetAll {
				return fmt.Errorf("lzma2: compressed chunk before any properties byte")
			}
		}
		if kind == resetAll {
			dict.Reset()
			pos = 0
		}

		body := make([]byte, packedSize)
		if err := src.ReadFull(body); err != nil {
			return fmt.Errorf("lzma2: compressed chunk body: %w", err)
		}
		bodySrc := bitio.NewSource(bytes.NewReader(body))
		rc, err := rangecoder.NewDecoder(bodySrc)
		if err != nil {
			return fmt.Errorf("lzma2: %w", err)
		}

		switch {
		case dec == nil || kind == resetStateProps || kind == resetAll:
			dec, err = lzma.NewDecoder(rc, dict, params)
			if err != nil {
				return err
			}
			havePropsAndDec = true
		case kind == resetState:
			dec.Rebind(rc)
			dec.ResetState()
		default:
			dec.Rebind(rc)
		}
		dec.SetPos(pos)

		target := pos + int64(unpackedSize)
		for dec.Pos() < target {
			done, err := dec.DecodeSymbol()
			if err != nil {
				return fmt.Errorf("lzma2: %w", err)
			}
			if done {
				break
			}
		}
		if dec.Pos() != target {
			return fmt.Errorf("lzma2: %w: chunk produced wrong byte count", ErrChunkTooLarge)
		}
		pos = dec.Pos()
		if err := flushDict(w, dict, unpackedSize); err != nil {
			return err
		}
	}
}

func flushDict(w io.Writer, dict *lzdict.Dict, n int) error {
	sink := bitio.NewSink(w)
	if err := dict.FlushTo(sink, n); err != nil {
		return err
	}
	return sink.Flush()
}

func readBE16(src *bitio.Source) (uint16, error) {
	buf := make([]byte, 2)
	if err := src.ReadFull(buf); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// Encode compresses data into a complete LZMA2 stream written to w. Each
// chunk is emitted as an independent dictionary-and-properties-reset
// unit, trading the cross-chunk back-reference range and adaptive-model
// warmup a streaming encoder could otherwise carry forward for chunks
// that decode standalone and parallelize trivially.
func Encode(w io.Writer, data []byte, params lzma.Params) error {
	if len(data) == 0 {
		_, err := w.Write([]byte{controlEnd})
		return err
	}
	offset := 0
	for offset < len(data) {
		n := min(len(data)-offset, encodeChunkSplitLen)
		chunk := data[offset : offset+n]
		if err := encodeChunk(w, chunk, params); err != nil {
			return err
		}
		offset += n
	}
	_, err := w.Write([]byte{controlEnd})
	return err
}

func encodeChunk(w io.Writer, chunk []byte, params lzma.Params) error {
	var body bytes.Buffer
	sink := bitio.NewSink(&body)
	rc := rangecoder.NewEncoder(sink)
	dict := lzdict.New(max(len(chunk), 1<<12))
	enc, err := lzma.NewEncoder(rc, dict, params)
	if err != nil {
		return err
	}
	if err := lzma.EncodeBuffer(enc, chunk); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := sink.Flush(); err != nil {
		return err
	}

	unpackedSize := len(chunk) - 1
	packedSize := body.Len() - 1
	ctrl := byte(controlCompressedMin) | byte(resetAll)<<5 | byte(unpackedSize>>16)&0x1F
	header := []byte{
		ctrl,
		byte(unpackedSize >> 8), byte(unpackedSize),
		byte(packedSize >> 8), byte(packedSize),
	}
	propByte, err := params.PropByte()
	if err != nil {
		return err
	}
	header = append(header, propByte)
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body.Bytes())
	return err
}
