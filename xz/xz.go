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
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/archivekit/xzkit/internal/checksum"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/lzma2"
	"github.com/archivekit/xzkit/xzfilter"
)

// DefaultMemLimit is the policy ceiling spec.md §5 recommends for a
// single block's LZMA2 dictionary when the caller leaves
// DecodeOptions.MemLimitBytes at zero.
const DefaultMemLimit = 3 << 29 // 1.5 GiB

// Stats summarizes one Decode or Encode call (spec.md §6 "XzDecode").
type Stats struct {
	BytesIn   int64
	BytesOut  int64
	Streams   int
	Blocks    int
	CheckKind checksum.Kind
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// MemLimitBytes caps the dictionary size any single block's LZMA2
	// filter may declare. Zero selects DefaultMemLimit.
	MemLimitBytes uint64
}

// Decode reads one or more concatenated XZ streams from r (with
// optional 4-byte-aligned zero padding between them, spec.md §4.9) and
// writes the decompressed payload to w.
func Decode(r io.Reader, w io.Writer, opts DecodeOptions) (Stats, error) {
	limit := opts.MemLimitBytes
	if limit == 0 {
		limit = DefaultMemLimit
	}

	br := bufio.NewReaderSize(r, 32*1024)
	var stats Stats
	seenStream := false

	for {
		flags, err := readStreamHeader(br)
		if err == io.EOF {
			if !seenStream {
				return stats, fmt.Errorf("%w: no stream found", ErrUnexpectedEOF)
			}
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		seenStream = true
		stats.Streams++
		stats.CheckKind = flags.Check
		stats.BytesIn += headerLen

		var observed []indexRecord
		for {
			sizeByte, err := br.ReadByte()
			if err != nil {
				return stats, fmt.Errorf("%w: reading block or index indicator: %v", ErrTruncated, err)
			}
			stats.BytesIn++
			if sizeByte == 0 {
				records, idxLen, err := readIndex(br)
				if err != nil {
					return stats, err
				}
				if err := compareIndex(observed, records); err != nil {
					return stats, err
				}
				stats.BytesIn += idxLen - 1

				backward, footerFlags, err := readStreamFooter(br)
				if err != nil {
					return stats, err
				}
				if backward != idxLen {
					return stats, &IndexMismatchError{Field: "backward_size", Observed: uint64(backward), Declared: uint64(idxLen)}
				}
				if footerFlags != flags {
					return stats, fmt.Errorf("%w: stream footer flags do not match header", ErrCorruptedData)
				}
				stats.BytesIn += footerLen
				break
			}

			hdr, err := readBlockHeader(br, sizeByte)
			if err != nil {
				return stats, err
			}
			rec, bytesIn, bytesOut, err := decodeBlock(br, hdr, flags.Check, limit, w)
			if err != nil {
				return stats, err
			}
			observed = append(observed, rec)
			stats.Blocks++
			stats.BytesIn += bytesIn - 1 // sizeByte already counted above
			stats.BytesOut += bytesOut
		}

		if err := skipStreamPadding(br); err != nil {
			return stats, err
		}
	}
}

// compareIndex validates that the index read from the stream agrees,
// record for record, with what was observed while decoding blocks.
func compareIndex(observed, declared []indexRecord) error {
	if len(observed) != len(declared) {
		return &IndexMismatchError{Field: "record_count", Observed: uint64(len(observed)), Declared: uint64(len(declared))}
	}
	for i := range observed {
		if observed[i].UnpaddedSize != declared[i].UnpaddedSize {
			return &IndexMismatchError{Field: "unpadded_size", Observed: observed[i].UnpaddedSize, Declared: declared[i].UnpaddedSize}
		}
		if observed[i].UncompressedSize != declared[i].UncompressedSize {
			return &IndexMismatchError{Field: "uncompressed_size", Observed: observed[i].UncompressedSize, Declared: declared[i].UncompressedSize}
		}
	}
	return nil
}

// skipStreamPadding consumes any run of 4-byte-aligned zero padding
// that precedes a concatenated stream's header, without consuming the
// bytes of that next header.
func skipStreamPadding(br *bufio.Reader) error {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil // clean EOF after this stream
		}
		if b[0] != 0 {
			return nil
		}
		pad, err := br.Peek(4)
		if err != nil {
			return fmt.Errorf("%w: stream padding truncated", ErrTruncated)
		}
		for _, pb := range pad {
			if pb != 0 {
				return fmt.Errorf("%w: non-zero stream padding", ErrCorruptedData)
			}
		}
		if _, err := br.Discard(4); err != nil {
			return fmt.Errorf("%w: %v", ErrTruncated, err)
		}
	}
}

// countingReader tracks how many bytes have been pulled from an
// underlying reader, so the LZMA2 filter's self-terminating chunk
// stream can be measured against a block header's declared
// compressed_size. Each Read returns at most one byte, so the buffering
// inside the LZMA2 decoder's byte source never pulls bytes past the end
// of the LZMA2 stream.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// decodeBlock decodes one block's compressed data, runs it back through
// its filter chain, verifies the per-block check, and writes the
// result to w. It returns the index record this block contributes and
// the exact number of stream bytes consumed (header+payload+padding+
// check) and produced.
func decodeBlock(br *bufio.Reader, hdr BlockHeader, checkKind checksum.Kind, memLimit uint64, w io.Writer) (indexRecord, int64, int64, error) {
	lzma2Filter := hdr.Filters[len(hdr.Filters)-1]
	if lzma2Filter.ID != xzfilter.IDLZMA2 || len(lzma2Filter.Props) != 1 {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: terminal filter must be lzma2 with a 1-byte dictionary property", ErrCorruptedData)
	}
	dictSize, err := lzma.DictSizeFromLZMA2Byte(lzma2Filter.Props[0])
	if err != nil {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: %w", ErrCorruptedData, err)
	}
	if uint64(dictSize) > memLimit {
		return indexRecord{}, 0, 0, &DictionaryTooLargeError{Requested: dictSize, Limit: uint32(memLimit)}
	}

	cr := &countingReader{r: br}
	var intermediate bytes.Buffer
	if err := lzma2.Decode(&intermediate, cr, dictSize); err != nil {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: lzma2 payload: %v", ErrCorruptedData, err)
	}
	if hdr.CompressedSize >= 0 && cr.n != hdr.CompressedSize {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: block compressed size: consumed %d, declared %d", ErrCorruptedData, cr.n, hdr.CompressedSize)
	}

	data := intermediate.Bytes()
	for i := len(hdr.Filters) - 2; i >= 0; i-- {
		f := hdr.Filters[i]
		t, err := xzfilter.New(f.ID, f.Props)
		if err != nil {
			return indexRecord{}, 0, 0, err
		}
		t.Decode(data)
	}
	if hdr.UncompressedSize >= 0 && int64(len(data)) != hdr.UncompressedSize {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: block uncompressed size: got %d, declared %d", ErrCorruptedData, len(data), hdr.UncompressedSize)
	}

	padLen := int((4 - cr.n%4) % 4)
	if padLen > 0 {
		pad := make([]byte, padLen)
		if _, err := io.ReadFull(br, pad); err != nil {
			return indexRecord{}, 0, 0, fmt.Errorf("%w: block padding: %v", ErrUnexpectedEOF, err)
		}
		for _, b := range pad {
			if b != 0 {
				return indexRecord{}, 0, 0, fmt.Errorf("%w: non-zero block padding", ErrCorruptedData)
			}
		}
	}

	checkLen := checkKind.Size()
	if checkLen > 0 {
		checkBytes := make([]byte, checkLen)
		if _, err := io.ReadFull(br, checkBytes); err != nil {
			return indexRecord{}, 0, 0, fmt.Errorf("%w: block check: %v", ErrUnexpectedEOF, err)
		}
		checker, err := checksum.New(checkKind)
		if err != nil {
			return indexRecord{}, 0, 0, err
		}
		checker.Write(data)
		got := checker.Sum()
		if !bytes.Equal(got, checkBytes) {
			return indexRecord{}, 0, 0, checkMismatch(checkKind, checkBytes, got)
		}
	}

	if _, err := w.Write(data); err != nil {
		return indexRecord{}, 0, 0, fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}

	unpaddedSize := int64(hdr.HeaderLen) + 4 + cr.n + int64(checkLen)
	bytesIn := int64(hdr.HeaderLen) + 4 + cr.n + int64(padLen) + int64(checkLen)
	rec := indexRecord{UnpaddedSize: uint64(unpaddedSize), UncompressedSize: uint64(len(data))}
	return rec, bytesIn, int64(len(data)), nil
}

// EncodeOptions configures Encode.
type EncodeOptions struct {
	CheckKind checksum.Kind
	// PreFilters are applied to the raw data before LZMA2 compression,
	// outermost first; LZMA2 is always appended as the terminal filter.
	PreFilters []FilterDescriptor
	LZMAParams lzma.Params
}

// Encode reads all of r, compresses it as a single XZ block using
// opts, and writes a complete one-block XZ stream (header, block,
// index, footer) to w.
func Encode(r io.Reader, w io.Writer, opts EncodeOptions) (Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, err
	}

	params := opts.LZMAParams
	if params == (lzma.Params{}) {
		params = lzma.Default
	}
	if params.DictSize == 0 {
		params.DictSize = uint32(max(len(data), 1<<12))
	}
	if err := params.Validate(); err != nil {
		return Stats{}, err
	}

	flags := StreamFlags{Check: opts.CheckKind}
	if err := writeStreamHeader(w, flags); err != nil {
		return Stats{}, err
	}
	stats := Stats{Streams: 1, Blocks: 1, CheckKind: opts.CheckKind, BytesOut: int64(len(data))}
	stats.BytesIn += headerLen

	transformed := append([]byte(nil), data...)
	for _, f := range opts.PreFilters {
		t, err := xzfilter.New(f.ID, f.Props)
		if err != nil {
			return Stats{}, err
		}
		t.Encode(transformed)
	}

	var compressed bytes.Buffer
	if err := lzma2.Encode(&compressed, transformed, params); err != nil {
		return Stats{}, err
	}

	dictByte := lzma.LZMA2ByteFromDictSize(params.DictSize)
	filters := append(append([]FilterDescriptor(nil), opts.PreFilters...), FilterDescriptor{
		ID:    xzfilter.IDLZMA2,
		Props: []byte{dictByte},
	})
	blockHdr := BlockHeader{
		Filters:          filters,
		CompressedSize:   int64(compressed.Len()),
		UncompressedSize: int64(len(data)),
	}
	headerBytes, err := writeBlockHeader(blockHdr)
	if err != nil {
		return Stats{}, err
	}
	if _, err := w.Write(headerBytes); err != nil {
		return Stats{}, err
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return Stats{}, err
	}

	padLen := (4 - compressed.Len()%4) % 4
	if padLen > 0 {
		if _, err := w.Write(make([]byte, padLen)); err != nil {
			return Stats{}, err
		}
	}

	checkLen := opts.CheckKind.Size()
	var checkBytes []byte
	if checkLen > 0 {
		checker, err := checksum.New(opts.CheckKind)
		if err != nil {
			return Stats{}, err
		}
		checker.Write(data)
		checkBytes = checker.Sum()
		if _, err := w.Write(checkBytes); err != nil {
			return Stats{}, err
		}
	}

	unpaddedSize := uint64(len(headerBytes) + compressed.Len() + checkLen)
	index := writeIndex([]indexRecord{{UnpaddedSize: unpaddedSize, UncompressedSize: uint64(len(data))}})
	if _, err := w.Write(index); err != nil {
		return Stats{}, err
	}
	if err := writeStreamFooter(w, flags, int64(len(index))); err != nil {
		return Stats{}, err
	}

	stats.BytesIn = int64(len(headerBytes)) + int64(compressed.Len()) + int64(padLen) + int64(checkLen) + int64(len(index)) + footerLen + headerLen
	return stats, nil
}
