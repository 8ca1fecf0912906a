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

package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/archivekit/xzkit/lzip"
	"github.com/archivekit/xzkit/lzmaalone"
	"github.com/archivekit/xzkit/xz"
)

// SingleStreamArchive adapts a whole-file compressed stream (.xz, .lzma,
// .lz) into the Archive interface by presenting its decompressed payload
// as the archive's sole member, named after the container with its
// compression extension stripped. Unlike ZIPArchive/RARArchive/
// SevenZipArchive, the payload is decoded eagerly at open time: these
// containers have no directory to read lazily from.
type SingleStreamArchive struct {
	path string
	name string
	data []byte
}

func openSingleStream(path string, decode func(io.Reader) ([]byte, error)) (*SingleStreamArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &SingleStreamArchive{path: path, name: name, data: data}, nil
}

// OpenXZ opens a .xz stream, decoding it in full, as a single-member
// archive.
func OpenXZ(path string) (*SingleStreamArchive, error) {
	return openSingleStream(path, func(r io.Reader) ([]byte, error) {
		var out bytes.Buffer
		if _, err := xz.Decode(r, &out, xz.DecodeOptions{}); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	})
}

// OpenLZMAAlone opens a legacy headered .lzma stream as a single-member
// archive.
func OpenLZMAAlone(path string) (*SingleStreamArchive, error) {
	return openSingleStream(path, lzmaalone.Decode)
}

// OpenLZIP opens a .lz (LZIP) stream as a single-member archive.
func OpenLZIP(path string) (*SingleStreamArchive, error) {
	return openSingleStream(path, lzip.Decode)
}

// List returns the archive's sole decompressed member.
func (sa *SingleStreamArchive) List() ([]FileInfo, error) {
	return []FileInfo{{Name: sa.name, Size: int64(len(sa.data))}}, nil
}

// Open returns the decompressed payload. internalPath is accepted either
// empty (auto-detect, matching the single member) or equal to the
// archive's sole member name.
func (sa *SingleStreamArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	if internalPath != "" && !strings.EqualFold(internalPath, sa.name) {
		return nil, 0, FileNotFoundError{Archive: sa.path, InternalPath: internalPath}
	}
	return io.NopCloser(bytes.NewReader(sa.data)), int64(len(sa.data)), nil
}

// OpenReaderAt returns an io.ReaderAt over the already-decompressed
// payload; no additional buffering is needed since SingleStreamArchive
// never streams from disk lazily.
//
//nolint:revive // 4 return values is necessary for this interface pattern
func (sa *SingleStreamArchive) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	if internalPath != "" && !strings.EqualFold(internalPath, sa.name) {
		return nil, 0, nil, FileNotFoundError{Archive: sa.path, InternalPath: internalPath}
	}
	return &byteReaderAt{data: sa.data}, int64(len(sa.data)), nopCloser{}, nil
}

// Close is a no-op: SingleStreamArchive has no open file handle to
// release, the whole payload already sits decompressed in memory.
func (sa *SingleStreamArchive) Close() error { return nil }
