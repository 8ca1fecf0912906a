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

package archive_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/archivekit/xzkit/archive"
	"github.com/archivekit/xzkit/lzip"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/lzmaalone"
	"github.com/archivekit/xzkit/xz"
)

func writeXZFixture(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := xz.Encode(bytes.NewReader(data), f, xz.EncodeOptions{LZMAParams: lzma.Default}); err != nil {
		t.Fatalf("xz.Encode: %v", err)
	}
}

func writeLZMAAloneFixture(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := lzmaalone.Encode(f, data, lzma.Default); err != nil {
		t.Fatalf("lzmaalone.Encode: %v", err)
	}
}

func writeLZIPFixture(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := lzip.Encode(f, data); err != nil {
		t.Fatalf("lzip.Encode: %v", err)
	}
}

func TestSingleStreamArchives(t *testing.T) {
	t.Parallel()

	want := []byte("single-stream archive payload, repeated for compressibility. " +
		"single-stream archive payload, repeated for compressibility.")

	tests := []struct {
		name     string
		filename string
		write    func(t *testing.T, path string, data []byte)
		open     func(path string) (archive.Archive, error)
	}{
		{
			name:     "xz",
			filename: "game.gba.xz",
			write:    writeXZFixture,
			open:     func(path string) (archive.Archive, error) { return archive.OpenXZ(path) },
		},
		{
			name:     "lzma-alone",
			filename: "game.gba.lzma",
			write:    writeLZMAAloneFixture,
			open:     func(path string) (archive.Archive, error) { return archive.OpenLZMAAlone(path) },
		},
		{
			name:     "lzip",
			filename: "game.gba.lz",
			write:    writeLZIPFixture,
			open:     func(path string) (archive.Archive, error) { return archive.OpenLZIP(path) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, tc.filename)
			tc.write(t, path, want)

			arc, err := tc.open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer func() { _ = arc.Close() }()

			files, err := arc.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(files) != 1 {
				t.Fatalf("got %d files, want 1", len(files))
			}
			wantName := tc.filename[:len(tc.filename)-len(filepath.Ext(tc.filename))]
			if files[0].Name != wantName {
				t.Fatalf("member name = %q, want %q", files[0].Name, wantName)
			}
			if files[0].Size != int64(len(want)) {
				t.Fatalf("member size = %d, want %d", files[0].Size, len(want))
			}

			r, size, err := arc.Open(files[0].Name)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = r.Close() }()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if size != int64(len(want)) || !bytes.Equal(got, want) {
				t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(want))
			}

			if _, _, err := arc.Open("nonexistent-member"); err == nil {
				t.Fatal("expected error opening a name that is not the sole member")
			}
		})
	}
}

func TestArchiveOpenDispatchesSingleStreamExtensions(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "rom.nes.xz")
	writeXZFixture(t, path, []byte("nes rom bytes"))

	arc, err := archive.Open(path)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	if _, ok := arc.(*archive.SingleStreamArchive); !ok {
		t.Fatalf("archive.Open(%q) = %T, want *archive.SingleStreamArchive", path, arc)
	}
}
