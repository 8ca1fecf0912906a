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

// Command xzkit compresses and decompresses XZ streams and inspects
// their structure from the command line.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/archivekit/xzkit/internal/checksum"
	"github.com/archivekit/xzkit/lzip"
	"github.com/archivekit/xzkit/lzma"
	"github.com/archivekit/xzkit/lzmaalone"
	"github.com/archivekit/xzkit/xz"
	"github.com/archivekit/xzkit/xzfilter"
)

const appVersion = "0.1.0"

// Exit codes, per spec.md §6 "CLI surface".
const (
	exitOK              = 0
	exitUsage           = 1
	exitFormatError     = 2
	exitChecksumFailure = 3
	exitUnsupported     = 4
	exitMemoryLimit     = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsage
	}
	switch args[0] {
	case "decompress":
		return runDecompress(args[1:])
	case "compress":
		return runCompress(args[1:])
	case "list":
		return runList(args[1:])
	case "-version", "--version", "version":
		fmt.Printf("xzkit version %s\n", appVersion)
		return exitOK
	case "-h", "--help", "help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "xzkit: unknown subcommand %q\n", args[0])
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: xzkit <subcommand> [options] <file>\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  decompress <file>          decompress an .xz/.lzma/.lz file to stdout\n")
	fmt.Fprintf(os.Stderr, "  compress [-0..-9] <file>   compress a file, writing <file>.xz\n")
	fmt.Fprintf(os.Stderr, "  list <file>                print stream/block structure of an .xz file\n")
}

func runDecompress(args []string) int {
	fs := flag.NewFlagSet("decompress", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintf(os.Stderr, "Usage: xzkit decompress <file>\n") }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitFormatError
	}
	defer func() { _ = f.Close() }()

	switch {
	case strings.HasSuffix(path, ".xz"):
		_, err := xz.Decode(f, os.Stdout, xz.DecodeOptions{})
		return exitForError(err)
	case strings.HasSuffix(path, ".lzma"):
		data, err := lzmaalone.Decode(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
			return exitFormatError
		}
		_, err = os.Stdout.Write(data)
		return exitForError(err)
	case strings.HasSuffix(path, ".lz"):
		data, err := lzip.Decode(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
			return exitFormatError
		}
		_, err = os.Stdout.Write(data)
		return exitForError(err)
	default:
		fmt.Fprintf(os.Stderr, "xzkit: unrecognized extension for %q\n", path)
		return exitFormatError
	}
}

func runCompress(args []string) int {
	fs := flag.NewFlagSet("compress", flag.ContinueOnError)
	for level := 0; level <= 9; level++ {
		level := level
		fs.BoolFunc(fmt.Sprintf("%d", level), "compression preset", func(string) error {
			presetLevel = level
			return nil
		})
	}
	fs.Usage = func() { fmt.Fprintf(os.Stderr, "Usage: xzkit compress [-0..-9] <file>\n") }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitFormatError
	}

	out, err := os.Create(path + ".xz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitFormatError
	}
	defer func() { _ = out.Close() }()

	params := lzma.Default
	params.DictSize = dictSizeForPreset(presetLevel, len(data))
	opts := xz.EncodeOptions{CheckKind: checksum.KindCRC64, LZMAParams: params}
	if _, err := xz.Encode(bytes.NewReader(data), out, opts); err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: compress: %v\n", err)
		return exitFormatError
	}
	return exitOK
}

// presetLevel is set by the -0..-9 BoolFunc flags registered in
// runCompress; 6 matches xz-utils' own default preset.
var presetLevel = 6

func dictSizeForPreset(level, dataLen int) uint32 {
	sizes := [...]uint32{
		1 << 18, 1 << 20, 1 << 21, 1 << 22, 1 << 22,
		1 << 23, 1 << 23, 1 << 24, 1 << 25, 1 << 26,
	}
	if level < 0 || level > 9 {
		level = 6
	}
	size := sizes[level]
	if uint32(max(dataLen, 1)) < size {
		size = uint32(max(dataLen, 1<<12))
	}
	return size
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintf(os.Stderr, "Usage: xzkit list <file>\n") }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitFormatError
	}
	defer func() { _ = f.Close() }()

	stats, err := xz.Decode(f, io.Discard, xz.DecodeOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitForError(err)
	}
	fmt.Printf("%s: %d stream(s), %d block(s), check=%s, %d -> %d bytes\n",
		path, stats.Streams, stats.Blocks, stats.CheckKind, stats.BytesIn, stats.BytesOut)
	return exitOK
}

// exitForError maps a codec error to the exit code spec.md §6 assigns
// it: checksum failures, oversized dictionaries, and unsupported
// filters each get their own code; everything else is a format error.
func exitForError(err error) int {
	if err == nil {
		return exitOK
	}
	var checksumErr *xz.ChecksumFailedError
	var dictErr *xz.DictionaryTooLargeError
	var filterErr *xzfilter.UnsupportedFilterError
	var checkErr *xz.UnsupportedCheckError
	switch {
	case errors.As(err, &checksumErr):
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitChecksumFailure
	case errors.As(err, &dictErr):
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitMemoryLimit
	case errors.As(err, &filterErr), errors.As(err, &checkErr):
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitUnsupported
	default:
		fmt.Fprintf(os.Stderr, "xzkit: %v\n", err)
		return exitFormatError
	}
}
