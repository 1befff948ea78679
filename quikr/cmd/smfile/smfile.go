// Copyright © 2026 The Quikr Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package smfile reads and writes sensing matrices, abundance vectors and
// OTU tables.
//
// Two matrix formats are supported: a binary format with a checksum, which
// can be memory-mapped, and the plain text format written by quikr_train.
// Both may be gzip-compressed.
package smfile

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/zeebo/xxh3"
)

// Format is the encoding of a sensing matrix file.
type Format int

const (
	// Binary is the checksummed binary format.
	Binary Format = iota
	// Text is the format of quikr_train.
	Text
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case Text:
		return "text"
	}
	return "unknown"
}

// ParseFormat parses "binary" or "text".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "binary", "bin", "qsm":
		return Binary, nil
	case "text", "txt":
		return Text, nil
	}
	return 0, errors.Errorf("unknown sensing matrix format: %s, available: binary, text", s)
}

// DetectFormat peeks the (decompressed) head of a file.
func DetectFormat(file string) (Format, bool, error) {
	r, err := openMatrixFile(file)
	if err != nil {
		return 0, false, err
	}
	defer r.Close()

	switch {
	case r.hasPrefix(Magic[:]):
		return Binary, r.gzipped, nil
	case r.hasPrefix([]byte(TextMagic + "\n")), r.hasPrefix([]byte(TextMagic + "\r\n")):
		return Text, r.gzipped, nil
	}
	return 0, r.gzipped, ErrInvalidFormat
}

// Load reads a sensing matrix of either format. Plain binary files are
// memory-mapped.
func Load(file string) (*core.SensingMatrix, Format, error) {
	const op = "load sensing matrix"
	existed, err := pathutil.Exists(file)
	if err != nil {
		return nil, 0, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}
	if !existed {
		return nil, 0, core.Errorf(core.MissingResource, op, "sensing matrix not found: %s", file)
	}

	format, gzipped, err := DetectFormat(file)
	if err != nil {
		return nil, 0, core.E(kindOf(err), op, errors.Wrap(err, file))
	}

	var m *core.SensingMatrix
	switch {
	case format == Text:
		m, err = ReadTextFile(file)
	case gzipped:
		m, err = readBinaryStream(file)
	default:
		m, err = ReadBinaryMmap(file)
	}
	if err != nil {
		return nil, format, core.E(kindOf(err), op, errors.Wrap(err, file))
	}
	return m, format, nil
}

func kindOf(err error) core.Kind {
	if k := core.KindOf(err); k != core.Other {
		return k
	}
	switch errors.Cause(err) {
	case ErrInvalidFormat, ErrVersionMismatch, ErrTruncated, ErrChecksumMismatch, ErrFingerprintMismatch:
		return core.InvalidArgument
	}
	return core.IOFailure
}

func readBinaryStream(file string) (*core.SensingMatrix, error) {
	r, err := openMatrixFile(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	return reader.Read()
}

// ReadBinaryMmap reads an uncompressed binary file through a memory map.
func ReadBinaryMmap(file string) (*core.SensingMatrix, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	reader, err := NewReader(fh)
	if err != nil {
		return nil, err
	}
	offset, err := fh.Seek(0, 1)
	if err != nil {
		return nil, errors.Wrap(err, "seek sensing matrix file")
	}

	m, err := mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()
	buf := []byte(m)

	rows := 1 << (uint(reader.K) << 1)
	colSize := rows << 3
	end := int(offset) + colSize*int(reader.NumTaxa)
	if len(buf) < end+8 {
		return nil, ErrTruncated
	}

	data := make([]float64, rows*int(reader.NumTaxa))
	hashes := make([]byte, 0, reader.NumTaxa<<3)
	var col []byte
	for t := 0; t < int(reader.NumTaxa); t++ {
		col = buf[int(offset)+t*colSize : int(offset)+(t+1)*colSize]
		hashes = be.AppendUint64(hashes, xxh3.Hash(col))
		decodeColumn(data[t*rows:(t+1)*rows], col)
	}
	if binary.BigEndian.Uint64(buf[end:end+8]) != xxh3.Hash(hashes) {
		return nil, ErrChecksumMismatch
	}
	return core.NewSensingMatrix(reader.K, reader.Taxa, data)
}

// Save writes a sensing matrix, gzipped with the given level if compress
// is true.
func Save(file string, m *core.SensingMatrix, format Format, compress bool, level int) error {
	const op = "save sensing matrix"
	w, err := createMatrixFile(file, compress, level)
	if err != nil {
		return core.E(core.IOFailure, op, errors.Wrap(err, file))
	}

	switch format {
	case Text:
		err = WriteText(w, m)
	default:
		err = WriteBinary(w, m)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return core.E(kindOf(err), op, errors.Wrap(err, file))
	}
	return nil
}
