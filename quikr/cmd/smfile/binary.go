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

package smfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

// Version is the version of the binary format.
const Version uint8 = 1

// Magic number of binary sensing matrix files.
var Magic = [8]byte{'.', 'q', 'u', 'i', 'k', 'r', 's', 'm'}

// ErrInvalidFormat means the file is neither format.
var ErrInvalidFormat = errors.New("quikr: invalid sensing matrix format")

// ErrVersionMismatch means the file was written by another version.
var ErrVersionMismatch = errors.New("quikr: sensing matrix version mismatch")

// ErrTruncated means the file ends early.
var ErrTruncated = errors.New("quikr: truncated sensing matrix file")

// ErrChecksumMismatch means the payload is corrupted.
var ErrChecksumMismatch = errors.New("quikr: sensing matrix checksum mismatch")

// ErrFingerprintMismatch means the k-mer ordering of the file differs
// from the one of this program.
var ErrFingerprintMismatch = errors.New("quikr: k-mer vocabulary fingerprint mismatch")

// ErrUnfinishedWrite means fewer columns were written than declared.
var ErrUnfinishedWrite = errors.New("quikr: sensing matrix not finished writing")

// ErrWrongColumnSize means the size of a column to write is invalid.
var ErrWrongColumnSize = errors.New("quikr: write column with wrong size")

var be = binary.BigEndian

// Header contains metadata of a binary sensing matrix.
type Header struct {
	Version     uint8
	K           int // uint8
	NumTaxa     uint64
	Fingerprint uint64
	Taxa        []string
}

func (h Header) String() string {
	return fmt.Sprintf("quikr sensing matrix file v%d: k: %d, #taxa: %d, fingerprint: %016x",
		h.Version, h.K, h.NumTaxa, h.Fingerprint)
}

// ------------------------------------------------------------------------

// Writer writes a sensing matrix column by column.
//
// Layout, big endian:
//
//	8 bytes magic, 4 bytes [version, k, 0, 0], 8 bytes #taxa,
//	8 bytes vocabulary fingerprint, 4 bytes length of names,
//	names each ending with "\n", #taxa x 4^k float64 (column-major),
//	8 bytes checksum.
//
// The checksum is the xxh3 hash of the concatenated xxh3 hashes of columns.
type Writer struct {
	Header
	w           io.Writer
	wroteHeader bool

	rows   int
	count  uint64
	buf    []byte
	hashes []byte
}

// NewWriter creates a Writer.
// taxon names are line-delimited in both formats.
func checkTaxonNames(taxa []string) error {
	for _, t := range taxa {
		if strings.ContainsAny(t, "\r\n") {
			return core.Errorf(core.InvalidArgument, "sensing matrix", "taxon name should not contain line breaks: %q", t)
		}
	}
	return nil
}

func NewWriter(w io.Writer, k int, taxa []string) (*Writer, error) {
	voc, err := core.NewVocabulary(k)
	if err != nil {
		return nil, err
	}
	if err = checkTaxonNames(taxa); err != nil {
		return nil, err
	}
	return &Writer{
		Header: Header{
			Version:     Version,
			K:           k,
			NumTaxa:     uint64(len(taxa)),
			Fingerprint: voc.Fingerprint(),
			Taxa:        taxa,
		},
		w:      w,
		rows:   voc.Size(),
		buf:    make([]byte, voc.Size()<<3),
		hashes: make([]byte, 0, len(taxa)<<3),
	}, nil
}

// WriteHeader writes file header
func (writer *Writer) WriteHeader() (err error) {
	if writer.wroteHeader {
		return nil
	}
	w := writer.w

	// 8 bytes magic number
	if err = binary.Write(w, be, Magic); err != nil {
		return err
	}

	// 4 bytes meta info
	if err = binary.Write(w, be, [4]uint8{writer.Version, uint8(writer.K), 0, 0}); err != nil {
		return err
	}

	// 8 bytes number of taxa
	if err = binary.Write(w, be, writer.NumTaxa); err != nil {
		return err
	}

	// 8 bytes fingerprint
	if err = binary.Write(w, be, writer.Fingerprint); err != nil {
		return err
	}

	// names
	var n int
	for _, t := range writer.Taxa {
		n += len(t) + 1
	}
	if err = binary.Write(w, be, uint32(n)); err != nil {
		return err
	}
	for _, t := range writer.Taxa {
		if _, err = io.WriteString(w, t+"\n"); err != nil {
			return err
		}
	}

	writer.wroteHeader = true
	return nil
}

// Write writes the distribution of the next taxon.
func (writer *Writer) Write(column []float64) (err error) {
	if len(column) != writer.rows {
		return ErrWrongColumnSize
	}
	if writer.count >= writer.NumTaxa {
		return errors.Wrapf(ErrWrongColumnSize, "more than %d columns", writer.NumTaxa)
	}

	// lazily write header
	if !writer.wroteHeader {
		if err = writer.WriteHeader(); err != nil {
			return err
		}
	}

	for i, v := range column {
		be.PutUint64(writer.buf[i<<3:], math.Float64bits(v))
	}
	if _, err = writer.w.Write(writer.buf); err != nil {
		return err
	}
	writer.hashes = be.AppendUint64(writer.hashes, xxh3.Hash(writer.buf))

	writer.count++
	return nil
}

// Flush checks completeness and writes the checksum.
func (writer *Writer) Flush() (err error) {
	if !writer.wroteHeader {
		if err = writer.WriteHeader(); err != nil {
			return err
		}
	}
	if writer.count != writer.NumTaxa {
		return ErrUnfinishedWrite
	}
	return binary.Write(writer.w, be, xxh3.Hash(writer.hashes))
}

// WriteBinary writes a whole matrix.
func WriteBinary(w io.Writer, m *core.SensingMatrix) error {
	writer, err := NewWriter(w, m.K, m.Taxa)
	if err != nil {
		return err
	}
	for t := range m.Taxa {
		if err = writer.Write(m.Column(t)); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// ------------------------------------------------------------------------

// Reader reads a binary sensing matrix.
type Reader struct {
	Header
	r io.Reader
}

// NewReader reads the header and returns a Reader.
func NewReader(r io.Reader) (reader *Reader, err error) {
	reader = &Reader{r: r}
	if err = reader.readHeader(); err != nil {
		return nil, err
	}
	return reader, nil
}

func (reader *Reader) readHeader() (err error) {
	buf := make([]byte, 8)
	r := reader.r

	// check Magic number (8 byte)
	if _, err = io.ReadFull(r, buf); err != nil {
		return ErrInvalidFormat
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			return ErrInvalidFormat
		}
	}

	// 4 bytes meta info
	var meta [4]uint8
	if err = binary.Read(r, be, &meta); err != nil {
		return ErrTruncated
	}
	if meta[0] != Version {
		return errors.Wrapf(ErrVersionMismatch, "file v%d, program v%d", meta[0], Version)
	}
	reader.Version = meta[0]
	reader.K = int(meta[1])

	if err = binary.Read(r, be, &reader.NumTaxa); err != nil {
		return ErrTruncated
	}
	if err = binary.Read(r, be, &reader.Fingerprint); err != nil {
		return ErrTruncated
	}

	voc, err := core.NewVocabulary(reader.K)
	if err != nil {
		return errors.Wrap(ErrInvalidFormat, err.Error())
	}
	if voc.Fingerprint() != reader.Fingerprint {
		return ErrFingerprintMismatch
	}

	// names
	var n uint32
	if err = binary.Read(r, be, &n); err != nil {
		return ErrTruncated
	}
	names := make([]byte, n)
	if _, err = io.ReadFull(r, names); err != nil {
		return ErrTruncated
	}
	taxa := strings.Split(string(names), "\n")
	if len(taxa) == 0 || taxa[len(taxa)-1] != "" {
		return errors.Wrap(ErrInvalidFormat, "taxon names")
	}
	reader.Taxa = taxa[:len(taxa)-1]
	if uint64(len(reader.Taxa)) != reader.NumTaxa {
		return errors.Wrapf(ErrInvalidFormat, "%d taxon names for %d taxa", len(reader.Taxa), reader.NumTaxa)
	}
	return core.CheckMatrixSize("read sensing matrix", voc.Size(), len(reader.Taxa))
}

// Read reads the payload and verifies the checksum.
func (reader *Reader) Read() (*core.SensingMatrix, error) {
	rows := 1 << (uint(reader.K) << 1)
	buf := make([]byte, rows<<3)
	data := make([]float64, uint64(rows)*reader.NumTaxa)
	hashes := make([]byte, 0, reader.NumTaxa<<3)
	for t := uint64(0); t < reader.NumTaxa; t++ {
		if _, err := io.ReadFull(reader.r, buf); err != nil {
			return nil, ErrTruncated
		}
		hashes = be.AppendUint64(hashes, xxh3.Hash(buf))
		decodeColumn(data[t*uint64(rows):(t+1)*uint64(rows)], buf)
	}

	var sum uint64
	if err := binary.Read(reader.r, be, &sum); err != nil {
		return nil, ErrTruncated
	}
	if sum != xxh3.Hash(hashes) {
		return nil, ErrChecksumMismatch
	}
	return core.NewSensingMatrix(reader.K, reader.Taxa, data)
}

func decodeColumn(col []float64, buf []byte) {
	for i := range col {
		col[i] = math.Float64frombits(be.Uint64(buf[i<<3:]))
	}
}
