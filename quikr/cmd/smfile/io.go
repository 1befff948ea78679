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
	"bufio"
	"bytes"
	"os"
	"path/filepath"

	gzip "github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// BufferSize is the buffer size of file streams.
var BufferSize = 65536

var gzipMagic = []byte{0x1f, 0x8b}

// matrixWriter buffers writes to a plain or gzipped file, or stdout for "-".
type matrixWriter struct {
	*bufio.Writer
	gw *gzip.Writer
	fh *os.File
}

// createMatrixFile creates file and its parent directories.
func createMatrixFile(file string, gzipped bool, level int) (*matrixWriter, error) {
	w := &matrixWriter{fh: os.Stdout}
	if file != "-" {
		dir := filepath.Dir(file)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
		fh, err := os.Create(file)
		if err != nil {
			return nil, err
		}
		w.fh = fh
	}

	if !gzipped {
		w.Writer = bufio.NewWriterSize(w.fh, BufferSize)
		return w, nil
	}
	gw, err := gzip.NewWriterLevel(w.fh, level)
	if err != nil {
		w.closeFile()
		return nil, errors.Wrap(err, file)
	}
	w.gw = gw
	w.Writer = bufio.NewWriterSize(gw, BufferSize)
	return w, nil
}

func (w *matrixWriter) closeFile() error {
	if w.fh == os.Stdout {
		return nil
	}
	return w.fh.Close()
}

// Close flushes the buffer and the gzip stream, and closes the file. The
// first error is returned.
func (w *matrixWriter) Close() error {
	err := w.Flush()
	if w.gw != nil {
		if e := w.gw.Close(); err == nil {
			err = e
		}
	}
	if e := w.closeFile(); err == nil {
		err = e
	}
	return err
}

// matrixReader reads a plain or gzipped file, telling them apart by the
// gzip magic number rather than the file name.
type matrixReader struct {
	*bufio.Reader
	gzipped bool
	gr      *gzip.Reader
	fh      *os.File
}

func openMatrixFile(file string) (*matrixReader, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	r := &matrixReader{fh: fh, Reader: bufio.NewReaderSize(fh, BufferSize)}

	if r.gzipped = r.hasPrefix(gzipMagic); r.gzipped {
		if r.gr, err = gzip.NewReaderN(r.Reader, BufferSize, 8); err != nil {
			fh.Close()
			return nil, errors.Wrapf(err, "read gzip header of %s", file)
		}
		r.Reader = bufio.NewReaderSize(r.gr, BufferSize)
	}
	return r, nil
}

// hasPrefix peeks the unread data. Short or unreadable data has no prefix.
func (r *matrixReader) hasPrefix(prefix []byte) bool {
	head, err := r.Peek(len(prefix))
	return err == nil && bytes.Equal(head, prefix)
}

func (r *matrixReader) Close() error {
	if r.gr != nil {
		r.gr.Close()
	}
	return r.fh.Close()
}
