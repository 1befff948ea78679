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

// Package counter provides k-mer counters for sample files.
package counter

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/breader"
	"github.com/shenwei356/util/pathutil"
)

// check file existence, and tell if the file is empty.
func checkFile(op, file string) (bool, error) {
	existed, err := pathutil.Exists(file)
	if err != nil {
		return false, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}
	if !existed {
		return false, core.Errorf(core.MissingResource, op, "file not found: %s", file)
	}
	info, err := os.Stat(file)
	if err != nil {
		return false, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}
	if info.IsDir() {
		return false, core.Errorf(core.InvalidArgument, op, "directory given as sample file: %s", file)
	}
	return info.Size() == 0, nil
}

// Fastx counts k-mers of FASTA/FASTQ files in process. Plain and gzipped
// files are both accepted. Every record is one read.
type Fastx struct{}

// Count returns the k-mer counts and number of records of a file.
func (Fastx) Count(ctx context.Context, file string, k int) ([]float64, int64, error) {
	const op = "count"
	voc, err := core.NewVocabulary(k)
	if err != nil {
		return nil, 0, err
	}
	empty, err := checkFile(op, file)
	if err != nil {
		return nil, 0, err
	}
	if err = core.CheckMatrixSize(op, voc.Size(), 1); err != nil {
		return nil, 0, err
	}
	counts := make([]float64, voc.Size())
	if empty {
		return counts, 0, nil
	}

	reader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return nil, 0, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}
	var reads int64
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, reads, core.E(core.IOFailure, op, errors.Wrap(err, file))
		}
		reads++
		voc.Count(counts, record.Seq.Seq)

		if reads&1023 == 0 {
			if err = ctx.Err(); err != nil {
				reader.Close()
				return nil, reads, err
			}
		}
	}
	return counts, reads, nil
}

// CountReads returns the number of records of a FASTA/FASTQ file.
func CountReads(file string) (int64, error) {
	const op = "count reads"
	empty, err := checkFile(op, file)
	if err != nil || empty {
		return 0, err
	}
	reader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return 0, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}
	var n int64
	for {
		_, err = reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return n, core.E(core.IOFailure, op, errors.Wrap(err, file))
		}
		n++
	}
	return n, nil
}

// ReadVector parses a count vector written one or more numbers per line.
// Blank lines and lines starting with "#" are skipped. The vector must have
// 4^k values.
func ReadVector(file string, k int) ([]float64, error) {
	const op = "read count vector"
	voc, err := core.NewVocabulary(k)
	if err != nil {
		return nil, err
	}
	if err = core.CheckMatrixSize(op, voc.Size(), 1); err != nil {
		return nil, err
	}
	empty, err := checkFile(op, file)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, core.Errorf(core.InvalidArgument, op, "no counts found in %s", file)
	}

	fn := func(line string) (interface{}, bool, error) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" || line[0] == '#' {
			return nil, false, nil
		}
		fields := strings.Fields(line)
		values := make([]float64, len(fields))
		var err error
		for i, f := range fields {
			values[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, false, errors.Wrapf(err, "invalid count: %s", f)
			}
		}
		return values, true, nil
	}
	reader, err := breader.NewBufferedReader(file, 2, 64, fn)
	if err != nil {
		return nil, core.E(core.IOFailure, op, errors.Wrap(err, file))
	}

	counts := make([]float64, 0, voc.Size())
	var firstErr error
	for chunk := range reader.Ch {
		if firstErr != nil {
			continue
		}
		if chunk.Err != nil {
			firstErr = core.E(core.InvalidArgument, op, errors.Wrap(chunk.Err, file))
			continue
		}
		for _, data := range chunk.Data {
			counts = append(counts, data.([]float64)...)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if len(counts) != voc.Size() {
		return nil, core.Errorf(core.InvalidArgument, op,
			"%s: %d counts found, expected 4^%d (%d)", file, len(counts), k, voc.Size())
	}
	return counts, nil
}
