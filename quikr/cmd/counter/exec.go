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

package counter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
)

// DefaultCountProgram is the external k-mer counter.
const DefaultCountProgram = "count-kmers"

// Exec runs an external program that prints the k-mer counts of a file,
// in vocabulary order, to stdout. Reads are counted in process.
type Exec struct {
	// Program defaults to DefaultCountProgram.
	Program string

	// Args returns the arguments. nil means "-r <k> -1 -u <file>".
	Args func(file string, k int) []string
}

func defaultArgs(file string, k int) []string {
	return []string{"-r", strconv.Itoa(k), "-1", "-u", file}
}

// Command returns the command line run for a file.
func (e Exec) Command(file string, k int) (string, []string) {
	program := e.Program
	if program == "" {
		program = DefaultCountProgram
	}
	args := e.Args
	if args == nil {
		args = defaultArgs
	}
	return program, args(file, k)
}

// Count runs the program and parses its output.
func (e Exec) Count(ctx context.Context, file string, k int) ([]float64, int64, error) {
	const op = "count"
	if _, err := core.NewVocabulary(k); err != nil {
		return nil, 0, err
	}
	if _, err := checkFile(op, file); err != nil {
		return nil, 0, err
	}

	program, args := e.Command(file, k)
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, 0, core.E(core.MissingResource, op, errors.Wrapf(err, "k-mer counter %s", program))
	}

	out, err := os.CreateTemp("", "quikr-counts-*.txt")
	if err != nil {
		return nil, 0, core.E(core.IOFailure, op, err)
	}
	defer os.Remove(out.Name())

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = out
	cmd.Stderr = &stderr
	err = cmd.Run()
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, 0, core.E(core.IOFailure, op, errors.Wrapf(err, "%s %s: %s", program, strings.Join(args, " "), msg))
	}

	counts, err := ReadVector(out.Name(), k)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "parsing output of %s on %s", program, file)
	}
	reads, err := CountReads(file)
	if err != nil {
		return nil, 0, err
	}
	return counts, reads, nil
}

// Precomputed reads count vectors saved beside the samples, in
// <sample file><Suffix> (optionally gzipped), and counts reads of the
// sample file itself.
type Precomputed struct {
	// Suffix defaults to ".counts".
	Suffix string
}

// Count reads the precomputed vector of a sample file.
func (p Precomputed) Count(ctx context.Context, file string, k int) ([]float64, int64, error) {
	suffix := p.Suffix
	if suffix == "" {
		suffix = ".counts"
	}
	counts, err := ReadVector(file+suffix, k)
	if err != nil {
		return nil, 0, err
	}
	if err = ctx.Err(); err != nil {
		return nil, 0, err
	}
	reads, err := CountReads(file)
	if err != nil {
		return nil, 0, err
	}
	return counts, reads, nil
}
