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

package cmd

import (
	"fmt"
	"regexp"
	"time"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/EESI/quikr/quikr/cmd/nnls"
	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/cliutil"
	"github.com/shenwei356/util/pathutil"
)

// loadMatrix loads a sensing matrix and checks it against its sidecar
// info file when there is one.
func loadMatrix(opt *Options, file string) *core.SensingMatrix {
	if file == "" {
		checkError(core.Errorf(core.MissingResource, "load sensing matrix", "flag -s/--sensing-matrix needed"))
	}

	timeStart := time.Now()
	m, format, err := smfile.Load(file)
	checkError(err)
	if opt.Verbose || opt.Log2File {
		log.Infof("sensing matrix loaded in %s: %s, %s format, k=%d, %s taxa",
			time.Since(timeStart), file, format, m.K, humanize.Comma(int64(m.Cols())))
	}

	infoFile := smfile.InfoFile(file)
	existed, err := pathutil.Exists(infoFile)
	checkError(errors.Wrap(err, infoFile))
	if !existed {
		return m
	}
	info, err := smfile.InfoFromFile(infoFile)
	if err != nil {
		log.Warningf("skip checking info file: %s", err)
		return m
	}
	fp := fmt.Sprintf("%016x", m.Vocabulary().Fingerprint())
	if info.K != m.K || info.NumTaxa != m.Cols() || info.Fingerprint != fp {
		checkError(core.Errorf(core.InvalidArgument, "load sensing matrix",
			"%s does not match %s: k=%d, #taxa=%d, fingerprint=%s vs k=%d, #taxa=%d, fingerprint=%s",
			infoFile, file, info.K, info.NumTaxa, info.Fingerprint, m.K, m.Cols(), fp))
	}
	return m
}

// checkReference checks that the taxa of a reference FASTA file, grouped
// as recorded in the sidecar info file of the matrix, are the columns of
// the matrix in the same order.
func checkReference(matrixFile, refFile string, m *core.SensingMatrix) error {
	const op = "check reference"
	db := counter.FastaDB{File: refFile}
	if info, err := smfile.InfoFromFile(smfile.InfoFile(matrixFile)); err == nil && info.GroupBy != "" {
		db.GroupBy, err = regexp.Compile(info.GroupBy)
		if err != nil {
			return core.E(core.InvalidArgument, op, errors.Wrap(err, "group-by"))
		}
	}
	refs, err := db.References()
	if err != nil {
		return err
	}
	if len(refs) != m.Cols() {
		return core.Errorf(core.InvalidArgument, op,
			"%d taxa in %s, but %d in sensing matrix %s", len(refs), refFile, m.Cols(), matrixFile)
	}
	for i, ref := range refs {
		if ref.ID != m.Taxa[i] {
			return core.Errorf(core.InvalidArgument, op,
				"taxon #%d is %q in %s, but %q in sensing matrix %s", i+1, ref.ID, refFile, m.Taxa[i], matrixFile)
		}
	}
	return nil
}

// readNameMapping reads tab-delimited "taxon\tname" pairs.
func readNameMapping(opt *Options, file string) map[string]string {
	if file == "" {
		return nil
	}
	names, err := cliutil.ReadKVs(file, false)
	checkError(errors.Wrap(err, file))
	if opt.Verbose || opt.Log2File {
		log.Infof("%s pairs of name mapping values loaded from %s", humanize.Comma(int64(len(names))), file)
	}
	return names
}

// renameTaxa returns the taxa, with mapped names replaced.
func renameTaxa(taxa []string, names map[string]string) []string {
	if len(names) == 0 {
		return taxa
	}
	renamed := make([]string, len(taxa))
	for i, t := range taxa {
		if name, ok := names[t]; ok {
			renamed[i] = name
		} else {
			renamed[i] = t
		}
	}
	return renamed
}

// newSolver returns the NNLS solver, 0 maxIter for the default limit.
func newSolver(maxIter int) core.Solver {
	return nnls.LawsonHanson{MaxIter: maxIter}
}
