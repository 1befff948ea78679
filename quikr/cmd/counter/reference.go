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
	"io"
	"regexp"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
)

// FastaDB is a reference database in a FASTA file. Each record is a
// taxon unless GroupBy is set, in which case records whose IDs give the
// same first submatch are merged, in order of first appearance.
type FastaDB struct {
	File    string
	GroupBy *regexp.Regexp
}

// References reads the whole database.
func (db FastaDB) References() ([]core.Reference, error) {
	const op = "read references"
	empty, err := checkFile(op, db.File)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, core.Errorf(core.InvalidArgument, op, "no sequences in %s", db.File)
	}
	if db.GroupBy != nil && db.GroupBy.NumSubexp() < 1 {
		return nil, core.Errorf(core.InvalidArgument, op, "grouping regular expression should contain a capture group: %s", db.GroupBy)
	}

	reader, err := fastx.NewDefaultReader(db.File)
	if err != nil {
		return nil, core.E(core.IOFailure, op, errors.Wrap(err, db.File))
	}

	refs := make([]core.Reference, 0, 1024)
	groups := make(map[string]int)
	var id string
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, core.E(core.IOFailure, op, errors.Wrap(err, db.File))
		}

		id = string(record.ID)
		s := make([]byte, len(record.Seq.Seq))
		copy(s, record.Seq.Seq)

		if db.GroupBy == nil {
			refs = append(refs, core.Reference{ID: id, Seqs: [][]byte{s}})
			continue
		}

		found := db.GroupBy.FindStringSubmatch(id)
		if found == nil {
			return nil, core.Errorf(core.InvalidArgument, op, "sequence ID does not match %s: %s", db.GroupBy, id)
		}
		group := found[1]
		if i, ok := groups[group]; ok {
			refs[i].Seqs = append(refs[i].Seqs, s)
			continue
		}
		groups[group] = len(refs)
		refs = append(refs, core.Reference{ID: group, Seqs: [][]byte{s}})
	}
	if len(refs) == 0 {
		return nil, core.Errorf(core.InvalidArgument, op, "no sequences in %s", db.File)
	}
	return refs, nil
}
