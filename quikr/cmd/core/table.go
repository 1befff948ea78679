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

package core

import (
	"math"

	"github.com/twotwotwo/sorts"
)

// AbundanceTable is an OTU table: estimated read counts of taxa (rows)
// across samples (columns).
type AbundanceTable struct {
	Taxa    []string
	Samples []string
	Counts  [][]int64 // Counts[row][sample]
}

// AssembleTable converts relative abundances into read counts,
// round(abundance * reads) half away from zero, and drops taxa that are
// zero in every sample. Samples with a nil estimate are skipped.
func AssembleTable(taxa []string, samples []string, estimates [][]float64, reads []int64) (*AbundanceTable, error) {
	if len(estimates) != len(samples) || len(reads) != len(samples) {
		return nil, Errorf(InvalidArgument, "otu table",
			"%d samples, %d estimates and %d read counts", len(samples), len(estimates), len(reads))
	}

	cols := make([]int, 0, len(samples))
	for j, est := range estimates {
		if est == nil {
			continue
		}
		if len(est) != len(taxa) {
			return nil, Errorf(InvalidArgument, "otu table",
				"sample %s: %d abundances for %d taxa", samples[j], len(est), len(taxa))
		}
		cols = append(cols, j)
	}

	tbl := &AbundanceTable{
		Taxa:    make([]string, 0, len(taxa)),
		Samples: make([]string, len(cols)),
		Counts:  make([][]int64, 0, len(taxa)),
	}
	for c, j := range cols {
		tbl.Samples[c] = samples[j]
	}

	for t, taxon := range taxa {
		row := make([]int64, len(cols))
		var nonZero bool
		for c, j := range cols {
			row[c] = int64(math.Round(estimates[j][t] * float64(reads[j])))
			if row[c] != 0 {
				nonZero = true
			}
		}
		if !nonZero {
			continue
		}
		tbl.Taxa = append(tbl.Taxa, taxon)
		tbl.Counts = append(tbl.Counts, row)
	}
	return tbl, nil
}

// Total returns the sum of counts of a row.
func (tbl *AbundanceTable) Total(row int) int64 {
	var s int64
	for _, v := range tbl.Counts[row] {
		s += v
	}
	return s
}

// Rename replaces taxon labels found in names.
func (tbl *AbundanceTable) Rename(names map[string]string) {
	for i, t := range tbl.Taxa {
		if n, ok := names[t]; ok {
			tbl.Taxa[i] = n
		}
	}
}

// SortByTotal orders rows by descending total count, then by taxon.
func (tbl *AbundanceTable) SortByTotal() {
	rows := make(rowsByTotal, len(tbl.Taxa))
	for i := range rows {
		rows[i] = tableRow{taxon: tbl.Taxa[i], counts: tbl.Counts[i], total: tbl.Total(i)}
	}
	sorts.Quicksort(rows)
	for i, r := range rows {
		tbl.Taxa[i] = r.taxon
		tbl.Counts[i] = r.counts
	}
}

type tableRow struct {
	taxon  string
	counts []int64
	total  int64
}

type rowsByTotal []tableRow

func (r rowsByTotal) Len() int      { return len(r) }
func (r rowsByTotal) Swap(i, j int) { r[i], r[j] = r[j], r[i] }
func (r rowsByTotal) Less(i, j int) bool {
	if r[i].total == r[j].total {
		return r[i].taxon < r[j].taxon
	}
	return r[i].total > r[j].total
}
