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
	"strconv"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// OTUTableTitle is the first line of OTU tables, which QIIME recognizes.
const OTUTableTitle = "# QIIME vQuikr OTU table"

// WriteOTUTable writes a tab-delimited OTU table. A file name ending
// with .gz is compressed, and "-" is stdout.
func WriteOTUTable(file string, tbl *core.AbundanceTable) (err error) {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return core.E(core.IOFailure, "write otu table", errors.Wrap(err, file))
	}
	defer func() {
		if cerr := outfh.Close(); err == nil && cerr != nil {
			err = core.E(core.IOFailure, "write otu table", errors.Wrap(cerr, file))
		}
	}()

	outfh.WriteString(OTUTableTitle + "\n")
	outfh.WriteString("#OTU_ID")
	for _, s := range tbl.Samples {
		outfh.WriteString("\t" + s)
	}
	outfh.WriteString("\n")

	buf := make([]byte, 0, 1024)
	for i, taxon := range tbl.Taxa {
		buf = append(buf[:0], taxon...)
		for _, c := range tbl.Counts[i] {
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, c, 10)
		}
		buf = append(buf, '\n')
		if _, err = outfh.Write(buf); err != nil {
			return core.E(core.IOFailure, "write otu table", errors.Wrap(err, file))
		}
	}
	return nil
}

// WriteAbundance writes the abundance of each taxon of one sample, one
// "taxon\tabundance" per line. Zero abundances are written unless
// nonZeroOnly is true.
func WriteAbundance(file string, taxa []string, abundance []float64, nonZeroOnly bool) (err error) {
	if len(taxa) != len(abundance) {
		return core.Errorf(core.InvalidArgument, "write abundance", "%d taxa and %d abundances", len(taxa), len(abundance))
	}
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return core.E(core.IOFailure, "write abundance", errors.Wrap(err, file))
	}
	defer func() {
		if cerr := outfh.Close(); err == nil && cerr != nil {
			err = core.E(core.IOFailure, "write abundance", errors.Wrap(cerr, file))
		}
	}()

	buf := make([]byte, 0, 256)
	for i, taxon := range taxa {
		if nonZeroOnly && abundance[i] == 0 {
			continue
		}
		buf = append(buf[:0], taxon...)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, abundance[i], 'f', 6, 64)
		buf = append(buf, '\n')
		if _, err = outfh.Write(buf); err != nil {
			return core.E(core.IOFailure, "write abundance", errors.Wrap(err, file))
		}
	}
	return nil
}
