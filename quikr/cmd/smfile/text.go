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
	"io"
	"strconv"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/shenwei356/breader"
)

// TextMagic is the first line of text sensing matrices.
const TextMagic = "quikr"

// TextRevision is the only supported revision of the text format.
const TextRevision = 0

// WriteText writes a matrix in the text format of quikr_train:
//
//	quikr
//	<revision>
//	<#taxa>
//	<k>
//	>taxon
//	one value per k-mer, in vocabulary order
//	...
func WriteText(w io.Writer, m *core.SensingMatrix) (err error) {
	if err = checkTaxonNames(m.Taxa); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, BufferSize)
	bw.WriteString(TextMagic + "\n")
	bw.WriteString(strconv.Itoa(TextRevision) + "\n")
	bw.WriteString(strconv.Itoa(m.Cols()) + "\n")
	bw.WriteString(strconv.Itoa(m.K) + "\n")

	buf := make([]byte, 0, 32)
	for t, taxon := range m.Taxa {
		bw.WriteString(">" + taxon + "\n")
		for _, v := range m.Column(t) {
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			buf = append(buf, '\n')
			if _, err = bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

type textLine struct {
	header bool
	text   string
	value  float64
}

// ReadTextFile reads a (gzipped) text sensing matrix. Columns may hold raw
// k-mer counts, as written by quikr_train, and are normalized.
func ReadTextFile(file string) (*core.SensingMatrix, error) {
	fn := func(line string) (interface{}, bool, error) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return nil, false, nil
		}
		if line[0] == '>' {
			return textLine{header: true, text: line[1:]}, true, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			// the first lines are not numbers
			return textLine{text: line, value: -1}, true, nil
		}
		return textLine{text: line, value: v}, true, nil
	}
	reader, err := breader.NewBufferedReader(file, 4, 1000, fn)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}

	var p textParser
	for chunk := range reader.Ch {
		if p.err != nil {
			continue
		}
		if chunk.Err != nil {
			p.err = errors.Wrap(chunk.Err, file)
			continue
		}
		for _, data := range chunk.Data {
			if p.feed(data.(textLine)); p.err != nil {
				break
			}
		}
	}
	if p.err != nil {
		return nil, errors.Wrap(p.err, file)
	}
	return p.finish()
}

type textParser struct {
	nLines  int // header lines seen
	numTaxa int
	k       int
	rows    int

	taxa []string
	data []float64
	col  []float64

	err error
}

func (p *textParser) feed(l textLine) {
	switch p.nLines {
	case 0:
		if l.text != TextMagic {
			p.err = errors.Wrap(ErrInvalidFormat, "first line should be \"quikr\"")
		}
		p.nLines++
		return
	case 1:
		if rev, err := strconv.Atoi(l.text); err != nil || rev != TextRevision {
			p.err = errors.Wrapf(ErrVersionMismatch, "unsupported revision: %s", l.text)
		}
		p.nLines++
		return
	case 2:
		n, err := strconv.Atoi(l.text)
		if err != nil || n <= 0 {
			p.err = errors.Wrapf(ErrInvalidFormat, "invalid number of taxa: %s", l.text)
		}
		p.numTaxa = n
		p.nLines++
		return
	case 3:
		k, err := strconv.Atoi(l.text)
		if err != nil {
			p.err = errors.Wrapf(ErrInvalidFormat, "invalid k: %s", l.text)
			return
		}
		voc, err := core.NewVocabulary(k)
		if err != nil {
			p.err = errors.Wrap(ErrInvalidFormat, err.Error())
			return
		}
		p.k, p.rows = k, voc.Size()
		p.taxa = make([]string, 0, p.numTaxa)
		p.data = make([]float64, 0, p.numTaxa*p.rows)
		p.nLines++
		return
	}

	if l.header {
		if err := p.closeColumn(); err != nil {
			p.err = err
			return
		}
		if len(p.taxa) == p.numTaxa {
			p.err = errors.Wrapf(ErrInvalidFormat, "more than %d taxa", p.numTaxa)
			return
		}
		p.taxa = append(p.taxa, l.text)
		p.col = make([]float64, 0, p.rows)
		return
	}
	if p.col == nil {
		p.err = errors.Wrap(ErrInvalidFormat, "value before the first taxon")
		return
	}
	if l.value < 0 {
		p.err = errors.Wrapf(ErrInvalidFormat, "invalid value of %s: %s", p.taxa[len(p.taxa)-1], l.text)
		return
	}
	if len(p.col) == p.rows {
		p.err = errors.Wrapf(ErrInvalidFormat, "more than %d values for %s", p.rows, p.taxa[len(p.taxa)-1])
		return
	}
	p.col = append(p.col, l.value)
}

func (p *textParser) closeColumn() error {
	if p.col == nil {
		return nil
	}
	taxon := p.taxa[len(p.taxa)-1]
	if len(p.col) != p.rows {
		return errors.Wrapf(ErrTruncated, "%d values for %s, expected %d", len(p.col), taxon, p.rows)
	}
	if _, err := core.Normalize(p.col); err != nil {
		return errors.Wrapf(err, "taxon %s", taxon)
	}
	p.data = append(p.data, p.col...)
	p.col = nil
	return nil
}

func (p *textParser) finish() (*core.SensingMatrix, error) {
	if p.nLines < 4 {
		return nil, ErrTruncated
	}
	if err := p.closeColumn(); err != nil {
		return nil, err
	}
	if len(p.taxa) != p.numTaxa {
		return nil, errors.Wrapf(ErrTruncated, "%d taxa found, expected %d", len(p.taxa), p.numTaxa)
	}
	return core.NewSensingMatrix(p.k, p.taxa, p.data)
}
