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
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// ColumnSumTolerance is the relative tolerance of column sums of a
// sensing matrix.
const ColumnSumTolerance = 1e-9

// SensingMatrix holds one k-mer frequency distribution per reference taxon.
// Rows are indexed by Vocabulary(K), columns by Taxa.
//
// A SensingMatrix is never modified after training or loading, so it can be
// shared by concurrent reconstructions.
type SensingMatrix struct {
	K    int
	Taxa []string

	// Data is column-major: Data[t*Rows()+i] is the frequency of k-mer i
	// in taxon t.
	Data []float64
}

// NewSensingMatrix checks and wraps column-major data.
func NewSensingMatrix(k int, taxa []string, data []float64) (*SensingMatrix, error) {
	voc, err := NewVocabulary(k)
	if err != nil {
		return nil, err
	}
	if len(taxa) == 0 {
		return nil, Errorf(InvalidArgument, "sensing matrix", "no taxa given")
	}
	if len(data) != voc.Size()*len(taxa) {
		return nil, Errorf(InvalidArgument, "sensing matrix",
			"data size (%d) does not match %d k-mers x %d taxa", len(data), voc.Size(), len(taxa))
	}
	m := &SensingMatrix{K: k, Taxa: taxa, Data: data}
	if err = m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// MaxMatrixBytes bounds the float64 matrices and vectors allocated for
// a k-mer size, so an oversized k fails early instead of running out of
// memory.
var MaxMatrixBytes int64 = 16 << 30

// CheckMatrixSize returns an InvalidArgument error if a rows x cols matrix
// of float64 exceeds MaxMatrixBytes.
func CheckMatrixSize(op string, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if int64(cols) > MaxMatrixBytes/8/int64(rows) {
		return Errorf(InvalidArgument, op,
			"%d k-mers x %d columns exceed the memory limit of %s, please use a smaller k-mer size",
			rows, cols, humanize.IBytes(uint64(MaxMatrixBytes)))
	}
	return nil
}

// Rows returns the number of k-mers, 4^K.
func (m *SensingMatrix) Rows() int { return 1 << (uint(m.K) << 1) }

// Cols returns the number of taxa.
func (m *SensingMatrix) Cols() int { return len(m.Taxa) }

// Column returns the distribution of taxon t. The slice shares memory with
// the matrix and must not be modified.
func (m *SensingMatrix) Column(t int) []float64 {
	rows := m.Rows()
	return m.Data[t*rows : (t+1)*rows]
}

// At returns the frequency of k-mer i in taxon t.
func (m *SensingMatrix) At(i, t int) float64 { return m.Data[t*m.Rows()+i] }

// Vocabulary returns the k-mer vocabulary of rows.
func (m *SensingMatrix) Vocabulary() Vocabulary { return Vocabulary{k: m.K} }

func (m *SensingMatrix) String() string {
	return fmt.Sprintf("quikr sensing matrix: k: %d, #k-mers: %d, #taxa: %d", m.K, m.Rows(), m.Cols())
}

// Check verifies that every column is a probability distribution.
func (m *SensingMatrix) Check() error {
	for t := range m.Taxa {
		if err := checkDistribution(m.Column(t)); err != nil {
			return Errorf(InvalidArgument, "sensing matrix", "column %d (%s): %s", t, m.Taxa[t], err)
		}
	}
	return nil
}

func checkDistribution(col []float64) error {
	var sum float64
	for i, v := range col {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid value at row %d: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > ColumnSumTolerance*float64(len(col)) {
		return fmt.Errorf("column sums to %v instead of 1", sum)
	}
	return nil
}

// Normalize divides counts by their sum in place and returns the sum.
// Zero, NaN or negative input is an error, never a vector of NaN.
func Normalize(counts []float64) (float64, error) {
	var sum float64
	for i, v := range counts {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, Errorf(InvalidArgument, "normalize", "invalid count at position %d: %v", i, v)
		}
		sum += v
	}
	if sum == 0 {
		return 0, Errorf(EmptySample, "normalize", "total k-mer count is zero")
	}
	for i := range counts {
		counts[i] /= sum
	}
	return sum, nil
}
