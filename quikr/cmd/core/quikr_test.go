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
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/EESI/quikr/quikr/cmd/nnls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// two taxa over k=1: pure "a" and pure "c"
func unitMatrix(t *testing.T) *SensingMatrix {
	m, err := NewSensingMatrix(1, []string{"taxon1", "taxon2"}, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	require.NoError(t, err)
	return m
}

func randomSeq(rng *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = Alphabet[rng.Intn(4)]
	}
	return s
}

func trainRandom(t *testing.T, k, ntaxa int, seed int64) *SensingMatrix {
	rng := rand.New(rand.NewSource(seed))
	refs := make(References, ntaxa)
	for i := range refs {
		refs[i] = Reference{
			ID:   fmt.Sprintf("ref%d", i),
			Seqs: [][]byte{randomSeq(rng, 200), randomSeq(rng, 150)},
		}
	}
	m, err := Trainer{K: k, Threads: 3, Counter: VocabularyCounter{}}.Train(context.Background(), refs)
	require.NoError(t, err)
	return m
}

func TestNewSensingMatrix_Invalid(t *testing.T) {
	_, err := NewSensingMatrix(1, []string{"x"}, []float64{0.5, 0.5, 0.5, 0})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSensingMatrix(1, []string{"x"}, []float64{1, 0})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSensingMatrix(1, nil, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNormalize(t *testing.T) {
	v := []float64{1, 3, 0, 4}
	sum, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, 8.0, sum)
	assert.Equal(t, []float64{0.125, 0.375, 0, 0.5}, v)

	_, err = Normalize([]float64{0, 0})
	require.ErrorIs(t, err, ErrEmptySample)

	_, err = Normalize([]float64{1, -1})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTrain_ColumnsSumToOne(t *testing.T) {
	m := trainRandom(t, 3, 10, 1)
	require.Equal(t, 64, m.Rows())
	require.Equal(t, 10, m.Cols())
	for i := 0; i < m.Cols(); i++ {
		assert.Equal(t, fmt.Sprintf("ref%d", i), m.Taxa[i])
		var sum float64
		for _, v := range m.Column(i) {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-9)
	}
	require.NoError(t, m.Check())
}

func TestTrain_Profiles(t *testing.T) {
	refs := References{
		{ID: "A", Seqs: [][]byte{[]byte("aaaa")}},
		{ID: "C", Seqs: [][]byte{[]byte("cc"), []byte("CC")}},
	}
	m, err := Trainer{K: 1, Counter: VocabularyCounter{}}.Train(context.Background(), refs)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0}, m.Column(0))
	assert.Equal(t, []float64{0, 1, 0, 0}, m.Column(1))
}

func TestTrain_EmptyTaxon(t *testing.T) {
	refs := References{
		{ID: "good", Seqs: [][]byte{[]byte("acgtacgt")}},
		{ID: "gappy", Seqs: [][]byte{[]byte("nnnnnn")}},
	}
	_, err := Trainer{K: 2, Counter: VocabularyCounter{}}.Train(context.Background(), refs)
	require.ErrorIs(t, err, ErrEmptySample)
	assert.Contains(t, err.Error(), "gappy")
}

func TestTrain_MissingCounter(t *testing.T) {
	refs := References{{ID: "x", Seqs: [][]byte{[]byte("acgt")}}}
	_, err := Trainer{K: 2}.Train(context.Background(), refs)
	require.ErrorIs(t, err, ErrMissingResource)

	_, err = Trainer{K: 0, Counter: VocabularyCounter{}}.Train(context.Background(), refs)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

type failingSequenceCounter struct {
	err   error
	calls *int
}

func (c failingSequenceCounter) CountSequences(voc Vocabulary, seqs [][]byte) ([]float64, error) {
	if c.calls != nil {
		*c.calls++
	}
	return nil, c.err
}

func TestTrain_CounterErrorKind(t *testing.T) {
	refs := References{{ID: "x", Seqs: [][]byte{[]byte("acgt")}}}

	for _, kind := range []Kind{InvalidArgument, MissingResource, EmptySample} {
		counter := failingSequenceCounter{err: Errorf(kind, "count", "failed")}
		_, err := Trainer{K: 2, Counter: counter}.Train(context.Background(), refs)
		require.Error(t, err)
		assert.Equal(t, kind, KindOf(err), kind.String())
	}

	counter := failingSequenceCounter{err: errors.New("disk full")}
	_, err := Trainer{K: 2, Counter: counter}.Train(context.Background(), refs)
	require.ErrorIs(t, err, ErrIOFailure)
}

func TestTrain_MatrixTooLarge(t *testing.T) {
	refs := References{
		{ID: "x", Seqs: [][]byte{[]byte("acgt")}},
		{ID: "y", Seqs: [][]byte{[]byte("tgca")}},
	}
	var calls int
	counter := failingSequenceCounter{calls: &calls}
	_, err := Trainer{K: 20, Counter: counter}.Train(context.Background(), refs)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, calls)
}

func TestCheckMatrixSize(t *testing.T) {
	require.NoError(t, CheckMatrixSize("x", 1<<24, 64))
	require.ErrorIs(t, CheckMatrixSize("x", 1<<40, 1), ErrInvalidArgument)
	require.ErrorIs(t, CheckMatrixSize("x", 1<<62, 1<<20), ErrInvalidArgument)

	limit := MaxMatrixBytes
	defer func() { MaxMatrixBytes = limit }()
	MaxMatrixBytes = 8 * 8
	_, err := NewReconstructor(unitMatrix(t), 1, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReconstruct_EndToEnd(t *testing.T) {
	rec, err := NewReconstructor(unitMatrix(t), DefaultLambda, nil)
	require.NoError(t, err)

	est, err := rec.Reconstruct([]float64{10, 0, 0, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, est.Abundance, 1e-12)
}

func TestReconstruct_Simplex(t *testing.T) {
	m := trainRandom(t, 2, 6, 2)
	rec, err := NewReconstructor(m, DefaultLambda, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 20; round++ {
		counts := make([]float64, m.Rows())
		for i := range counts {
			counts[i] = float64(rng.Intn(100))
		}
		counts[rng.Intn(len(counts))]++

		est, err := rec.Reconstruct(counts)
		require.NoError(t, err)
		var sum float64
		for _, v := range est.Abundance {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, 1, sum, 1e-9)
	}
}

func TestReconstruct_Deterministic(t *testing.T) {
	m := trainRandom(t, 2, 5, 4)
	rec, err := NewReconstructor(m, DefaultLambda, nil)
	require.NoError(t, err)

	counts := make([]float64, m.Rows())
	for i := range counts {
		counts[i] = float64(i%5 + 1)
	}
	first, err := rec.Reconstruct(counts)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := rec.Reconstruct(counts)
		require.NoError(t, err)
		require.Equal(t, first.Abundance, again.Abundance)
	}
}

func TestReconstruct_LambdaReducesResidual(t *testing.T) {
	m, err := NewSensingMatrix(1, []string{"t1", "t2", "t3"}, []float64{
		0.5, 0.5, 0, 0,
		0, 0, 0.5, 0.5,
		0.1, 0.2, 0.3, 0.4,
	})
	require.NoError(t, err)

	// 0.3 * t1 + 0.7 * t2
	counts := []float64{15, 15, 35, 35}
	p := []float64{0.15, 0.15, 0.35, 0.35}

	residual := func(lambda float64) float64 {
		rec, err := NewReconstructor(m, lambda, nil)
		require.NoError(t, err)
		est, err := rec.Reconstruct(counts)
		require.NoError(t, err)
		var s float64
		for i := 0; i < m.Rows(); i++ {
			var v float64
			for j, x := range est.Abundance {
				v += m.At(i, j) * x
			}
			s += (v - p[i]) * (v - p[i])
		}
		return math.Sqrt(s)
	}

	low, high := residual(0.01), residual(DefaultLambda)
	assert.Less(t, high, low)
	assert.Less(t, high, 1e-3)
}

func TestReconstruct_Errors(t *testing.T) {
	m := unitMatrix(t)
	for _, lambda := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewReconstructor(m, lambda, nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	_, err := NewReconstructor(nil, 1, nil)
	require.ErrorIs(t, err, ErrMissingResource)

	rec, err := NewReconstructor(m, 1, nil)
	require.NoError(t, err)
	_, err = rec.Reconstruct([]float64{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = rec.Reconstruct([]float64{0, 0, 0, 0})
	require.ErrorIs(t, err, ErrEmptySample)

	// only "t" k-mers, which no taxon explains
	_, err = rec.Reconstruct([]float64{0, 0, 0, 5})
	require.ErrorIs(t, err, ErrEmptySample)
}

type stubSolver struct{ err error }

func (s stubSolver) Solve(a mat.Matrix, b mat.Vector) (*nnls.Result, error) {
	return nil, s.err
}

func TestReconstruct_NonConvergence(t *testing.T) {
	rec, err := NewReconstructor(unitMatrix(t), 1, stubSolver{err: nnls.ErrNotConverged})
	require.NoError(t, err)
	_, err = rec.Reconstruct([]float64{1, 1, 0, 0})
	require.ErrorIs(t, err, ErrSolverNonConvergence)
	require.True(t, errors.Is(err, nnls.ErrNotConverged))
}

func TestAssembleTable(t *testing.T) {
	tbl, err := AssembleTable(
		[]string{"taxon1", "taxon2", "taxon3"},
		[]string{"A", "B"},
		[][]float64{{0.5, 0.5, 0}, {1, 0, 0}},
		[]int64{100, 50},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Samples)
	assert.Equal(t, []string{"taxon1", "taxon2"}, tbl.Taxa)
	assert.Equal(t, [][]int64{{50, 50}, {50, 0}}, tbl.Counts)
}

func TestAssembleTable_Rounding(t *testing.T) {
	tbl, err := AssembleTable([]string{"x", "y"}, []string{"s"}, [][]float64{{0.25, 0.75}}, []int64{10})
	require.NoError(t, err)
	// 2.5 and 7.5 round half away from zero
	assert.Equal(t, [][]int64{{3}, {8}}, tbl.Counts)
}

func TestAssembleTable_SkipFailed(t *testing.T) {
	tbl, err := AssembleTable([]string{"x", "y"}, []string{"s1", "s2"}, [][]float64{nil, {0, 1}}, []int64{0, 7})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, tbl.Samples)
	assert.Equal(t, []string{"y"}, tbl.Taxa)
	assert.Equal(t, [][]int64{{7}}, tbl.Counts)
}

func TestAbundanceTable_SortByTotal(t *testing.T) {
	tbl := &AbundanceTable{
		Taxa:    []string{"b", "a", "c"},
		Samples: []string{"s1", "s2"},
		Counts:  [][]int64{{1, 1}, {1, 1}, {5, 0}},
	}
	tbl.SortByTotal()
	assert.Equal(t, []string{"c", "a", "b"}, tbl.Taxa)
	assert.Equal(t, [][]int64{{5, 0}, {1, 1}, {1, 1}}, tbl.Counts)

	tbl.Rename(map[string]string{"c": "Escherichia"})
	assert.Equal(t, "Escherichia", tbl.Taxa[0])
}

type stubOutput struct {
	counts []float64
	reads  int64
	err    error
}

type stubCounter map[string]stubOutput

func (c stubCounter) Count(ctx context.Context, file string, k int) ([]float64, int64, error) {
	o, ok := c[file]
	if !ok {
		return nil, 0, Errorf(MissingResource, "count", "file not found: %s", file)
	}
	return o.counts, o.reads, o.err
}

func batchConfig() Config {
	c := DefaultConfig()
	c.K = 1
	c.Threads = 4
	return c
}

func TestBatch_OrderAndCounts(t *testing.T) {
	counter := stubCounter{}
	var samples []Sample
	for i := 0; i < 20; i++ {
		file := fmt.Sprintf("s%02d.fa", i)
		counts := []float64{float64(i + 1), float64(20 - i), 0, 0}
		counter[file] = stubOutput{counts: counts, reads: 21}
		samples = append(samples, Sample{ID: fmt.Sprintf("s%02d", i), File: file})
	}

	var done int
	ch := make(chan struct{}, len(samples))
	res, err := Batch{
		Config:  batchConfig(),
		Matrix:  unitMatrix(t),
		Counter: counter,
		OnDone:  func(SampleStatus) { ch <- struct{}{} },
	}.Run(context.Background(), samples)
	require.NoError(t, err)
	close(ch)
	for range ch {
		done++
	}
	assert.Equal(t, len(samples), done)
	require.False(t, res.Failed())

	require.Equal(t, []string{"taxon1", "taxon2"}, res.Table.Taxa)
	for i, s := range samples {
		assert.Equal(t, s.ID, res.Table.Samples[i])
		assert.Equal(t, int64(i+1), res.Table.Counts[0][i])
		assert.Equal(t, int64(20-i), res.Table.Counts[1][i])
	}
}

func TestBatch_BestEffort(t *testing.T) {
	counter := stubCounter{
		"a.fa":     {counts: []float64{5, 5, 0, 0}, reads: 100},
		"empty.fa": {counts: []float64{0, 0, 0, 0}, reads: 0},
		"b.fa":     {counts: []float64{1, 0, 0, 0}, reads: 50},
	}
	samples := []Sample{
		{ID: "A", File: "a.fa"},
		{ID: "missing", File: "missing.fa"},
		{ID: "empty", File: "empty.fa"},
		{ID: "B", File: "b.fa"},
	}
	res, err := Batch{Config: batchConfig(), Matrix: unitMatrix(t), Counter: counter}.Run(context.Background(), samples)
	require.NoError(t, err)
	require.True(t, res.Failed())
	assert.Equal(t, 2, res.NumFailed())

	require.ErrorIs(t, res.Statuses[1].Err, ErrMissingResource)
	require.ErrorIs(t, res.Statuses[2].Err, ErrEmptySample)
	assert.Nil(t, res.Estimates[1])

	assert.Equal(t, []string{"A", "B"}, res.Table.Samples)
	assert.Equal(t, []string{"taxon1", "taxon2"}, res.Table.Taxa)
	assert.Equal(t, [][]int64{{50, 50}, {50, 0}}, res.Table.Counts)
}

func TestBatch_AllOrNothing(t *testing.T) {
	counter := stubCounter{"a.fa": {counts: []float64{5, 5, 0, 0}, reads: 10}}
	cfg := batchConfig()
	cfg.AllOrNothing = true
	res, err := Batch{Config: cfg, Matrix: unitMatrix(t), Counter: counter}.Run(context.Background(),
		[]Sample{{ID: "A", File: "a.fa"}, {ID: "B", File: "b.fa"}})
	require.ErrorIs(t, err, ErrMissingResource)
	require.NotNil(t, res)
	assert.Equal(t, []string{"A"}, res.Table.Samples)
}

func TestBatch_CounterFailure(t *testing.T) {
	counter := stubCounter{"a.fa": {err: errors.New("broken pipe")}}
	res, err := Batch{Config: batchConfig(), Matrix: unitMatrix(t), Counter: counter}.Run(context.Background(),
		[]Sample{{ID: "A", File: "a.fa"}})
	require.NoError(t, err)
	require.ErrorIs(t, res.Statuses[0].Err, ErrIOFailure)
	assert.Empty(t, res.Table.Samples)
}

func TestBatch_Canceled(t *testing.T) {
	counter := stubCounter{"a.fa": {counts: []float64{5, 5, 0, 0}, reads: 10}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Batch{Config: batchConfig(), Matrix: unitMatrix(t), Counter: counter}.Run(ctx,
		[]Sample{{ID: "A", File: "a.fa"}, {ID: "B", File: "a.fa"}})
	require.NoError(t, err)
	for _, s := range res.Statuses {
		require.ErrorIs(t, s.Err, context.Canceled)
	}
}

func TestBatch_Invalid(t *testing.T) {
	cfg := batchConfig()
	_, err := Batch{Config: cfg, Counter: stubCounter{}}.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrMissingResource)

	_, err = Batch{Config: cfg, Matrix: unitMatrix(t)}.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrMissingResource)

	cfg.K = 2
	_, err = Batch{Config: cfg, Matrix: unitMatrix(t), Counter: stubCounter{}}.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	cfg = batchConfig()
	cfg.Lambda = -1
	_, err = Batch{Config: cfg, Matrix: unitMatrix(t), Counter: stubCounter{}}.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
