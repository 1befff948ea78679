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

package nnls

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolve_Identity(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	b := mat.NewVecDense(3, []float64{1, -2, 3})

	res, err := LawsonHanson{}.Solve(a, b)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1, 0, 3}, res.X, 1e-12)
	require.InDelta(t, 2, res.Residual, 1e-12)
}

func TestSolve_Exact(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	b := mat.NewVecDense(3, []float64{1, 1, 2})

	res, err := LawsonHanson{}.Solve(a, b)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1, 1}, res.X, 1e-10)
	require.InDelta(t, 0, res.Residual, 1e-10)
	require.Equal(t, 2, res.Iterations)
}

func TestSolve_TieBreak(t *testing.T) {
	// two identical columns: the first one wins every time
	a := mat.NewDense(2, 2, []float64{
		1, 1,
		1, 1,
	})
	b := mat.NewVecDense(2, []float64{1, 1})

	for i := 0; i < 10; i++ {
		res, err := LawsonHanson{}.Solve(a, b)
		require.NoError(t, err)
		require.InDeltaSlice(t, []float64{1, 0}, res.X, 1e-12)
	}
}

func TestSolve_KKT(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m, n := 30, 12
	for round := 0; round < 20; round++ {
		data := make([]float64, m*n)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		a := mat.NewDense(m, n, data)
		bs := make([]float64, m)
		for i := range bs {
			bs[i] = rng.NormFloat64()
		}
		b := mat.NewVecDense(m, bs)

		res, err := LawsonHanson{}.Solve(a, b)
		require.NoError(t, err)

		// w = A^T (b - Ax): zero on the support, non-positive elsewhere
		var r, w mat.VecDense
		r.MulVec(a, mat.NewVecDense(n, res.X))
		r.SubVec(b, &r)
		w.MulVec(a.T(), &r)
		require.InDelta(t, mat.Norm(&r, 2), res.Residual, 1e-9)
		for i, x := range res.X {
			require.GreaterOrEqual(t, x, 0.0)
			if x > 0 {
				require.InDelta(t, 0, w.AtVec(i), 1e-8)
			} else {
				require.LessOrEqual(t, w.AtVec(i), 1e-8)
			}
		}
	}
}

func TestSolve_NotConverged(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	b := mat.NewVecDense(2, []float64{1, 1})

	_, err := LawsonHanson{MaxIter: 1}.Solve(a, b)
	require.ErrorIs(t, err, ErrNotConverged)
}

func TestSolve_DimMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewVecDense(3, nil)
	_, err := LawsonHanson{}.Solve(a, b)
	require.ErrorIs(t, err, ErrDimMismatch)
}
