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

// Package nnls solves non-negative least squares problems
//
//	minimize ||Ax - b||  subject to  x >= 0
//
// with the active-set method of Lawson and Hanson.
package nnls

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged means the iteration bound was reached.
var ErrNotConverged = errors.New("nnls: iteration limit reached")

// ErrDimMismatch means len(b) does not equal the number of rows of A.
var ErrDimMismatch = errors.New("nnls: dimension mismatch")

// Result is the solution of a NNLS problem.
type Result struct {
	X          []float64
	Residual   float64 // ||Ax - b||
	Iterations int
}

// LawsonHanson is the classic active-set NNLS solver. The zero value is
// ready to use.
//
// Among columns with equal maximal gradient, the one with the smallest
// index enters the passive set first, so results are reproducible.
type LawsonHanson struct {
	// MaxIter bounds the number of outer iterations. 0 means 3 times the
	// number of columns.
	MaxIter int

	// Tol is the optimality tolerance on the gradient. 0 means
	// 10 * eps * ||A||_1 * max(rows, cols).
	Tol float64
}

// Solve returns x >= 0 minimizing ||Ax - b||.
func (s LawsonHanson) Solve(a mat.Matrix, b mat.Vector) (*Result, error) {
	m, n := a.Dims()
	if b.Len() != m {
		return nil, errors.Wrapf(ErrDimMismatch, "A is %dx%d, b has length %d", m, n, b.Len())
	}

	maxIter := s.MaxIter
	if maxIter <= 0 {
		maxIter = 3 * n
	}
	tol := s.Tol
	if tol <= 0 {
		tol = 10 * eps * mat.Norm(a, 1) * float64(max(m, n))
	}

	x := make([]float64, n)
	z := make([]float64, n)
	w := mat.NewVecDense(n, nil)
	r := mat.NewVecDense(m, nil)
	passive := make([]bool, n)
	// columns that gave a non-finite solve, until x changes again
	blocked := make([]bool, n)

	gradient := func() {
		r.MulVec(a, mat.NewVecDense(n, x))
		r.SubVec(b, r)
		w.MulVec(a.T(), r)
	}
	gradient()

	var iter int
	for {
		// next column to free: largest gradient, smallest index on ties
		j := -1
		wmax := tol
		for i := 0; i < n; i++ {
			if passive[i] || blocked[i] {
				continue
			}
			if v := w.AtVec(i); v > wmax {
				j, wmax = i, v
			}
		}
		if j < 0 {
			break
		}

		if iter >= maxIter {
			return &Result{X: x, Residual: mat.Norm(r, 2), Iterations: iter}, ErrNotConverged
		}
		iter++

		passive[j] = true
		ok, err := solvePassive(a, b, passive, z)
		if err != nil {
			return nil, err
		}
		if !ok {
			passive[j] = false
			blocked[j] = true
			continue
		}

		// inner loop: step back until the passive solution is feasible
		feasible := true
		for {
			alpha := math.Inf(1)
			for i := 0; i < n; i++ {
				if passive[i] && z[i] <= 0 {
					if t := x[i] / (x[i] - z[i]); t < alpha {
						alpha = t
					}
				}
			}
			if math.IsInf(alpha, 1) {
				break
			}
			for i := 0; i < n; i++ {
				x[i] += alpha * (z[i] - x[i])
				if passive[i] && x[i] <= tol {
					passive[i] = false
					x[i] = 0
				}
			}
			if ok, err = solvePassive(a, b, passive, z); err != nil {
				return nil, err
			}
			if !ok {
				feasible = false
				break
			}
		}
		if feasible {
			copy(x, z)
		}
		for i := range blocked {
			blocked[i] = false
		}
		gradient()
	}

	return &Result{X: x, Residual: mat.Norm(r, 2), Iterations: iter}, nil
}

// solvePassive solves the unconstrained least squares problem on the passive
// columns and scatters the solution into z, zero elsewhere. It returns false
// if the solution is not finite.
func solvePassive(a mat.Matrix, b mat.Vector, passive []bool, z []float64) (bool, error) {
	m, _ := a.Dims()
	cols := make([]int, 0, len(passive))
	for i, p := range passive {
		z[i] = 0
		if p {
			cols = append(cols, i)
		}
	}
	if len(cols) == 0 {
		return true, nil
	}

	ap := mat.NewDense(m, len(cols), nil)
	for c, i := range cols {
		for row := 0; row < m; row++ {
			ap.Set(row, c, a.At(row, i))
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(ap, b); err != nil {
		// ill-conditioned systems may still carry a usable solution
		if _, ok := err.(mat.Condition); !ok {
			return false, errors.Wrap(err, "nnls: solving passive set")
		}
	}
	for c, i := range cols {
		v := sol.AtVec(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			for _, k := range cols {
				z[k] = 0
			}
			return false, nil
		}
		z[i] = v
	}
	return true, nil
}

var eps = math.Nextafter(1, 2) - 1
