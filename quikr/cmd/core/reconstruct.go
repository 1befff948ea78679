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
	stderrors "errors"
	"math"

	"github.com/EESI/quikr/quikr/cmd/nnls"
	"gonum.org/v1/gonum/mat"
)

// DefaultLambda is the default weight of count fidelity.
const DefaultLambda = 10000

// Solver solves min ||Ax - b|| subject to x >= 0.
type Solver interface {
	Solve(a mat.Matrix, b mat.Vector) (*nnls.Result, error)
}

// Estimate is the reconstruction of one sample.
type Estimate struct {
	// Abundance is parallel to the taxa of the matrix, non-negative and
	// summing to 1.
	Abundance  []float64
	Residual   float64
	Iterations int
}

// Reconstructor estimates abundances against one sensing matrix.
//
// The system solved is
//
//	[ 1 1 ... 1 ]       [ 0   ]
//	[  lambda*S ] x  ~  [ lambda*p ]
//
// where p is the normalized count vector. The first row ties the solution
// to the simplex, and a larger lambda weights count fidelity more heavily.
//
// The augmented matrix is built once. A Reconstructor is safe for
// concurrent use if its Solver is.
type Reconstructor struct {
	matrix *SensingMatrix
	lambda float64
	solver Solver
	a      *mat.Dense
}

// NewReconstructor checks lambda and builds the augmented matrix.
// A nil solver means nnls.LawsonHanson with default settings.
func NewReconstructor(m *SensingMatrix, lambda float64, solver Solver) (*Reconstructor, error) {
	const op = "reconstruct"
	if m == nil {
		return nil, Errorf(MissingResource, op, "no sensing matrix given")
	}
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, Errorf(InvalidArgument, op, "lambda should be a positive finite number, given: %v", lambda)
	}
	if solver == nil {
		solver = nnls.LawsonHanson{}
	}

	rows, cols := m.Rows(), m.Cols()
	if err := CheckMatrixSize(op, rows+1, cols); err != nil {
		return nil, err
	}
	a := mat.NewDense(rows+1, cols, nil)
	for t := 0; t < cols; t++ {
		a.Set(0, t, 1)
		for i, v := range m.Column(t) {
			a.Set(i+1, t, lambda*v)
		}
	}
	return &Reconstructor{matrix: m, lambda: lambda, solver: solver, a: a}, nil
}

// Matrix returns the sensing matrix.
func (r *Reconstructor) Matrix() *SensingMatrix { return r.matrix }

// Lambda returns the regularization weight.
func (r *Reconstructor) Lambda() float64 { return r.lambda }

// Reconstruct estimates the abundances of a k-mer count vector, which is
// not modified.
func (r *Reconstructor) Reconstruct(counts []float64) (*Estimate, error) {
	const op = "reconstruct"
	rows := r.matrix.Rows()
	if len(counts) != rows {
		return nil, Errorf(InvalidArgument, op, "count vector length %d does not match 4^%d (%d)", len(counts), r.matrix.K, rows)
	}

	b := make([]float64, rows+1)
	copy(b[1:], counts)
	if _, err := Normalize(b[1:]); err != nil {
		return nil, err
	}
	for i := 1; i <= rows; i++ {
		b[i] *= r.lambda
	}

	res, err := r.solver.Solve(r.a, mat.NewVecDense(rows+1, b))
	if err != nil {
		if stderrors.Is(err, nnls.ErrNotConverged) {
			return nil, E(SolverNonConvergence, op, err)
		}
		return nil, E(KindOf(err), op, err)
	}
	if len(res.X) != r.matrix.Cols() {
		return nil, Errorf(InvalidArgument, op, "solver returned %d values for %d taxa", len(res.X), r.matrix.Cols())
	}

	x := make([]float64, len(res.X))
	var sum float64
	for i, v := range res.X {
		if v > 0 {
			x[i] = v
			sum += v
		}
	}
	if sum == 0 {
		return nil, Errorf(EmptySample, op, "solution is all zero")
	}
	for i := range x {
		x[i] /= sum
	}
	return &Estimate{Abundance: x, Residual: res.Residual, Iterations: res.Iterations}, nil
}
