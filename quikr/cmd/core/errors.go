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
	"fmt"
)

// Kind is the category of a failure.
type Kind uint8

const (
	// Other is an error not raised by this package.
	Other Kind = iota
	// InvalidArgument means a bad k, a bad lambda, or vectors of mismatched lengths.
	InvalidArgument
	// MissingResource means an absent input file, trained matrix, or counting collaborator.
	MissingResource
	// EmptySample means zero total k-mer count or zero reads.
	EmptySample
	// SolverNonConvergence means the NNLS solve failed within its iteration bound.
	SolverNonConvergence
	// IOFailure means unreadable or unwritable paths.
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case MissingResource:
		return "missing resource"
	case EmptySample:
		return "empty sample"
	case SolverNonConvergence:
		return "solver non-convergence"
	case IOFailure:
		return "I/O failure"
	}
	return "other error"
}

// Sentinels of each Kind, for errors.Is.
var (
	ErrInvalidArgument      = &Error{Kind: InvalidArgument}
	ErrMissingResource      = &Error{Kind: MissingResource}
	ErrEmptySample          = &Error{Kind: EmptySample}
	ErrSolverNonConvergence = &Error{Kind: SolverNonConvergence}
	ErrIOFailure            = &Error{Kind: IOFailure}
)

// Error is an error with a Kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Errorf creates an *Error of the given kind.
func Errorf(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// E wraps err with a kind. A nil err gives nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return "quikr: " + e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("quikr: %s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("quikr: %s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("quikr: %s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
// Only the sentinels, which carry neither Op nor Err, match by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// KindOf returns the Kind of the outermost *Error in the chain of err,
// or Other if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Other
}
