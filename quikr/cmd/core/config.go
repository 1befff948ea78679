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
	"runtime"
)

// DefaultK is the default k-mer size.
const DefaultK = 6

// Config holds the parameters of a run. It is passed by value and never
// modified by the package.
type Config struct {
	K              int     `yaml:"kmer"`
	Lambda         float64 `yaml:"lambda"`
	MatrixFile     string  `yaml:"matrix"`
	ReferenceFasta string  `yaml:"reference"`
	InputDir       string  `yaml:"input-dir"`
	OutDir         string  `yaml:"out-dir"`
	Threads        int     `yaml:"threads"`
	AllOrNothing   bool    `yaml:"all-or-nothing"`
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		K:       DefaultK,
		Lambda:  DefaultLambda,
		Threads: runtime.NumCPU(),
	}
}

// Validate checks numeric parameters.
func (c Config) Validate() error {
	if _, err := NewVocabulary(c.K); err != nil {
		return err
	}
	if c.Lambda <= 0 || math.IsNaN(c.Lambda) || math.IsInf(c.Lambda, 0) {
		return Errorf(InvalidArgument, "config", "lambda should be a positive finite number, given: %v", c.Lambda)
	}
	if c.Threads < 0 {
		return Errorf(InvalidArgument, "config", "threads should not be negative, given: %d", c.Threads)
	}
	return nil
}
