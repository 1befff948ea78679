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

package main

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/shenwei356/xopen"
)

func main() {
	if len(os.Args) < 4 || len(os.Args) > 5 {
		checkError(fmt.Errorf(`usage: %s <sensing matrix> <count vector file> <lambdas> [out file]

lambdas: comma-separated values, e.g., 1,10,100,1000,10000

output columns:
    lambda residual iterations taxa top_taxon top_abundance

`, os.Args[0]))
	}

	m, _, err := smfile.Load(os.Args[1])
	checkError(err)

	counts, err := counter.ReadVector(os.Args[2], m.K)
	checkError(err)

	var lambdas []float64
	for _, s := range strings.Split(os.Args[3], ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		checkError(err)
		lambdas = append(lambdas, v)
	}

	var outFile string
	if len(os.Args) > 4 {
		outFile = os.Args[4]
	} else {
		outFile = "-"
	}

	// -----------------------------------------------

	results := make([]Result, len(lambdas))
	tokens := make(chan int, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, lambda := range lambdas {
		tokens <- 1
		wg.Add(1)
		go func(i int, lambda float64) {
			defer func() {
				wg.Done()
				<-tokens
			}()
			results[i] = sweep(m, counts, lambda)
		}(i, lambda)
	}
	wg.Wait()

	outfh, err := xopen.Wopen(outFile)
	checkError(err)
	defer outfh.Close()

	outfh.WriteString("lambda\tresidual\titerations\ttaxa\ttop_taxon\ttop_abundance\n")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "lambda %v: %s\n", r.Lambda, r.Err)
			continue
		}
		outfh.WriteString(r.String() + "\n")
	}
}

func sweep(m *core.SensingMatrix, counts []float64, lambda float64) Result {
	r := Result{Lambda: lambda}
	rec, err := core.NewReconstructor(m, lambda, nil)
	if err != nil {
		r.Err = err
		return r
	}
	est, err := rec.Reconstruct(counts)
	if err != nil {
		r.Err = err
		return r
	}
	r.Residual = est.Residual
	r.Iterations = est.Iterations

	idx := make([]int, 0, 8)
	for t, v := range est.Abundance {
		if v > 0 {
			idx = append(idx, t)
		}
	}
	r.Taxa = len(idx)
	sort.Slice(idx, func(i, j int) bool {
		return est.Abundance[idx[i]] > est.Abundance[idx[j]]
	})
	if len(idx) > 0 {
		r.TopTaxon = m.Taxa[idx[0]]
		r.TopAbundance = est.Abundance[idx[0]]
	}
	return r
}

type Result struct {
	Lambda       float64
	Residual     float64
	Iterations   int
	Taxa         int
	TopTaxon     string
	TopAbundance float64
	Err          error
}

func (r Result) String() string {
	return fmt.Sprintf("%v\t%.6g\t%d\t%d\t%s\t%.6f",
		r.Lambda, r.Residual, r.Iterations, r.Taxa, r.TopTaxon, r.TopAbundance)
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
