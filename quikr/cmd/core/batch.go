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
	"runtime"
	"sync"
	"time"
)

// Counter returns the k-mer count vector of a sequence file, in
// Vocabulary(k) order, and the number of reads in it.
type Counter interface {
	Count(ctx context.Context, file string, k int) (counts []float64, reads int64, err error)
}

// Sample is a named sequence file.
type Sample struct {
	ID   string
	File string
}

// SampleStatus is the outcome of one sample.
type SampleStatus struct {
	Sample  Sample
	Reads   int64
	Err     error
	Elapsed time.Duration
}

// BatchResult holds the table and the per-sample outcomes, in input order.
type BatchResult struct {
	Table     *AbundanceTable
	Statuses  []SampleStatus
	Estimates []*Estimate // nil for failed samples
}

// Failed reports whether any sample failed.
func (r *BatchResult) Failed() bool {
	for _, s := range r.Statuses {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// NumFailed returns the number of failed samples.
func (r *BatchResult) NumFailed() (n int) {
	for _, s := range r.Statuses {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Batch reconstructs many samples against one sensing matrix.
//
// Failed samples are left out of the table and reported in the statuses.
// With Config.AllOrNothing, Run also returns an error if any sample failed.
type Batch struct {
	Config  Config
	Matrix  *SensingMatrix
	Counter Counter
	Solver  Solver

	// OnDone is called once per finished sample, from the worker that
	// processed it.
	OnDone func(SampleStatus)
}

// Run processes samples with Config.Threads workers. Canceling ctx stops
// dispatching; samples not started report the context error.
func (b Batch) Run(ctx context.Context, samples []Sample) (*BatchResult, error) {
	const op = "batch"
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}
	if b.Matrix == nil {
		return nil, Errorf(MissingResource, op, "no sensing matrix given")
	}
	if b.Counter == nil {
		return nil, Errorf(MissingResource, op, "no k-mer counter given")
	}
	if b.Matrix.K != b.Config.K {
		return nil, Errorf(InvalidArgument, op, "k-mer size of sensing matrix (%d) does not match k (%d)", b.Matrix.K, b.Config.K)
	}
	rec, err := NewReconstructor(b.Matrix, b.Config.Lambda, b.Solver)
	if err != nil {
		return nil, err
	}

	threads := b.Config.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	n := len(samples)
	result := &BatchResult{
		Statuses:  make([]SampleStatus, n),
		Estimates: make([]*Estimate, n),
	}
	for i, s := range samples {
		result.Statuses[i].Sample = s
	}

	ch := make(chan int, threads)
	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				status := &result.Statuses[i]
				start := time.Now()
				result.Estimates[i], status.Reads, status.Err = b.one(ctx, rec, samples[i])
				status.Elapsed = time.Since(start)
				if b.OnDone != nil {
					b.OnDone(*status)
				}
			}
		}()
	}

	next := 0
LOOP:
	for ; next < n; next++ {
		select {
		case <-ctx.Done():
			break LOOP
		case ch <- next:
		}
	}
	close(ch)
	wg.Wait()
	for i := next; i < n; i++ {
		result.Statuses[i].Err = ctx.Err()
	}

	ids := make([]string, n)
	abundances := make([][]float64, n)
	reads := make([]int64, n)
	for i, s := range result.Statuses {
		ids[i] = s.Sample.ID
		reads[i] = s.Reads
		if s.Err == nil {
			abundances[i] = result.Estimates[i].Abundance
		}
	}
	result.Table, err = AssembleTable(b.Matrix.Taxa, ids, abundances, reads)
	if err != nil {
		return result, err
	}

	if b.Config.AllOrNothing && result.Failed() {
		for _, s := range result.Statuses {
			if s.Err != nil {
				return result, E(KindOf(s.Err), op, s.Err)
			}
		}
	}
	return result, nil
}

func (b Batch) one(ctx context.Context, rec *Reconstructor, s Sample) (*Estimate, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	counts, reads, err := b.Counter.Count(ctx, s.File, b.Config.K)
	if err != nil {
		if KindOf(err) == Other && ctx.Err() == nil {
			err = E(IOFailure, s.ID, err)
		}
		return nil, reads, err
	}
	if reads == 0 {
		return nil, 0, Errorf(EmptySample, s.ID, "no reads found in %s", s.File)
	}
	est, err := rec.Reconstruct(counts)
	if err != nil {
		return nil, reads, err
	}
	return est, reads, nil
}
