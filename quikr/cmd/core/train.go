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
)

// Reference is one labeled entry of a reference database.
type Reference struct {
	ID   string
	Seqs [][]byte
}

// ReferenceDB provides references in database order.
type ReferenceDB interface {
	References() ([]Reference, error)
}

// References is an in-memory ReferenceDB.
type References []Reference

// References returns itself.
func (r References) References() ([]Reference, error) { return r, nil }

// SequenceCounter counts the k-mers of a group of sequences.
type SequenceCounter interface {
	CountSequences(voc Vocabulary, seqs [][]byte) ([]float64, error)
}

// VocabularyCounter counts k-mers in memory with Vocabulary.Count.
type VocabularyCounter struct{}

// CountSequences returns the summed k-mer counts of seqs.
func (VocabularyCounter) CountSequences(voc Vocabulary, seqs [][]byte) ([]float64, error) {
	counts := make([]float64, voc.Size())
	for _, s := range seqs {
		voc.Count(counts, s)
	}
	return counts, nil
}

// Trainer builds a SensingMatrix from a reference database.
type Trainer struct {
	K       int
	Threads int
	Counter SequenceCounter

	// OnDone is called after each reference is counted. It may be called
	// concurrently.
	OnDone func(id string)
}

// Train counts and normalizes every reference. Columns follow database
// order. A reference without any k-mer is an EmptySample error.
func (tr Trainer) Train(ctx context.Context, db ReferenceDB) (*SensingMatrix, error) {
	const op = "train"
	voc, err := NewVocabulary(tr.K)
	if err != nil {
		return nil, err
	}
	if tr.Counter == nil {
		return nil, Errorf(MissingResource, op, "no k-mer counter given")
	}
	if db == nil {
		return nil, Errorf(MissingResource, op, "no reference database given")
	}
	refs, err := db.References()
	if err != nil {
		return nil, E(KindOf(err), op, err)
	}
	if len(refs) == 0 {
		return nil, Errorf(InvalidArgument, op, "reference database is empty")
	}

	threads := tr.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if threads > len(refs) {
		threads = len(refs)
	}

	rows := voc.Size()
	if err = CheckMatrixSize(op, rows, len(refs)); err != nil {
		return nil, err
	}
	taxa := make([]string, len(refs))
	data := make([]float64, rows*len(refs))

	var once sync.Once
	var firstErr error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	ch := make(chan int, threads)
	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				ref := refs[i]
				taxa[i] = ref.ID

				counts, err := tr.Counter.CountSequences(voc, ref.Seqs)
				if err != nil {
					kind := KindOf(err)
					if kind == Other {
						kind = IOFailure
					}
					fail(E(kind, op, err))
					continue
				}
				if len(counts) != rows {
					fail(Errorf(InvalidArgument, op, "%s: count vector length %d, expected %d", ref.ID, len(counts), rows))
					continue
				}
				if _, err = Normalize(counts); err != nil {
					fail(Errorf(KindOf(err), op, "%s: no valid k-mer found", ref.ID))
					continue
				}
				copy(data[i*rows:(i+1)*rows], counts)

				if tr.OnDone != nil {
					tr.OnDone(ref.ID)
				}
			}
		}()
	}

LOOP:
	for i := range refs {
		select {
		case <-ctx.Done():
			break LOOP
		case ch <- i:
		}
	}
	close(ch)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return &SensingMatrix{K: tr.K, Taxa: taxa, Data: data}, nil
}
