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
	"testing"
)

func TestVocabularyOrder(t *testing.T) {
	voc, err := NewVocabulary(1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "c", "g", "t"}
	got := voc.Kmers()
	if len(got) != len(want) {
		t.Fatalf("size: %d, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: %s, expected %s", i, got[i], want[i])
		}
	}

	voc, _ = NewVocabulary(2)
	got = voc.Kmers()
	if len(got) != 16 {
		t.Fatalf("size: %d, expected 16", len(got))
	}
	for i, kmer := range map[int]string{0: "aa", 1: "ac", 3: "at", 4: "ca", 15: "tt"} {
		if got[i] != kmer {
			t.Errorf("position %d: %s, expected %s", i, got[i], kmer)
		}
	}
}

func TestVocabularyIndex(t *testing.T) {
	voc, _ := NewVocabulary(3)
	for i, kmer := range voc.Kmers() {
		j, err := voc.Index(kmer)
		if err != nil {
			t.Fatal(err)
		}
		if i != j {
			t.Errorf("index of %s: %d, expected %d", kmer, j, i)
		}
	}

	if i, _ := voc.Index("GCT"); i != 2*16+1*4+3 {
		t.Errorf("upper case k-mer: %d", i)
	}
	for _, bad := range []string{"ac", "acgt", "acn"} {
		if _, err := voc.Index(bad); KindOf(err) != InvalidArgument {
			t.Errorf("%s: expected invalid argument, got: %v", bad, err)
		}
	}
	if _, err := voc.KmerAt(64); KindOf(err) != InvalidArgument {
		t.Errorf("out of range: expected invalid argument, got: %v", err)
	}
}

func TestVocabularyBadK(t *testing.T) {
	for _, k := range []int{0, -1, MaxK + 1} {
		if _, err := NewVocabulary(k); KindOf(err) != InvalidArgument {
			t.Errorf("k=%d: expected invalid argument, got: %v", k, err)
		}
	}
}

func TestVocabularyCount(t *testing.T) {
	voc, _ := NewVocabulary(2)
	counts := make([]float64, voc.Size())

	// the N breaks the window: ac, cg, ta, aa
	n := voc.Count(counts, []byte("ACGnTAA"))
	if n != 4 {
		t.Errorf("number of k-mers: %d, expected 4", n)
	}
	for kmer, c := range map[string]float64{"ac": 1, "cg": 1, "ta": 1, "aa": 1, "gt": 0} {
		i, _ := voc.Index(kmer)
		if counts[i] != c {
			t.Errorf("count of %s: %v, expected %v", kmer, counts[i], c)
		}
	}
}

func TestVocabularyFingerprint(t *testing.T) {
	v1, _ := NewVocabulary(4)
	v2, _ := NewVocabulary(4)
	v3, _ := NewVocabulary(5)
	if v1.Fingerprint() != v2.Fingerprint() {
		t.Error("fingerprint is not stable")
	}
	if v1.Fingerprint() == v3.Fingerprint() {
		t.Error("fingerprints of different k collide")
	}
}
