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
	"bytes"
	"strconv"

	"github.com/shenwei356/kmers"
	"github.com/zeebo/wyhash"
)

// MaxK is the largest supported k-mer size. 4^31 still fits a positive int64
// and the 2-bit code of a 31-mer fits an uint64.
const MaxK = 31

// Alphabet is the symbol order of the vocabulary.
const Alphabet = "acgt"

// base2bit maps a nucleotide to its 2-bit code in Alphabet order,
// and everything else to 4.
var base2bit [256]uint8

func init() {
	for i := range base2bit {
		base2bit[i] = 4
	}
	for i, b := range []byte(Alphabet) {
		base2bit[b] = uint8(i)
		base2bit[b-32] = uint8(i) // upper case
	}
}

// Vocabulary enumerates all k-mers over {a,c,g,t} in lexicographic
// Cartesian-product order. Position i holds the k-mer whose 2-bit code is i,
// so "aa..a" is 0 and "tt..t" is 4^k-1.
//
// Every count vector and every row of a sensing matrix is indexed by this
// ordering.
type Vocabulary struct {
	k int
}

// NewVocabulary returns the vocabulary of k-mers.
func NewVocabulary(k int) (Vocabulary, error) {
	if k <= 0 || k > MaxK {
		return Vocabulary{}, Errorf(InvalidArgument, "vocabulary", "k-mer size should be in range of [1, %d], given: %d", MaxK, k)
	}
	return Vocabulary{k: k}, nil
}

// K returns the k-mer size.
func (v Vocabulary) K() int { return v.k }

// Size returns 4^k.
func (v Vocabulary) Size() int { return 1 << (uint(v.k) << 1) }

// Index returns the position of a k-mer. Case is ignored.
func (v Vocabulary) Index(kmer string) (int, error) {
	if len(kmer) != v.k {
		return -1, Errorf(InvalidArgument, "vocabulary", "k-mer length %d does not match k (%d): %s", len(kmer), v.k, kmer)
	}
	for i := 0; i < len(kmer); i++ {
		if base2bit[kmer[i]] > 3 {
			return -1, Errorf(InvalidArgument, "vocabulary", "invalid base '%c' in k-mer: %s", kmer[i], kmer)
		}
	}
	code, err := kmers.Encode([]byte(kmer))
	if err != nil {
		return -1, E(InvalidArgument, "vocabulary", err)
	}
	return int(code), nil
}

// KmerAt returns the k-mer at a position.
func (v Vocabulary) KmerAt(i int) (string, error) {
	if i < 0 || i >= v.Size() {
		return "", Errorf(InvalidArgument, "vocabulary", "k-mer index out of range [0, %d): %d", v.Size(), i)
	}
	return string(bytes.ToLower(kmers.MustDecode(uint64(i), v.k))), nil
}

// Kmers returns all k-mers in order.
func (v Vocabulary) Kmers() []string {
	n := v.Size()
	list := make([]string, n)
	for i := 0; i < n; i++ {
		list[i] = string(bytes.ToLower(kmers.MustDecode(uint64(i), v.k)))
	}
	return list
}

// fingerprintKmers is the number of leading k-mers hashed by Fingerprint.
const fingerprintKmers = 4096

// Fingerprint identifies the ordering of the vocabulary. It is stored along
// with trained matrices so that a matrix is never used with count vectors
// indexed in another way.
func (v Vocabulary) Fingerprint() uint64 {
	n := v.Size()
	if n > fingerprintKmers {
		n = fingerprintKmers
	}
	var buf bytes.Buffer
	buf.WriteString("k=")
	buf.WriteString(strconv.Itoa(v.k))
	buf.WriteString(";alphabet=")
	buf.WriteString(Alphabet)
	for i := 0; i < n; i++ {
		buf.WriteByte(';')
		buf.Write(kmers.MustDecode(uint64(i), v.k))
	}
	return wyhash.HashString(buf.String(), 1)
}

// Count adds the k-mers of one sequence to counts, which must have length
// Size(). A base outside ACGT breaks the window: no k-mer spanning it is
// counted. It returns the number of k-mers added.
func (v Vocabulary) Count(counts []float64, s []byte) int {
	k := v.k
	if len(s) < k {
		return 0
	}
	mask := uint64(v.Size() - 1)
	var code uint64
	var b uint8
	var valid, n int
	for _, c := range s {
		b = base2bit[c]
		if b > 3 {
			valid = 0
			code = 0
			continue
		}
		code = ((code << 2) | uint64(b)) & mask
		valid++
		if valid >= k {
			counts[code]++
			n++
		}
	}
	return n
}
