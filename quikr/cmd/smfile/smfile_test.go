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

package smfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/shenwei356/xopen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix(t *testing.T) *core.SensingMatrix {
	m, err := core.NewSensingMatrix(1, []string{"Escherichia coli", "Bacillus"}, []float64{
		0.1, 0.2, 0.3, 0.4,
		0.25, 0.25, 0.5, 0,
	})
	require.NoError(t, err)
	return m
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	m := testMatrix(t)

	cases := []struct {
		name     string
		format   Format
		compress bool
	}{
		{"m.qsm", Binary, false},
		{"m.qsm.gz", Binary, true},
		{"m.txt", Text, false},
		{"m.txt.gz", Text, true},
	}
	for _, c := range cases {
		file := filepath.Join(dir, c.name)
		require.NoError(t, Save(file, m, c.format, c.compress, 6), c.name)

		format, gzipped, err := DetectFormat(file)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.format, format, c.name)
		assert.Equal(t, c.compress, gzipped, c.name)

		m2, format, err := Load(file)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.format, format, c.name)
		assert.Equal(t, m.K, m2.K)
		assert.Equal(t, m.Taxa, m2.Taxa)
		assert.InDeltaSlice(t, m.Data, m2.Data, 1e-15, c.name)
	}
}

func TestReadText_RawCounts(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "trained.gz")
	outfh, err := xopen.Wopen(file)
	require.NoError(t, err)
	outfh.WriteString("quikr\n0\n2\n1\n>seq1\n1\n1\n2\n0\n>seq2\n0\n0\n0\n7\n")
	require.NoError(t, outfh.Close())

	m, format, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, Text, format)
	assert.Equal(t, []string{"seq1", "seq2"}, m.Taxa)
	assert.Equal(t, []float64{0.25, 0.25, 0.5, 0}, m.Column(0))
	assert.Equal(t, []float64{0, 0, 0, 1}, m.Column(1))
}

func TestReadText_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"revision":  "quikr\n3\n1\n1\n>s\n1\n1\n1\n1\n",
		"truncated": "quikr\n0\n2\n1\n>s\n1\n1\n1\n1\n",
		"short":     "quikr\n0\n1\n1\n>s\n1\n1\n",
		"empty":     "quikr\n0\n1\n1\n>s\n0\n0\n0\n0\n",
		"value":     "quikr\n0\n1\n1\n>s\n1\nx\n1\n1\n",
	}
	for name, content := range cases {
		file := filepath.Join(dir, name+".txt")
		require.NoError(t, os.WriteFile(file, []byte(content), 0644))
		_, _, err := Load(file)
		require.Error(t, err, name)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "none.qsm"))
	require.ErrorIs(t, err, core.ErrMissingResource)

	bad := filepath.Join(dir, "bad.qsm")
	require.NoError(t, os.WriteFile(bad, []byte("not a matrix\n"), 0644))
	_, _, err = Load(bad)
	require.ErrorIs(t, err, ErrInvalidFormat)
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, testMatrix(t)))
	data := buf.Bytes()

	corrupted := append([]byte{}, data...)
	corrupted[len(corrupted)-12] ^= 0xff
	file := filepath.Join(dir, "corrupted.qsm")
	require.NoError(t, os.WriteFile(file, corrupted, 0644))
	_, _, err = Load(file)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	file = filepath.Join(dir, "truncated.qsm")
	require.NoError(t, os.WriteFile(file, data[:len(data)-20], 0644))
	_, _, err = Load(file)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader(bytes.NewReader(data[:len(data)-20]))
	require.NoError(t, err)
	reader, _ := NewReader(bytes.NewReader(data[:len(data)-20]))
	_, err = reader.Read()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestWriter_Unfinished(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, w.Write([]float64{1, 0, 0, 0}))
	require.ErrorIs(t, w.Write([]float64{1, 0}), ErrWrongColumnSize)
	require.ErrorIs(t, w.Flush(), ErrUnfinishedWrite)

	_, err = NewWriter(&buf, 1, []string{"a\nb"})
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestWriteText_LineBreakInName(t *testing.T) {
	for _, name := range []string{"a\nb", "a\r"} {
		m, err := core.NewSensingMatrix(1, []string{"c", name}, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.ErrorIs(t, WriteText(&buf, m), core.ErrInvalidArgument, name)
		assert.Zero(t, buf.Len(), name)

		err = Save(filepath.Join(t.TempDir(), "m.txt"), m, Text, false, -1)
		require.ErrorIs(t, err, core.ErrInvalidArgument, name)
	}
}

func TestLoad_MatrixTooLarge(t *testing.T) {
	file := filepath.Join(t.TempDir(), "m.qsm")
	require.NoError(t, Save(file, testMatrix(t), Binary, false, -1))

	limit := core.MaxMatrixBytes
	defer func() { core.MaxMatrixBytes = limit }()
	core.MaxMatrixBytes = 4 * 8

	_, _, err := Load(file)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	m := testMatrix(t)
	file := InfoFile(filepath.Join(dir, "sub", "m.qsm"))
	info := NewInfo(Binary, m.K, m.Cols(), m.Vocabulary().Fingerprint(), "db.fa")
	_, err := info.WriteTo(file)
	require.NoError(t, err)

	info2, err := InfoFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, info, info2)
	assert.Equal(t, "binary", info2.Format)
}

func TestWriteOTUTable(t *testing.T) {
	dir := t.TempDir()
	tbl := &core.AbundanceTable{
		Taxa:    []string{"taxon1", "taxon2"},
		Samples: []string{"A", "B"},
		Counts:  [][]int64{{50, 50}, {50, 0}},
	}
	file := filepath.Join(dir, "otu.tsv")
	require.NoError(t, WriteOTUTable(file, tbl))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "# QIIME vQuikr OTU table\n#OTU_ID\tA\tB\ntaxon1\t50\t50\ntaxon2\t50\t0\n", string(data))
}

func TestWriteAbundance(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "s.quikr.tsv")
	require.NoError(t, WriteAbundance(file, []string{"x", "y", "z"}, []float64{0.75, 0, 0.25}, true))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "x\t0.750000\nz\t0.250000\n", string(data))

	err = WriteAbundance(file, []string{"x"}, []float64{0.5, 0.5}, false)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}
