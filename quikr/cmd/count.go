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

package cmd

import (
	"context"
	"strconv"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count k-mers of a FASTA/FASTQ file",
	Long: `Count k-mers of a FASTA/FASTQ file

The output is one count per line, in the lexicographic order of k-mers
(see "quikr kmers"), which "quikr otu --counter precomputed" and
"quikr estimate --counts" read.

K-mers containing bases other than A, C, G and T are skipped.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		k := getFlagPositiveInt(cmd, "kmer")
		outFile := getFlagString(cmd, "out-file")
		withKmers := getFlagBool(cmd, "with-kmers")

		files, err := inputFiles(cmd, args)
		checkError(err)
		if len(files) != 1 {
			checkError(core.Errorf(core.InvalidArgument, "count", "one input file needed, %d given", len(files)))
		}
		voc, err := core.NewVocabulary(k)
		checkError(err)

		counts, reads, err := counter.Fastx{}.Count(context.Background(), files[0], k)
		checkError(err)
		if opt.Verbose {
			log.Infof("%d sequences read from %s", reads, files[0])
		}

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer outfh.Close()

		buf := make([]byte, 0, 64)
		var kmer string
		for i, c := range counts {
			buf = buf[:0]
			if withKmers {
				kmer, err = voc.KmerAt(i)
				checkError(err)
				buf = append(buf, kmer...)
				buf = append(buf, '\t')
			}
			buf = strconv.AppendFloat(buf, c, 'f', -1, 64)
			buf = append(buf, '\n')
			outfh.Write(buf)
		}
	},
}

func init() {
	RootCmd.AddCommand(countCmd)

	countCmd.Flags().IntP("kmer", "k", core.DefaultK, formatFlagUsage("K-mer size."))
	countCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))
	countCmd.Flags().BoolP("with-kmers", "K", false, formatFlagUsage(`Prefix each count with its k-mer, not readable by "quikr estimate --counts".`))

	countCmd.SetUsageTemplate(usageTemplate("<seqs.fa[.gz]>"))
}
