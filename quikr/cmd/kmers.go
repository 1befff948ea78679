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
	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

var kmersCmd = &cobra.Command{
	Use:   "kmers",
	Short: "Print all k-mers in lexicographic order",
	Long: `Print all k-mers in lexicographic order

The order, with a < c < g < t, is the row order of sensing matrices and
count vectors.

`,
	Run: func(cmd *cobra.Command, args []string) {
		k := getFlagPositiveInt(cmd, "kmer")
		outFile := getFlagString(cmd, "out-file")

		voc, err := core.NewVocabulary(k)
		checkError(err)
		if k > 12 {
			log.Warningf("printing %d k-mers", voc.Size())
		}

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer outfh.Close()

		var kmer string
		for i := 0; i < voc.Size(); i++ {
			kmer, err = voc.KmerAt(i)
			checkError(err)
			outfh.WriteString(kmer + "\n")
		}
	},
}

func init() {
	RootCmd.AddCommand(kmersCmd)

	kmersCmd.Flags().IntP("kmer", "k", core.DefaultK, formatFlagUsage("K-mer size."))
	kmersCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	kmersCmd.SetUsageTemplate(usageTemplate(""))
}
