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
	"os"
	"time"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/dustin/go-humanize"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate taxon abundances of one sample",
	Long: `Estimate taxon abundances of one sample

The k-mer counts of the sample, normalized to frequencies p, and the sensing
matrix S give the non-negative least squares problem

    minimize || [1 ... 1; lambda*S] x - [0; lambda*p] ||,  x >= 0

whose solution, normalized to sum 1, is the relative abundance of taxa.
A larger lambda (-l/--lambda) weights the fit of k-mer frequencies more
than the constraint that abundances sum to 1.

The k-mers are counted from the FASTA/FASTQ input, or read from a count
vector file given by --counts (see "quikr count").

With -f/--reference, the taxa of the sensing matrix are checked against the
reference FASTA file it was trained from.

Output format:
  taxon<TAB>abundance

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		matrixFile := getFlagString(cmd, "sensing-matrix")
		lambda := getFlagPositiveFloat64(cmd, "lambda")
		countsFile := getFlagString(cmd, "counts")
		outFile := getFlagString(cmd, "out-file")
		all := getFlagBool(cmd, "all")
		maxIter := getFlagNonNegativeInt(cmd, "max-iter")
		nameMappingFile := getFlagString(cmd, "name-map")
		refFile := getFlagString(cmd, "reference")

		var file string
		if countsFile == "" {
			files, err := inputFiles(cmd, args)
			checkError(err)
			if len(files) != 1 || isStdin(files[0]) {
				checkError(core.Errorf(core.InvalidArgument, "estimate", "one sample file needed, or a count vector via --counts"))
			}
			file = files[0]
		}

		m := loadMatrix(opt, matrixFile)
		if refFile != "" {
			checkError(checkReference(matrixFile, refFile, m))
		}
		names := readNameMapping(opt, nameMappingFile)

		rec, err := core.NewReconstructor(m, lambda, newSolver(maxIter))
		checkError(err)

		var counts []float64
		if countsFile != "" {
			counts, err = counter.ReadVector(countsFile, m.K)
			checkError(err)
		} else {
			var reads int64
			counts, reads, err = counter.Fastx{}.Count(context.Background(), file, m.K)
			checkError(err)
			if reads == 0 {
				checkError(core.Errorf(core.EmptySample, "estimate", "no reads found in %s", file))
			}
			if opt.Verbose || opt.Log2File {
				log.Infof("%s reads counted in %s", humanize.Comma(reads), file)
			}
		}

		est, err := rec.Reconstruct(counts)
		checkError(err)
		if opt.Verbose || opt.Log2File {
			var n int
			for _, v := range est.Abundance {
				if v > 0 {
					n++
				}
			}
			log.Infof("%d taxa detected, residual: %.6g, iterations: %d", n, est.Residual, est.Iterations)
		}

		checkError(smfile.WriteAbundance(outFile, renameTaxa(m.Taxa, names), est.Abundance, !all))
		if (opt.Verbose || opt.Log2File) && !isStdout(outFile) {
			log.Infof("abundances saved to %s", outFile)
		}
	},
}

func init() {
	RootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringP("sensing-matrix", "s", "", formatFlagUsage(`Sensing matrix file from "quikr train".`))
	estimateCmd.Flags().Float64P("lambda", "l", core.DefaultLambda, formatFlagUsage("Weight of k-mer frequency fit against the sum-to-one constraint."))
	estimateCmd.Flags().StringP("counts", "c", "", formatFlagUsage(`Count vector file, instead of counting k-mers of a sample file.`))
	estimateCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))
	estimateCmd.Flags().BoolP("all", "a", false, formatFlagUsage("Output all taxa, including those with zero abundance."))
	estimateCmd.Flags().IntP("max-iter", "", 0, formatFlagUsage("Maximum iterations of the NNLS solver, 0 for 3 times the number of taxa."))
	estimateCmd.Flags().StringP("reference", "f", "", formatFlagUsage("Reference FASTA file of the sensing matrix, for checking its taxa."))
	estimateCmd.Flags().StringP("name-map", "N", "", formatFlagUsage(`Tabular two-column file mapping taxon names to new names.`))

	estimateCmd.SetUsageTemplate(usageTemplate("-s <matrix> {<sample.fa[.gz]> | --counts <counts.txt>}"))
}
