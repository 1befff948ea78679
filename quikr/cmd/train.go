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
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/dustin/go-humanize"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a sensing matrix from a reference database",
	Long: `Train a sensing matrix from a reference database

Every sequence of the reference FASTA file is one taxon, whose column is the
normalized k-mer frequency vector of the sequence. With --group-by-regexp,
sequences sharing the first captured group of their IDs are merged into
one taxon, e.g., all sequences of a genome.

Output formats:
  binary  checksummed binary format, loaded fast with a memory map
  text    plain text format, one taxon header and 4^k values per taxon

The output is gzipped by default, with ".gz" appended to the file name
unless --force-name is given. A sidecar "<out-file>.yml" records the
parameters.

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

		k := getFlagPositiveInt(cmd, "kmer")
		refFile := getFlagString(cmd, "reference")
		outFile := getFlagNonEmptyString(cmd, "out-file")
		formatStr := getFlagString(cmd, "format")
		noCompress := getFlagBool(cmd, "no-compress")
		level := getFlagInt(cmd, "compression-level")
		forceName := getFlagBool(cmd, "force-name")
		groupBy := getFlagString(cmd, "group-by-regexp")

		if refFile == "" {
			files, err := inputFiles(cmd, args)
			checkError(err)
			if len(files) != 1 || isStdin(files[0]) {
				checkError(fmt.Errorf("one reference FASTA file needed, via -r/--reference or positional argument"))
			}
			refFile = files[0]
		}
		if isStdout(outFile) {
			checkError(fmt.Errorf("stdout not supported for sensing matrix"))
		}

		format, err := smfile.ParseFormat(formatStr)
		checkError(err)

		compress := !noCompress
		if compress && !forceName && !strings.HasSuffix(outFile, ".gz") {
			outFile += ".gz"
		}

		var reGroup *regexp.Regexp
		if groupBy != "" {
			reGroup, err = regexp.Compile(groupBy)
			checkError(err)
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("quikr v%s", VERSION)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("reference: %s", refFile)
			log.Infof("k-mer size: %d", k)
			if reGroup != nil {
				log.Infof("grouping sequences by: %s", groupBy)
			}
			log.Infof("output: %s (%s format, gzipped: %v)", outFile, format, compress)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		db := counter.FastaDB{File: refFile, GroupBy: reGroup}
		refs, err := db.References()
		checkError(err)
		if opt.Verbose || opt.Log2File {
			log.Infof("%s taxa loaded from %s", humanize.Comma(int64(len(refs))), refFile)
		}

		trainer := core.Trainer{
			K:       k,
			Threads: opt.NumCPUs,
			Counter: core.VocabularyCounter{},
		}

		var pbs *mpb.Progress
		var bar *mpb.Bar
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(79))
			bar = pbs.AddBar(int64(len(refs)),
				mpb.BarStyle("[=>-]<+"),
				mpb.PrependDecorators(
					decor.Name("counting taxa: ", decor.WC{W: len("counting taxa: "), C: decor.DidentRight}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Elapsed(decor.ET_STYLE_GO),
				),
			)
			trainer.OnDone = func(string) { bar.Increment() }
		}

		m, err := trainer.Train(context.Background(), core.References(refs))
		checkError(err)
		if pbs != nil {
			pbs.Wait()
		}

		checkError(smfile.Save(outFile, m, format, compress, level))

		info := smfile.NewInfo(format, m.K, m.Cols(), m.Vocabulary().Fingerprint(), refFile)
		if reGroup != nil {
			info.GroupBy = groupBy
		}
		_, err = info.WriteTo(smfile.InfoFile(outFile))
		checkError(err)

		if opt.Verbose || opt.Log2File {
			log.Infof("sensing matrix (%s) saved to %s", m, outFile)
		}
	},
}

func init() {
	RootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringP("reference", "r", "", formatFlagUsage("Reference FASTA file, one sequence per taxon by default."))
	trainCmd.Flags().StringP("out-file", "o", "", formatFlagUsage(`Output sensing matrix file.`))
	trainCmd.Flags().IntP("kmer", "k", core.DefaultK, formatFlagUsage("K-mer size."))
	trainCmd.Flags().StringP("format", "f", "binary", formatFlagUsage(`Output format, "binary" or "text".`))
	trainCmd.Flags().BoolP("no-compress", "", false, formatFlagUsage("Do not gzip the output."))
	trainCmd.Flags().IntP("compression-level", "", -1, formatFlagUsage("Gzip compression level, -1 for the default."))
	trainCmd.Flags().BoolP("force-name", "", false, formatFlagUsage(`Do not append ".gz" to the output file name.`))
	trainCmd.Flags().StringP("group-by-regexp", "g", "", formatFlagUsage(`Regular expression with one capture group, to merge sequences into taxa by their IDs, e.g., "^(\w+)_\d+$".`))

	trainCmd.SetUsageTemplate(usageTemplate("[-r <ref.fa[.gz]>] -o <matrix>"))
}
