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
	"os/signal"
	"path/filepath"
	"regexp"
	"time"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/EESI/quikr/quikr/cmd/counter"
	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/dustin/go-humanize"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/util/stats"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// AbundanceFileSuffix is the suffix of per-sample abundance files.
const AbundanceFileSuffix = ".quikr.tsv"

var otuCmd = &cobra.Command{
	Use:   "otu",
	Short: "Estimate abundances of many samples into an OTU table",
	Long: `Estimate abundances of many samples into an OTU table

Every FASTA/FASTQ file in the input directory (-I/--input-dir, searched
recursively), and files given as arguments, is a sample named after the
file without the sequence-format extensions. Abundances are estimated
as "quikr estimate" does, and converted to read counts by multiplying
with the number of reads of the sample, rounded half away from zero.

Samples failing to be estimated, e.g., empty files, are reported and left
out of the table, and the command exits with a non-zero status after
writing the outputs. With --all-or-nothing, nothing is written when any
sample fails.

K-mer counters (-C/--counter):
  fastx        count k-mers in process
  exec         run an external program (--count-program), called as
               "<program> -r <k> -1 -u <file>", printing one count per line
  precomputed  read count vectors from "<sample file><--counts-suffix>"

Output format (compatible with QIIME):
  # QIIME vQuikr OTU table
  #OTU_ID<TAB>sample1<TAB>sample2...
  taxon<TAB>count1<TAB>count2...

With -f/--reference, the reference FASTA file the sensing matrix was
trained from, the taxa of the matrix are checked against it, grouped by
the regular expression recorded at training time.

Parameters can be read from a YAML file via --config, with keys:
  matrix, reference, input-dir, out-dir, kmer, lambda, threads,
  all-or-nothing.
Flags given on the command line override the file. Without kmer in the
file or -k/--kmer, the k-mer size of the sensing matrix is used.

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

		cfg, kSet := getConfig(cmd, opt)

		outFile := getFlagString(cmd, "out-file")
		force := getFlagBool(cmd, "force")
		counterName := getFlagString(cmd, "counter")
		program := getFlagString(cmd, "count-program")
		suffix := getFlagString(cmd, "counts-suffix")
		pattern := getFlagString(cmd, "file-regexp")
		nameMappingFile := getFlagString(cmd, "name-map")
		sortByAbundance := getFlagBool(cmd, "sort-by-abundance")
		maxIter := getFlagNonNegativeInt(cmd, "max-iter")

		kc, err := newCounter(counterName, program, suffix)
		checkError(err)

		reFile, err := regexp.Compile(pattern)
		checkError(err)

		// samples
		var files []string
		if cfg.InputDir != "" {
			files, err = getFileListFromDir(cfg.InputDir, reFile, opt.NumCPUs)
			checkError(err)
		}
		if len(args) > 0 || getFlagString(cmd, "infile-list") != "" {
			listed, err := inputFiles(cmd, args)
			checkError(err)
			files = append(files, listed...)
		}
		if len(files) == 0 {
			checkError(core.Errorf(core.InvalidArgument, "otu", "no sample files given, via -I/--input-dir or positional arguments"))
		}
		samples, err := samplesFromFiles(files)
		checkError(err)

		m := loadMatrix(opt, cfg.MatrixFile)
		matrixK(&cfg, kSet, m)
		if cfg.ReferenceFasta != "" {
			checkError(checkReference(cfg.MatrixFile, cfg.ReferenceFasta, m))
			if opt.Verbose || opt.Log2File {
				log.Infof("taxa of sensing matrix match reference: %s", cfg.ReferenceFasta)
			}
		}
		names := readNameMapping(opt, nameMappingFile)

		if opt.Verbose || opt.Log2File {
			log.Infof("quikr v%s", VERSION)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("number of samples: %d", len(samples))
			log.Infof("k-mer size: %d, lambda: %v", cfg.K, cfg.Lambda)
			log.Infof("k-mer counter: %s", counterName)
			log.Infof("threads: %d", cfg.Threads)
			if cfg.AllOrNothing {
				log.Infof("failing on any failed sample")
			}
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		if cfg.OutDir != "" {
			checkError(prepareOutDir(cfg.OutDir, force))
		}

		// process bar
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var done chan int
		var processed int
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(79))
			bar = pbs.AddBar(int64(len(samples)),
				mpb.BarStyle("[=>-]<+"),
				mpb.PrependDecorators(
					decor.Name("processed samples: ", decor.WC{W: len("processed samples: "), C: decor.DidentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.EwmaETA(decor.ET_STYLE_GO, 60),
				),
			)

			chDuration = make(chan time.Duration, cfg.Threads)
			done = make(chan int)
			go func() {
				for t := range chDuration {
					processed++
					bar.Increment()
					bar.DecoratorEwmaUpdate(t)
				}
				done <- 1
			}()
		}

		batch := core.Batch{
			Config:  cfg,
			Matrix:  m,
			Counter: kc,
			Solver:  newSolver(maxIter),
		}
		if chDuration != nil {
			batch.OnDone = func(s core.SampleStatus) {
				chDuration <- s.Elapsed
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		result, err := batch.Run(ctx, samples)
		stop()

		if chDuration != nil {
			close(chDuration)
			<-done
			// samples never dispatched after interruption
			for ; processed < len(samples); processed++ {
				bar.Increment()
			}
			pbs.Wait()
		}
		if result != nil {
			reportStatuses(opt, result)
		}
		checkError(err)

		tbl := result.Table
		tbl.Rename(names)
		if sortByAbundance {
			tbl.SortByTotal()
		}
		checkError(smfile.WriteOTUTable(outFile, tbl))
		if (opt.Verbose || opt.Log2File) && !isStdout(outFile) {
			log.Infof("OTU table of %d taxa and %d samples saved to %s", len(tbl.Taxa), len(tbl.Samples), outFile)
		}

		if cfg.OutDir != "" {
			taxa := renameTaxa(m.Taxa, names)
			for i, est := range result.Estimates {
				if est == nil {
					continue
				}
				file := filepath.Join(cfg.OutDir, result.Statuses[i].Sample.ID+AbundanceFileSuffix)
				checkError(smfile.WriteAbundance(file, taxa, est.Abundance, true))
			}
			if opt.Verbose || opt.Log2File {
				log.Infof("abundances of every sample saved to directory: %s", cfg.OutDir)
			}
		}

		if result.Failed() {
			for _, s := range result.Statuses {
				if s.Err != nil {
					log.Errorf("%d of %d samples failed", result.NumFailed(), len(samples))
					os.Exit(exitCode(s.Err))
				}
			}
		}
	},
}

// newCounter creates the k-mer counter by name.
func newCounter(name, program, suffix string) (core.Counter, error) {
	switch name {
	case "fastx":
		return counter.Fastx{}, nil
	case "exec":
		return counter.Exec{Program: program}, nil
	case "precomputed":
		return counter.Precomputed{Suffix: suffix}, nil
	}
	return nil, core.Errorf(core.InvalidArgument, "otu",
		`invalid k-mer counter: %s, available: "fastx", "exec", "precomputed"`, name)
}

// reportStatuses logs failed samples and the distribution of read numbers.
func reportStatuses(opt *Options, result *core.BatchResult) {
	q := stats.NewQuantiler()
	var total int64
	for _, s := range result.Statuses {
		if s.Err != nil {
			log.Warningf("sample %s failed: %s", s.Sample.ID, s.Err)
			continue
		}
		q.Add(float64(s.Reads))
		total += s.Reads
	}
	if !(opt.Verbose || opt.Log2File) {
		return
	}
	n := len(result.Statuses) - result.NumFailed()
	if n == 0 {
		return
	}
	log.Infof("%d samples estimated, %s reads in total", n, humanize.Comma(total))
	log.Infof("reads per sample: 10th percentile: %s, median: %s, 90th percentile: %s",
		humanize.Comma(int64(q.Percentile(10))),
		humanize.Comma(int64(q.Percentile(50))),
		humanize.Comma(int64(q.Percentile(90))))
}

func init() {
	RootCmd.AddCommand(otuCmd)

	otuCmd.Flags().StringP("sensing-matrix", "s", "", formatFlagUsage(`Sensing matrix file from "quikr train".`))
	otuCmd.Flags().StringP("reference", "f", "", formatFlagUsage("Reference FASTA file of the sensing matrix, for checking its taxa."))
	otuCmd.Flags().StringP("input-dir", "I", "", formatFlagUsage("Directory of sample files."))
	otuCmd.Flags().StringP("file-regexp", "r", `(?i)\.(f[aq]|fna|fasta|fastq)(\.gz)?$`, formatFlagUsage("Regular expression for matching sample files in -I/--input-dir."))
	otuCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`OTU table file, supports the ".gz" suffix ("-" for stdout).`))
	otuCmd.Flags().StringP("out-dir", "O", "", formatFlagUsage(fmt.Sprintf(`Directory for abundances of every sample, in "<sample>%s".`, AbundanceFileSuffix)))
	otuCmd.Flags().BoolP("force", "", false, formatFlagUsage("Overwrite the output directory."))
	otuCmd.Flags().IntP("kmer", "k", 0, formatFlagUsage("K-mer size, 0 for the k-mer size of the sensing matrix."))
	otuCmd.Flags().Float64P("lambda", "l", core.DefaultLambda, formatFlagUsage("Weight of k-mer frequency fit against the sum-to-one constraint."))
	otuCmd.Flags().IntP("max-iter", "", 0, formatFlagUsage("Maximum iterations of the NNLS solver, 0 for 3 times the number of taxa."))
	otuCmd.Flags().StringP("counter", "C", "fastx", formatFlagUsage(`K-mer counter: "fastx", "exec" or "precomputed".`))
	otuCmd.Flags().StringP("count-program", "", counter.DefaultCountProgram, formatFlagUsage(`External k-mer counter for "-C exec".`))
	otuCmd.Flags().StringP("counts-suffix", "", ".counts", formatFlagUsage(`Suffix of count vector files for "-C precomputed".`))
	otuCmd.Flags().StringP("name-map", "N", "", formatFlagUsage(`Tabular two-column file mapping taxon names to new names.`))
	otuCmd.Flags().BoolP("sort-by-abundance", "S", false, formatFlagUsage("Sort taxa by total read count in descending order."))
	otuCmd.Flags().BoolP("all-or-nothing", "", false, formatFlagUsage("Fail and write nothing if any sample fails."))
	otuCmd.Flags().StringP("config", "", "", formatFlagUsage("YAML config file, overridden by flags given explicitly."))

	otuCmd.SetUsageTemplate(usageTemplate("-s <matrix> {-I <dir> | <sample files>...} [-o <otu.tsv>]"))
}
