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
	"fmt"
	"os"
	"runtime"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/spf13/cobra"
)

// RootCmd is the quikr command, holding subcommands of the workflow:
// train, estimate and otu, plus helpers for count vectors and matrix files.
var RootCmd = &cobra.Command{
	Use:   "quikr",
	Short: "Quadratic, Unique, Iterative K-mer Reconstruction",
	Long: fmt.Sprintf(`
    Program: quikr (Quadratic, Unique, Iterative K-mer Reconstruction)
    Version: v%s
Source code: https://github.com/EESI/quikr

quikr estimates the relative abundance of bacterial taxa in a metagenomic
sample from its k-mer counts, by solving a non-negative least squares problem
against a sensing matrix trained from a reference database.

Workflow:
  1. quikr train -r refs.fa -o refs.qsm
  2. quikr estimate -s refs.qsm sample.fa
     quikr otu -s refs.qsm -I samples/ -o otu.tsv

Exit status:
  0 success, 1 other errors, 2 invalid arguments, 3 missing files,
  4 empty samples, 5 solver not converged, 6 I/O errors.

`, VERSION),
}

// Execute runs the command line. Errors returned here come from parsing
// commands and flags, and cobra has printed them with the usage.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(exitCode(core.E(core.InvalidArgument, "quikr", err)))
	}
}

func init() {
	RootCmd.PersistentFlags().IntP("threads", "j", runtime.NumCPU(), formatFlagUsage("Number of CPUs to use, 0 for all."))
	RootCmd.PersistentFlags().BoolP("quiet", "q", false, formatFlagUsage("Do not print any verbose information."))
	RootCmd.PersistentFlags().StringP("infile-list", "i", "", formatFlagUsage("File of input files, one per line, appended to files given as arguments."))
	RootCmd.PersistentFlags().StringP("log", "", "", formatFlagUsage("Log file, in addition to stderr."))

	RootCmd.CompletionOptions.DisableDefaultCmd = true
}
