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
	"strings"

	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a sensing matrix between binary and text formats",
	Long: `Convert a sensing matrix between binary and text formats

Text matrices trained by other implementations, holding raw counts, are
normalized when loaded, so the output is always a normalized matrix.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		outFile := getFlagNonEmptyString(cmd, "out-file")
		formatStr := getFlagString(cmd, "format")
		noCompress := getFlagBool(cmd, "no-compress")
		level := getFlagInt(cmd, "compression-level")

		files, err := inputFiles(cmd, args)
		checkError(err)
		if len(files) != 1 || isStdin(files[0]) {
			checkError(fmt.Errorf("one sensing matrix file needed"))
		}
		if isStdout(outFile) {
			checkError(fmt.Errorf("stdout not supported for sensing matrix"))
		}
		format, err := smfile.ParseFormat(formatStr)
		checkError(err)

		m := loadMatrix(opt, files[0])
		compress := !noCompress && strings.HasSuffix(strings.ToLower(outFile), ".gz")
		checkError(smfile.Save(outFile, m, format, compress, level))

		info := smfile.NewInfo(format, m.K, m.Cols(), m.Vocabulary().Fingerprint(), files[0])
		if sidecar, err := smfile.InfoFromFile(smfile.InfoFile(files[0])); err == nil {
			info.Reference = sidecar.Reference
			info.GroupBy = sidecar.GroupBy
		}
		_, err = info.WriteTo(smfile.InfoFile(outFile))
		checkError(err)

		if opt.Verbose {
			log.Infof("%s matrix saved to %s", format, outFile)
		}
	},
}

func init() {
	RootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("out-file", "o", "", formatFlagUsage(`Output file, gzipped if ending with ".gz".`))
	convertCmd.Flags().StringP("format", "f", "binary", formatFlagUsage(`Output format, "binary" or "text".`))
	convertCmd.Flags().BoolP("no-compress", "", false, formatFlagUsage(`Do not gzip the output even if it ends with ".gz".`))
	convertCmd.Flags().IntP("compression-level", "", -1, formatFlagUsage("Gzip compression level, -1 for the default."))

	convertCmd.SetUsageTemplate(usageTemplate("<matrix> -o <out-file>"))
}
