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
	"strconv"

	"github.com/EESI/quikr/quikr/cmd/smfile"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	prettytable "github.com/tatsushid/go-prettytable"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print information of sensing matrices",
	Long: `Print information of sensing matrices

With -a/--taxa, the number of distinct k-mers of every taxon is printed
instead.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		outFile := getFlagString(cmd, "out-file")
		tabular := getFlagBool(cmd, "tabular")
		listTaxa := getFlagBool(cmd, "taxa")

		files, err := inputFiles(cmd, args)
		checkError(err)
		for _, file := range files {
			if isStdin(file) {
				checkError(fmt.Errorf("stdin not supported, please give sensing matrix files"))
			}
		}

		outfh, err := xopen.Wopen(outFile)
		checkError(err)
		defer outfh.Close()

		if listTaxa {
			outfh.WriteString("file\ttaxon\tkmers\n")
			for _, file := range files {
				m := loadMatrix(opt, file)
				for t, taxon := range m.Taxa {
					var n int
					for _, v := range m.Column(t) {
						if v > 0 {
							n++
						}
					}
					fmt.Fprintf(outfh, "%s\t%s\t%d\n", file, taxon, n)
				}
			}
			return
		}

		type statInfo struct {
			file      string
			format    string
			gzipped   bool
			k         int
			taxa      int
			size      int64
			reference string
			created   string
		}
		statInfos := make([]statInfo, 0, len(files))

		for _, file := range files {
			m := loadMatrix(opt, file)
			format, gzipped, err := smfile.DetectFormat(file)
			checkError(errors.Wrap(err, file))
			fi, err := os.Stat(file)
			checkError(errors.Wrap(err, file))

			info := statInfo{
				file:    file,
				format:  format.String(),
				gzipped: gzipped,
				k:       m.K,
				taxa:    m.Cols(),
				size:    fi.Size(),
			}

			infoFile := smfile.InfoFile(file)
			existed, err := pathutil.Exists(infoFile)
			checkError(err)
			if existed {
				if sidecar, err := smfile.InfoFromFile(infoFile); err == nil {
					info.reference = sidecar.Reference
					info.created = sidecar.Created
				}
			}
			statInfos = append(statInfos, info)
		}

		if tabular {
			outfh.WriteString("file\tformat\tgzipped\tk\ttaxa\tsize\treference\tcreated\n")
			for _, info := range statInfos {
				fmt.Fprintf(outfh, "%s\t%s\t%v\t%d\t%d\t%d\t%s\t%s\n",
					info.file, info.format, info.gzipped, info.k, info.taxa, info.size, info.reference, info.created)
			}
			return
		}

		// format output
		columns := []prettytable.Column{
			{Header: "file"},
			{Header: "format"},
			{Header: "gzipped", AlignRight: true},
			{Header: "k", AlignRight: true},
			{Header: "taxa", AlignRight: true},
			{Header: "size", AlignRight: true},
			{Header: "reference"},
			{Header: "created"},
		}
		tbl, err := prettytable.NewTable(columns...)
		checkError(err)
		tbl.Separator = "  "

		for _, info := range statInfos {
			tbl.AddRow(
				info.file,
				info.format,
				strconv.FormatBool(info.gzipped),
				info.k,
				humanize.Comma(int64(info.taxa)),
				humanize.Bytes(uint64(info.size)),
				info.reference,
				info.created,
			)
		}
		outfh.Write(tbl.Bytes())
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringP("out-file", "o", "-", formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))
	infoCmd.Flags().BoolP("tabular", "T", false, formatFlagUsage("Output in machine-friendly tabular format."))
	infoCmd.Flags().BoolP("taxa", "a", false, formatFlagUsage("List taxa and their numbers of distinct k-mers."))

	infoCmd.SetUsageTemplate(usageTemplate("<matrix> [<matrix>...]"))
}
