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
	"os"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/pkg/errors"
	"github.com/shenwei356/go-logging"
	"github.com/shenwei356/util/cliutil"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("quikr")

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to exit status.
func exitCode(err error) int {
	switch core.KindOf(err) {
	case core.InvalidArgument:
		return 2
	case core.MissingResource:
		return 3
	case core.EmptySample:
		return 4
	case core.SolverNonConvergence:
		return 5
	case core.IOFailure:
		return 6
	}
	return 1
}

func isStdin(file string) bool {
	return file == "-"
}

func isStdout(file string) bool {
	return file == "-"
}

// inputFiles returns the files given as arguments, followed by those listed
// in the file of -i/--infile-list. Without any, stdin ("-") is read.
func inputFiles(cmd *cobra.Command, args []string) ([]string, error) {
	const op = "input files"
	files := append(make([]string, 0, len(args)), args...)

	if listFile := getFlagString(cmd, "infile-list"); listFile != "" {
		listed, err := cliutil.GetFileListFromFile(listFile, false)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) || !fileExists(listFile) {
				return nil, core.Errorf(core.MissingResource, op, "file list not found: %s", listFile)
			}
			return nil, core.E(core.IOFailure, op, err)
		}
		if len(listed) == 0 {
			log.Warningf("no files found in file list: %s", listFile)
		}
		files = append(files, listed...)
	}

	if len(files) == 0 {
		return []string{"-"}, nil
	}
	for _, file := range files {
		if !isStdin(file) && !fileExists(file) {
			return nil, core.Errorf(core.MissingResource, op, "file not found: %s", file)
		}
	}
	return files, nil
}

func fileExists(file string) bool {
	existed, err := pathutil.Exists(file)
	return err == nil && existed
}
