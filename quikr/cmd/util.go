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
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/EESI/quikr/quikr/cmd/core"
	"github.com/iafan/cwalk"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
	"github.com/twotwotwo/sorts/sortutil"
)

// Options contains the global flags
type Options struct {
	NumCPUs int
	Verbose bool

	LogFile  string
	Log2File bool

	Compress         bool
	CompressionLevel int
}

func getOptions(cmd *cobra.Command) *Options {
	threads := getFlagNonNegativeInt(cmd, "threads")
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	sorts.MaxProcs = threads
	runtime.GOMAXPROCS(threads)

	logfile := getFlagString(cmd, "log")
	return &Options{
		NumCPUs: threads,
		Verbose: !getFlagBool(cmd, "quiet"),

		LogFile:  logfile,
		Log2File: logfile != "",

		Compress:         true,
		CompressionLevel: -1,
	}
}

// prepareOutDir creates outDir, or empties it with force. A non-empty
// directory is not touched without force. The working directory is
// used as it is.
func prepareOutDir(outDir string, force bool) error {
	const op = "out-dir"
	pwd, _ := os.Getwd()
	if filepath.Clean(outDir) == "." || filepath.Clean(outDir) == pwd {
		return nil
	}

	existed, err := pathutil.DirExists(outDir)
	if err != nil {
		return core.E(core.InvalidArgument, op, errors.Wrap(err, outDir))
	}
	if existed {
		empty, err := pathutil.IsEmpty(outDir)
		if err != nil {
			return core.E(core.IOFailure, op, errors.Wrap(err, outDir))
		}
		if empty {
			return nil
		}
		if !force {
			return core.Errorf(core.InvalidArgument, op, "out-dir not empty: %s, use --force to overwrite", outDir)
		}
		log.Infof("removing old output directory: %s", outDir)
		if err = os.RemoveAll(outDir); err != nil {
			return core.E(core.IOFailure, op, errors.Wrap(err, outDir))
		}
	}
	if err = os.MkdirAll(outDir, 0777); err != nil {
		return core.E(core.IOFailure, op, errors.Wrap(err, outDir))
	}
	return nil
}

func getFileListFromDir(path string, pattern *regexp.Regexp, threads int) ([]string, error) {
	files := make([]string, 0, 512)
	ch := make(chan string, threads)
	done := make(chan int)
	go func() {
		for file := range ch {
			files = append(files, file)
		}
		done <- 1
	}()

	cwalk.NumWorkers = threads
	err := cwalk.WalkWithSymlinks(path, func(_path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && pattern.MatchString(info.Name()) {
			ch <- filepath.Join(path, _path)
		}
		return nil
	})
	close(ch)
	<-done
	if err != nil {
		return nil, err
	}

	// cwalk visits files concurrently
	sortutil.Strings(files)
	return files, nil
}

// filepathTrimExtension splits a sequence file name into its stem and
// extension, recognizing .gz after FASTA/FASTQ extensions.
func filepathTrimExtension(file string) (string, string) {
	gz := strings.HasSuffix(file, ".gz") || strings.HasSuffix(file, ".GZ")
	if gz {
		file = file[0 : len(file)-3]
	}

	fasta := strings.HasSuffix(file, ".fasta") || strings.HasSuffix(file, ".FASTA")
	fastq := strings.HasSuffix(file, ".fastq") || strings.HasSuffix(file, ".FASTQ")
	var name, extension string
	switch {
	case fasta:
		name, extension = file[0:len(file)-6], ".fasta"
	case fastq:
		name, extension = file[0:len(file)-6], ".fastq"
	default:
		// .fa, .fna, .fq and others
		extension = filepath.Ext(file)
		name = file[0 : len(file)-len(extension)]
	}
	if gz {
		extension += ".gz"
	}
	return name, extension
}

// sampleID names a sample after its file, without directory and
// sequence-format extensions.
func sampleID(file string) string {
	name, _ := filepathTrimExtension(filepath.Base(file))
	return name
}

// samplesFromFiles builds the sample list of a batch. Duplicated sample
// IDs are rejected since they would collide in the OTU table.
func samplesFromFiles(files []string) ([]core.Sample, error) {
	samples := make([]core.Sample, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, file := range files {
		id := sampleID(file)
		if prev, ok := seen[id]; ok {
			return nil, core.Errorf(core.InvalidArgument, "samples",
				"duplicated sample ID %q from files: %s, %s", id, prev, file)
		}
		seen[id] = file
		samples = append(samples, core.Sample{ID: id, File: file})
	}
	return samples, nil
}
