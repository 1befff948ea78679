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

package smfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"gopkg.in/yaml.v2"
)

// InfoSuffix is appended to the matrix file name to name its sidecar.
const InfoSuffix = ".yml"

// InfoVersion is the version of the sidecar.
const InfoVersion uint8 = 1

// ErrInfoVersionMismatch indicates a sidecar written by another version.
var ErrInfoVersionMismatch = errors.New("quikr: sensing matrix info version mismatch")

// Info describes how a sensing matrix was trained.
type Info struct {
	Version     uint8  `yaml:"version"`
	Format      string `yaml:"format"`
	K           int    `yaml:"k"`
	NumTaxa     int    `yaml:"taxa"`
	Fingerprint string `yaml:"fingerprint"`
	Reference   string `yaml:"reference"`
	GroupBy     string `yaml:"group-by,omitempty"`
	Created     string `yaml:"created"`
}

func (i Info) String() string {
	return fmt.Sprintf("quikr sensing matrix (%s): k: %d, #taxa: %d, reference: %s",
		i.Format, i.K, i.NumTaxa, i.Reference)
}

// NewInfo creates an Info, stamped with the current time.
func NewInfo(format Format, k, numTaxa int, fingerprint uint64, reference string) Info {
	return Info{
		Version:     InfoVersion,
		Format:      format.String(),
		K:           k,
		NumTaxa:     numTaxa,
		Fingerprint: fmt.Sprintf("%016x", fingerprint),
		Reference:   reference,
		Created:     time.Now().Format(time.RFC3339),
	}
}

// InfoFile returns the sidecar path of a matrix file.
func InfoFile(matrixFile string) string {
	return matrixFile + InfoSuffix
}

// InfoFromFile reads a sidecar.
func InfoFromFile(file string) (Info, error) {
	info := Info{}

	data, err := os.ReadFile(file)
	if err != nil {
		return info, errors.Wrapf(err, "fail to read sensing matrix info file: %s", file)
	}
	if err = yaml.Unmarshal(data, &info); err != nil {
		return info, errors.Wrapf(err, "fail to unmarshal sensing matrix info: %s", file)
	}
	if info.Version != InfoVersion {
		return info, ErrInfoVersionMismatch
	}
	return info, nil
}

// WriteTo dumps Info to file.
func (i Info) WriteTo(file string) (int, error) {
	data, err := yaml.Marshal(i)
	if err != nil {
		return 0, errors.Wrap(err, "fail to marshal sensing matrix info")
	}

	dir := filepath.Dir(file)
	existed, err := pathutil.DirExists(dir)
	if err != nil {
		return 0, err
	}
	if !existed {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return 0, err
		}
	}

	if err = os.WriteFile(file, data, 0644); err != nil {
		return 0, errors.Wrapf(err, "fail to write sensing matrix info file: %s", file)
	}
	return len(data), nil
}
