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
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// readConfig reads a YAML run config on top of the default parameters.
// Keys absent in the file keep their default values. kSet tells whether
// the file sets the k-mer size.
func readConfig(file string) (cfg core.Config, kSet bool, err error) {
	cfg = core.DefaultConfig()

	file, err = homedir.Expand(file)
	if err != nil {
		return cfg, false, core.E(core.InvalidArgument, "config", errors.Wrap(err, file))
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, core.E(core.MissingResource, "config", errors.Wrap(err, file))
		}
		return cfg, false, core.E(core.IOFailure, "config", errors.Wrap(err, file))
	}
	if err = yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, false, core.E(core.InvalidArgument, "config", errors.Wrap(err, file))
	}

	var keys map[string]interface{}
	if err = yaml.Unmarshal(data, &keys); err != nil {
		return cfg, false, core.E(core.InvalidArgument, "config", errors.Wrap(err, file))
	}
	_, kSet = keys["kmer"]
	return cfg, kSet, nil
}

// expandPaths replaces a leading ~ in the paths of cfg.
func expandPaths(cfg *core.Config) error {
	for _, p := range []*string{&cfg.MatrixFile, &cfg.ReferenceFasta, &cfg.InputDir, &cfg.OutDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return core.E(core.InvalidArgument, "config", errors.Wrap(err, *p))
		}
		*p = expanded
	}
	return nil
}

// getConfig merges the config file given by --config with the command line.
// Flags set explicitly win over the file. kSet is false if neither gives
// the k-mer size, which is then left to the sensing matrix.
func getConfig(cmd *cobra.Command, opt *Options) (cfg core.Config, kSet bool) {
	cfg = core.DefaultConfig()
	cfg.Threads = opt.NumCPUs

	var err error
	fromFile := false
	if cmd.Flags().Lookup("config") != nil {
		if file := getFlagString(cmd, "config"); file != "" {
			cfg, kSet, err = readConfig(file)
			checkError(err)
			fromFile = true
		}
	}

	flags := cmd.Flags()
	use := func(flag string) bool {
		return flags.Lookup(flag) != nil && (!fromFile || flags.Changed(flag))
	}
	if use("kmer") {
		// 0 leaves k to the sensing matrix
		if k := getFlagNonNegativeInt(cmd, "kmer"); k > 0 {
			cfg.K = k
			kSet = true
		}
	}
	if use("lambda") {
		cfg.Lambda = getFlagPositiveFloat64(cmd, "lambda")
	}
	if use("sensing-matrix") {
		cfg.MatrixFile = getFlagString(cmd, "sensing-matrix")
	}
	if use("reference") {
		cfg.ReferenceFasta = getFlagString(cmd, "reference")
	}
	if use("input-dir") {
		cfg.InputDir = getFlagString(cmd, "input-dir")
	}
	if use("out-dir") {
		cfg.OutDir = getFlagString(cmd, "out-dir")
	}
	if use("all-or-nothing") {
		cfg.AllOrNothing = getFlagBool(cmd, "all-or-nothing")
	}
	if use("threads") {
		cfg.Threads = opt.NumCPUs
	}

	checkError(expandPaths(&cfg))
	checkError(cfg.Validate())
	return cfg, kSet
}

// matrixK takes the k-mer size from the sensing matrix unless it was
// given explicitly, in which case core.Batch checks that both agree.
func matrixK(cfg *core.Config, kSet bool, m *core.SensingMatrix) {
	if !kSet {
		cfg.K = m.K
	}
}
