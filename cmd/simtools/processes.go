// Copyright 2025 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cockroachdb/field-eng-simtools/procsim"
)

var processesCmd = &cobra.Command{
	Use:   "processes <file>",
	Short: "Run one concurrent worker per process record in the file.",
	Long: `Reads "<id> <burst_seconds>" records, one per non-empty line, and runs
every process as a concurrent worker occupying its burst. Any malformed
or non-positive record rejects the whole file before anything runs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		procs, err := procsim.ReadProcesses(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		logger, cleanup, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = cleanup() }()

		return procsim.Run(cmd.Context(), procsim.Config{
			Unit:   unit,
			Logger: logger,
		}, procs)
	},
}

func init() {
	rootCmd.AddCommand(processesCmd)
}
