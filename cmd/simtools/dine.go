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
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/cockroachdb/field-eng-simtools/dine"
)

var (
	philosophers int
	cycles       int
	thinkMin     int
	thinkMax     int
	eat          int
	seed         int64

	dineCmd = &cobra.Command{
		Use:   "dine",
		Short: "Run the dining-philosophers scenario with ordered fork acquisition.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, cleanup, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			cfg := dine.Config{
				Philosophers: philosophers,
				Cycles:       cycles,
				ThinkMin:     thinkMin,
				ThinkMax:     thinkMax,
				Eat:          eat,
				Unit:         unit,
				Logger:       logger,
			}
			if seed != 0 {
				cfg.Rand = rand.New(rand.NewSource(seed))
			}
			return dine.Run(cmd.Context(), cfg)
		},
	}
)

func init() {
	dineCmd.Flags().IntVar(&philosophers, "philosophers", 5, "number of philosophers and forks")
	dineCmd.Flags().IntVar(&cycles, "cycles", 3, "think-eat cycles per philosopher")
	dineCmd.Flags().IntVar(&thinkMin, "think-min", 1, "minimum think delay in time units")
	dineCmd.Flags().IntVar(&thinkMax, "think-max", 3, "maximum think delay in time units")
	dineCmd.Flags().IntVar(&eat, "eat", 2, "eating duration in time units")
	dineCmd.Flags().Int64Var(&seed, "seed", 0, "seed for reproducible think delays (0 = time-seeded)")
	rootCmd.AddCommand(dineCmd)
}
