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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
	"github.com/cockroachdb/field-eng-simtools/recording"
)

var (
	recordPath string
	unit       time.Duration

	rootCmd = &cobra.Command{
		Use:          "simtools",
		Short:        "simtools runs concurrent operating-system scenario simulations.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&recordPath, "record", "",
		"record emitted events into a SQLite database at this path")
	rootCmd.PersistentFlags().DurationVar(&unit, "unit", time.Second,
		"real duration of one simulated time unit")
}

// newLogger builds the run logger and, when --record is set, tees every
// event into a recorder. The returned cleanup flushes and closes it.
func newLogger() (*eventlog.Logger, func() error, error) {
	logger := eventlog.New(eventlog.NewClock(), os.Stdout)
	if recordPath == "" {
		return logger, func() error { return nil }, nil
	}
	rec, err := recording.New(recordPath)
	if err != nil {
		return nil, nil, err
	}
	sink, err := recording.EventSink(rec)
	if err != nil {
		_ = rec.Close()
		return nil, nil, err
	}
	logger.SetObserver(sink)
	return logger, rec.Close, nil
}
