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

// Package procsim runs a batch of simulated CPU bursts, one concurrent
// worker per process. A process occupies its burst as a blocking delay
// and has no shared resources, so the batch's wall time approaches the
// longest burst rather than the sum.
package procsim

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
)

// A Process is one validated work unit: a positive id and a positive
// burst duration in time units.
type Process struct {
	PID   int
	Burst int
}

// Config controls one batch run.
type Config struct {
	// Unit is the real duration of one time unit. Default one second.
	Unit time.Duration
	// Logger receives all emitted events. Defaults to a fresh clock
	// writing to os.Stdout.
	Logger *eventlog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.Unit == 0 {
		c.Unit = time.Second
	}
	if c.Unit < 0 {
		return c, fmt.Errorf("unit must be positive, got %s", c.Unit)
	}
	if c.Logger == nil {
		c.Logger = eventlog.New(eventlog.NewClock(), os.Stdout)
	}
	return c, nil
}

// Run executes every process concurrently and returns once all of them
// have finished. An empty batch is a legal, trivial run. The caller is
// expected to hand over only validated processes (see [ReadProcesses]);
// a non-positive burst is rejected here as a configuration error before
// any worker is spawned.
//
// Started workers have no cancellation points and always run to
// completion; ctx is accepted for API symmetry with the dining driver.
func Run(ctx context.Context, cfg Config, procs []Process) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	for _, p := range procs {
		if p.PID <= 0 || p.Burst <= 0 {
			return fmt.Errorf("invalid process record %+v", p)
		}
	}

	var g errgroup.Group
	for _, p := range procs {
		p := p
		g.Go(func() error {
			cfg.Logger.Logf("process %d started, burst %d time units", p.PID, p.Burst)
			// The burst is a blocking delay with no cancellation point;
			// a started process always runs to completion.
			time.Sleep(time.Duration(p.Burst) * cfg.Unit)
			cfg.Logger.Logf("process %d finished", p.PID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	cfg.Logger.Logf("all %d processes finished", len(procs))
	return nil
}
