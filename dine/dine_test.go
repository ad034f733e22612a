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

package dine

import (
	"bytes"
	"context"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
)

// syncBuffer lets the sampling tests read the log while workers write it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(sink *syncBuffer, seed int64) Config {
	return Config{
		Unit:   time.Millisecond,
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: eventlog.New(eventlog.NewClock(), sink),
	}
}

var eventPattern = regexp.MustCompile(
	`^\[\d+\.\d{3}s\] philosopher (\d+) (thinking|waiting|acquired|eating|released|done)`)

// event is one parsed log line attributed to a philosopher.
type event struct {
	phase string
	// fork is set for acquired events.
	fork int
}

func parseEvents(t *testing.T, output string) map[int][]event {
	t.Helper()
	r := require.New(t)
	byID := make(map[int][]event)
	acquired := regexp.MustCompile(`acquired fork (\d+)$`)
	for _, line := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		m := eventPattern.FindStringSubmatch(line)
		if m == nil {
			continue // driver summary line
		}
		id, err := strconv.Atoi(m[1])
		r.NoError(err)
		ev := event{phase: m[2]}
		if m[2] == "acquired" {
			fm := acquired.FindStringSubmatch(line)
			r.NotNil(fm, "unparseable acquire: %s", line)
			ev.fork, err = strconv.Atoi(fm[1])
			r.NoError(err)
		}
		byID[id] = append(byID[id], ev)
	}
	return byID
}

// A full run must show every philosopher walking the exact phase
// sequence thinking, waiting, acquired(first), acquired(second), eating,
// released for every cycle, then one completion event, with the lower
// fork index always acquired strictly first.
func TestPhaseSequence(t *testing.T) {
	const n = 5
	const cycles = 3
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var sink syncBuffer
	cfg := testConfig(&sink, 1)
	cfg.Philosophers = n
	cfg.Cycles = cycles

	r.NoError(Run(ctx, cfg))

	byID := parseEvents(t, sink.String())
	r.Len(byID, n)
	for id := 0; id < n; id++ {
		events := byID[id]
		r.Len(events, 6*cycles+1, "philosopher %d", id)
		for c := 0; c < cycles; c++ {
			cycle := events[6*c : 6*c+6]
			r.Equal("thinking", cycle[0].phase)
			r.Equal("waiting", cycle[1].phase)
			r.Equal("acquired", cycle[2].phase)
			r.Equal("acquired", cycle[3].phase)
			r.Less(cycle[2].fork, cycle[3].fork,
				"philosopher %d cycle %d acquired out of order", id, c)
			r.Equal("eating", cycle[4].phase)
			r.Equal("released", cycle[5].phase)
		}
		r.Equal("done", events[6*cycles].phase)
	}
}

// The degenerate one-philosopher table has left == right; the single
// fork must be taken once per cycle, not twice.
func TestSinglePhilosopher(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var sink syncBuffer
	cfg := testConfig(&sink, 1)
	cfg.Philosophers = 1
	cfg.Cycles = 2

	r.NoError(Run(ctx, cfg))

	events := parseEvents(t, sink.String())[0]
	var acquires int
	for _, ev := range events {
		if ev.phase == "acquired" {
			acquires++
		}
	}
	r.Equal(cfg.Cycles, acquires)
	r.Equal("done", events[len(events)-1].phase)
}

// Deadlock-freedom, observed as bounded completion: the whole run must
// finish well within a small multiple of (think_max + eat) * cycles.
func TestBoundedCompletion(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var sink syncBuffer
	cfg := testConfig(&sink, 42)
	cfg.Philosophers = 5
	cfg.Cycles = 3
	cfg.ThinkMin, cfg.ThinkMax = 1, 3
	cfg.Eat = 2

	start := time.Now()
	r.NoError(Run(ctx, cfg))
	elapsed := time.Since(start)

	// Worst case per cycle is thinking (3) plus waiting out every other
	// eater in a fork chain plus eating (2). 100x leaves room for slow
	// CI machines while still catching a deadlock (the ctx would fire).
	bound := 100 * time.Duration(cfg.Cycles) * time.Duration(cfg.ThinkMax+cfg.Eat) * cfg.Unit
	r.Less(elapsed, bound)
}

// Sample the ring while the run is live: a fork must never report a
// holder outside the seat range, and every outcome must reach done.
func TestLiveSampling(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var sink syncBuffer
	cfg := testConfig(&sink, 7)
	cfg.Philosophers = 5
	cfg.Cycles = 2

	table, err := NewTable(cfg)
	r.NoError(err)
	outcomes := table.Start()

	doneCh := make(chan error, 1)
	go func() { doneCh <- Wait(ctx, outcomes) }()

sample:
	for {
		for i := 0; i < cfg.Philosophers; i++ {
			holder, held := table.Ring().Holder(i)
			if held {
				r.GreaterOrEqual(holder, 0)
				r.Less(holder, cfg.Philosophers)
			}
		}
		select {
		case err := <-doneCh:
			r.NoError(err)
			break sample
		default:
			time.Sleep(100 * time.Microsecond)
		}
	}

	for i, o := range outcomes {
		status, _ := o.Get()
		r.True(status.Done(), "philosopher %d: %s", i, status)
		r.NoError(status.Err())
	}
}

// Two tables built from equally-seeded sources must draw identical
// think durations for every philosopher.
func TestSeededRunsAreReproducible(t *testing.T) {
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	thinkDurations := func(seed int64) map[int][]string {
		var sink syncBuffer
		cfg := testConfig(&sink, seed)
		cfg.Philosophers = 5
		cfg.Cycles = 3
		r.NoError(Run(ctx, cfg))

		thinking := regexp.MustCompile(`philosopher (\d+) thinking for (\d+) time units`)
		out := make(map[int][]string)
		for _, line := range strings.Split(sink.String(), "\n") {
			if m := thinking.FindStringSubmatch(line); m != nil {
				id, err := strconv.Atoi(m[1])
				r.NoError(err)
				out[id] = append(out[id], m[2])
			}
		}
		return out
	}

	r.Equal(thinkDurations(99), thinkDurations(99))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative philosophers", Config{Philosophers: -1}},
		{"negative cycles", Config{Cycles: -2}},
		{"negative eat", Config{Eat: -1}},
		{"inverted think range", Config{ThinkMin: 5, ThinkMax: 2}},
		{"negative think min", Config{ThinkMin: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTable(tc.cfg)
			require.Error(t, err)
		})
	}
}

func TestDefaults(t *testing.T) {
	r := require.New(t)
	cfg, err := Config{}.withDefaults()
	r.NoError(err)
	r.Equal(5, cfg.Philosophers)
	r.Equal(3, cfg.Cycles)
	r.Equal(1, cfg.ThinkMin)
	r.Equal(3, cfg.ThinkMax)
	r.Equal(2, cfg.Eat)
	r.Equal(time.Second, cfg.Unit)
	r.NotNil(cfg.Rand)
	r.NotNil(cfg.Logger)
}
