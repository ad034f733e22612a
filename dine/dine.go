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

/*
Package dine runs the dining-philosophers scenario: N workers around a
ring of N shared forks, each repeating a think, acquire, eat, release
cycle for a configured number of cycles.

Deadlock is avoided by ordered acquisition: every philosopher locks the
lower-indexed of its two forks first (see [forkring]). Each philosopher
publishes its current phase through a [notify.Var], so a supervisor or a
test can observe live progress without touching the workers.
*/
package dine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
	"github.com/cockroachdb/field-eng-simtools/forkring"
	"github.com/cockroachdb/field-eng-simtools/notify"
)

// Config controls one dining run. The zero value of any field selects
// its default.
type Config struct {
	// Philosophers is the number of workers and forks. Default 5.
	Philosophers int
	// Cycles is how many think-eat cycles each philosopher performs
	// before terminating. Default 3.
	Cycles int
	// ThinkMin and ThinkMax bound the random think delay, in time
	// units, inclusive. Defaults 1 and 3.
	ThinkMin, ThinkMax int
	// Eat is the fixed eating duration in time units. Default 2.
	Eat int
	// Unit is the real duration of one time unit. Default one second;
	// tests use milliseconds.
	Unit time.Duration
	// Rand seeds the per-philosopher think-duration generators. Supply
	// a seeded source for reproducible runs. Defaults to a time-seeded
	// source.
	Rand *rand.Rand
	// Logger receives all emitted events. Defaults to a fresh clock
	// writing to os.Stdout.
	Logger *eventlog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.Philosophers == 0 {
		c.Philosophers = 5
	}
	if c.Cycles == 0 {
		c.Cycles = 3
	}
	if c.ThinkMin == 0 {
		c.ThinkMin = 1
	}
	if c.ThinkMax == 0 {
		c.ThinkMax = 3
	}
	if c.Eat == 0 {
		c.Eat = 2
	}
	if c.Unit == 0 {
		c.Unit = time.Second
	}
	switch {
	case c.Philosophers < 1:
		return c, fmt.Errorf("philosophers must be positive, got %d", c.Philosophers)
	case c.Cycles < 1:
		return c, fmt.Errorf("cycles must be positive, got %d", c.Cycles)
	case c.ThinkMin < 1:
		return c, fmt.Errorf("think-min must be positive, got %d", c.ThinkMin)
	case c.ThinkMax < c.ThinkMin:
		return c, fmt.Errorf("think range inverted: [%d,%d]", c.ThinkMin, c.ThinkMax)
	case c.Eat < 1:
		return c, fmt.Errorf("eat must be positive, got %d", c.Eat)
	case c.Unit < 0:
		return c, fmt.Errorf("unit must be positive, got %s", c.Unit)
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Logger == nil {
		c.Logger = eventlog.New(eventlog.NewClock(), os.Stdout)
	}
	return c, nil
}

// A Table owns the fork ring and the philosophers of one run. Construct
// with [NewTable], start with [Table.Start] or [Table.Run].
type Table struct {
	cfg   Config
	ring  *forkring.Ring
	seats []*philosopher
}

// NewTable validates the configuration and constructs the shared ring
// and one philosopher per seat. No goroutines are started.
func NewTable(cfg Config) (*Table, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	ring, err := forkring.New(cfg.Philosophers)
	if err != nil {
		return nil, err
	}
	t := &Table{cfg: cfg, ring: ring}
	for id := 0; id < cfg.Philosophers; id++ {
		// Each philosopher gets its own generator so think durations
		// are not a point of contention. Seeds are drawn from the
		// injected source, which keeps seeded runs reproducible.
		t.seats = append(t.seats, &philosopher{
			cfg:    cfg,
			id:     id,
			ring:   ring,
			rnd:    rand.New(rand.NewSource(cfg.Rand.Int63())),
			status: notify.VarOf(thinking),
		})
	}
	return t, nil
}

// Ring exposes the shared fork ring for observation.
func (t *Table) Ring() *forkring.Ring { return t.ring }

// Start spawns one goroutine per philosopher and returns their status
// outboxes in seat order. Start must be called at most once.
func (t *Table) Start() []*notify.Var[*Status] {
	outcomes := make([]*notify.Var[*Status], len(t.seats))
	for i, p := range t.seats {
		outcomes[i] = p.status
		go p.run()
	}
	return outcomes
}

// Run starts the table and blocks until every philosopher is done.
func (t *Table) Run(ctx context.Context) error {
	if err := Wait(ctx, t.Start()); err != nil {
		return err
	}
	t.cfg.Logger.Logf("all %d philosophers done", len(t.seats))
	return nil
}

// Run is a convenience wrapper: construct a table and run it.
func Run(ctx context.Context, cfg Config) error {
	t, err := NewTable(cfg)
	if err != nil {
		return err
	}
	return t.Run(ctx)
}

// Wait blocks until every status is terminal, returning the first error.
// The context bounds only the waiting; workers themselves have no
// cancellation points and always run to natural completion.
func Wait(ctx context.Context, outcomes []*notify.Var[*Status]) error {
outcome:
	for _, o := range outcomes {
		for {
			status, changed := o.Get()
			if err := status.Err(); err != nil {
				return err
			}
			if status.Done() {
				continue outcome
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// philosopher is the state machine for one worker. The run loop captures
// everything it needs; no state is shared beyond the ring and the logger.
type philosopher struct {
	cfg    Config
	id     int
	ring   *forkring.Ring
	rnd    *rand.Rand
	status *notify.Var[*Status]
}

func (p *philosopher) run() {
	left, right := p.ring.Pair(p.id)
	log := p.cfg.Logger.Logf

	for cycle := 1; cycle <= p.cfg.Cycles; cycle++ {
		p.status.Set(thinking)
		think := p.cfg.ThinkMin + p.rnd.Intn(p.cfg.ThinkMax-p.cfg.ThinkMin+1)
		log("philosopher %d thinking for %d time units (cycle %d of %d)",
			p.id, think, cycle, p.cfg.Cycles)
		p.sleep(think)

		p.status.Set(waiting)
		log("philosopher %d waiting for forks %d and %d", p.id, left, right)
		release := p.ring.AcquirePair(p.id, left, right, func(index int) {
			p.status.Set(holding)
			log("philosopher %d acquired fork %d", p.id, index)
		})

		p.status.Set(eating)
		log("philosopher %d eating for %d time units", p.id, p.cfg.Eat)
		p.sleep(p.cfg.Eat)

		release()
		log("philosopher %d released forks %d and %d", p.id, left, right)
	}

	log("philosopher %d done after %d cycles", p.id, p.cfg.Cycles)
	p.status.Set(done)
}

func (p *philosopher) sleep(units int) {
	time.Sleep(time.Duration(units) * p.cfg.Unit)
}
