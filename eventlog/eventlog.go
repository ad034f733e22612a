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

// Package eventlog provides the shared run clock and the serialized,
// timestamped output channel used by all simulation workers.
//
// Any number of goroutines may log through a single [Logger]; individual
// lines are never interleaved. The order of lines across workers reflects
// arrival order at the internal lock, not causal order between unrelated
// workers.
package eventlog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// A Clock is the process-wide monotonic start reference for a single
// simulation run. It is created at run start and is read-only thereafter.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock whose zero point is the moment of the call.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Elapsed returns the time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Stamp renders the elapsed time as seconds with exactly three decimal
// places, e.g. "2.041".
func (c *Clock) Stamp() string {
	return formatSeconds(c.Elapsed())
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// An Event is the structured form of one emitted log line. Events are
// handed to an observer registered via [Logger.SetObserver].
type Event struct {
	Seq     int64   // 1-based emission counter for the run's Logger.
	Elapsed float64 // Seconds since run start.
	Line    string  // The full rendered line, without trailing newline.
}

// A Logger writes timestamped lines to a single sink under mutual
// exclusion. The zero value is not usable; call [New].
//
// A Logger is internally synchronized and is safe for concurrent use.
type Logger struct {
	clock *Clock

	mu struct {
		sync.Mutex
		errSink  io.Writer
		observer func(Event)
		seq      int64
		sink     io.Writer
	}
}

// New constructs a Logger that stamps lines against the given clock and
// writes them to the given sink. Write failures on the sink are reported
// as warnings on [os.Stderr] and do not abort the run; see
// [Logger.SetErrorSink].
func New(clock *Clock, sink io.Writer) *Logger {
	l := &Logger{clock: clock}
	l.mu.sink = sink
	l.mu.errSink = os.Stderr
	return l
}

// Clock returns the clock the Logger stamps against.
func (l *Logger) Clock() *Clock { return l.clock }

// SetErrorSink replaces the writer that receives warnings about failed
// sink writes. This method should be called before the run starts.
func (l *Logger) SetErrorSink(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mu.errSink = w
}

// SetObserver registers a callback that receives every emitted [Event].
// The callback is invoked while the Logger's lock is held, so it must
// not call back into the Logger and should return quickly. This method
// should be called before the run starts.
func (l *Logger) SetObserver(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mu.observer = fn
}

// Logf formats a message and emits it as a single "[<elapsed>s] <text>"
// line. Concurrent calls never interleave within a line. The caller is
// blocked only for the duration of the write, never for any simulated
// work another worker may be performing.
func (l *Logger) Logf(format string, args ...any) {
	// Render outside the critical section; only the write is serialized.
	elapsed := l.clock.Elapsed()
	text := fmt.Sprintf(format, args...)
	line := "[" + formatSeconds(elapsed) + "s] " + text

	l.mu.Lock()
	defer l.mu.Unlock()
	l.mu.seq++
	if _, err := io.WriteString(l.mu.sink, line+"\n"); err != nil {
		// A lost line is a warning, not a run failure.
		fmt.Fprintf(l.mu.errSink, "eventlog: dropped line %d: %v\n", l.mu.seq, err)
	}
	if l.mu.observer != nil {
		l.mu.observer(Event{
			Seq:     l.mu.seq,
			Elapsed: elapsed.Seconds(),
			Line:    line,
		})
	}
}
