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

// Package recording persists emitted simulation events in a SQLite
// database so a run's output can be inspected after the fact. Inserts
// are buffered and flushed in batches; a final flush is registered to
// run at process exit.
package recording

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
)

const defaultBatchSize = 1024

// A Recorder stores rows extracted from flat structs, one table per
// entry type. It is internally synchronized and safe for concurrent use.
type Recorder struct {
	db   *sql.DB
	path string

	mu struct {
		sync.Mutex
		tables map[string]*table
	}
}

type table struct {
	columns []string
	pending [][]any
}

// New opens a Recorder backed by a SQLite database at path. An empty
// path selects a fresh, xid-suffixed file in the working directory. The
// file must not already exist.
func New(path string) (*Recorder, error) {
	if path == "" {
		path = "simtools_events_" + xid.New().String()
	}
	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("recording database %s already exists", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r := newWithDB(db)
	r.path = path
	return r, nil
}

// NewWithDB wraps an existing database handle, which the caller remains
// responsible for closing.
func NewWithDB(db *sql.DB) *Recorder {
	return newWithDB(db)
}

func newWithDB(db *sql.DB) *Recorder {
	r := &Recorder{db: db}
	r.mu.tables = make(map[string]*table)
	atexit.Register(func() { _ = r.Flush() })
	return r
}

// Path returns the database file path, if the Recorder opened one.
func (r *Recorder) Path() string { return r.path }

// CreateTable creates a table whose columns are the field names of the
// sample struct, lowercased.
func (r *Recorder) CreateTable(name string, sample any) error {
	columns := structs.Names(sample)
	for i := range columns {
		columns[i] = strings.ToLower(columns[i])
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(columns, ", "))
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.tables[name] = &table{columns: columns}
	return nil
}

// Insert buffers one entry for the named table. The entry must have the
// same shape as the sample passed to [Recorder.CreateTable]. The buffer
// is flushed once it reaches the batch size.
func (r *Recorder) Insert(name string, entry any) error {
	values := structs.Values(entry)

	r.mu.Lock()
	t, ok := r.mu.tables[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("no such table %s", name)
	}
	if len(values) != len(t.columns) {
		r.mu.Unlock()
		return fmt.Errorf("table %s wants %d columns, entry has %d",
			name, len(t.columns), len(values))
	}
	t.pending = append(t.pending, values)
	full := len(t.pending) >= defaultBatchSize
	r.mu.Unlock()

	if full {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered rows in a single transaction.
func (r *Recorder) Flush() error {
	// Swap the buffers out under the lock, write outside of it.
	r.mu.Lock()
	batches := make(map[string]*table, len(r.mu.tables))
	for name, t := range r.mu.tables {
		if len(t.pending) == 0 {
			continue
		}
		batches[name] = &table{columns: t.columns, pending: t.pending}
		t.pending = nil
	}
	r.mu.Unlock()

	if len(batches) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	for name, t := range batches {
		stmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
			name, strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", "))
		prepared, err := tx.Prepare(stmt)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("flush %s: %w", name, err)
		}
		for _, row := range t.pending {
			if _, err := prepared.Exec(row...); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("flush %s: %w", name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close flushes buffered rows and, if the Recorder opened the database,
// closes it.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	if r.path == "" {
		return nil
	}
	return r.db.Close()
}

// EventSink creates the events table and returns an observer suitable
// for [eventlog.Logger.SetObserver] that persists every emitted event.
// Insert failures are reported on stderr and do not disturb the run.
func EventSink(r *Recorder) (func(eventlog.Event), error) {
	if err := r.CreateTable("events", eventlog.Event{}); err != nil {
		return nil, err
	}
	return func(ev eventlog.Event) {
		if err := r.Insert("events", ev); err != nil {
			fmt.Fprintf(os.Stderr, "recording: dropped event %d: %v\n", ev.Seq, err)
		}
	}, nil
}
