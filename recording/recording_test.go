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

package recording

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/field-eng-simtools/eventlog"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would otherwise get its own empty
	// in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db)
}

func TestRecorder(t *testing.T) {
	r := require.New(t)
	rec := testRecorder(t)

	r.NoError(rec.CreateTable("events", eventlog.Event{}))
	r.NoError(rec.Insert("events", eventlog.Event{Seq: 1, Elapsed: 0.001, Line: "[0.001s] a"}))
	r.NoError(rec.Insert("events", eventlog.Event{Seq: 2, Elapsed: 0.002, Line: "[0.002s] b"}))
	r.NoError(rec.Flush())

	var count int
	r.NoError(rec.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	r.Equal(2, count)

	var line string
	r.NoError(rec.db.QueryRow("SELECT line FROM events WHERE seq = 2").Scan(&line))
	r.Equal("[0.002s] b", line)

	// Flushing with nothing pending is a no-op.
	r.NoError(rec.Flush())
}

func TestInsertValidation(t *testing.T) {
	r := require.New(t)
	rec := testRecorder(t)

	r.ErrorContains(rec.Insert("nope", eventlog.Event{}), "no such table")

	type wrongShape struct{ A, B, C, D int }
	r.NoError(rec.CreateTable("events", eventlog.Event{}))
	r.ErrorContains(rec.Insert("events", wrongShape{}), "columns")
}

// The event sink keeps a queryable copy of exactly what the logger wrote.
func TestEventSink(t *testing.T) {
	r := require.New(t)
	rec := testRecorder(t)

	sink, err := EventSink(rec)
	r.NoError(err)

	var buf bytes.Buffer
	logger := eventlog.New(eventlog.NewClock(), &buf)
	logger.SetObserver(sink)

	logger.Logf("philosopher %d acquired fork %d", 2, 2)
	logger.Logf("philosopher %d eating for %d time units", 2, 2)
	r.NoError(rec.Flush())

	var count int
	r.NoError(rec.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	r.Equal(2, count)

	var line string
	r.NoError(rec.db.QueryRow("SELECT line FROM events WHERE seq = 1").Scan(&line))
	r.Contains(line, "philosopher 2 acquired fork 2")
}
