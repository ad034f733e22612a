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

package procsim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrBadRecord tags all record-validation failures from [ReadProcesses].
var ErrBadRecord = errors.New("bad process record")

func badRecordf(line int, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", line, fmt.Sprintf(format, args...), ErrBadRecord)
}

// ReadProcesses parses one process record per non-empty line, each two
// whitespace-separated positive integers: "<id> <burst_seconds>".
//
// Validation is all-or-nothing: a malformed line, a non-positive value,
// or a duplicate id rejects the entire batch, so the simulation never
// sees partially-valid input. Empty input is a legal, empty batch.
func ReadProcesses(r io.Reader) ([]Process, error) {
	var procs []Process
	seen := make(map[int]int) // pid -> first line number

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, badRecordf(lineNo, "want 2 fields, got %d", len(fields))
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, badRecordf(lineNo, "process id %q is not an integer", fields[0])
		}
		burst, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, badRecordf(lineNo, "burst time %q is not an integer", fields[1])
		}
		if pid <= 0 {
			return nil, badRecordf(lineNo, "process id must be positive, got %d", pid)
		}
		if burst <= 0 {
			return nil, badRecordf(lineNo, "burst time must be positive, got %d", burst)
		}
		if first, dup := seen[pid]; dup {
			return nil, badRecordf(lineNo, "duplicate process id %d (first seen on line %d)", pid, first)
		}
		seen[pid] = lineNo
		procs = append(procs, Process{PID: pid, Burst: burst})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading process records: %w", err)
	}
	return procs, nil
}
