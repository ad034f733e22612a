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

import "fmt"

// Status describes the phase a philosopher is currently in. Phase values
// are sentinel instances; comparing pointers is sufficient.
type Status struct {
	err error
}

// Sentinel instances of Status.
var (
	thinking = &Status{}
	waiting  = &Status{}
	holding  = &Status{}
	eating   = &Status{}
	done     = &Status{}
)

// StatusFor constructs a done status if err is nil. Otherwise, it returns
// a new Status object that reports the error.
func StatusFor(err error) *Status {
	if err == nil {
		return done
	}
	return &Status{err: err}
}

// Done returns true if the philosopher reached its terminal state,
// successfully or not.
func (s *Status) Done() bool {
	return s == done || s.err != nil
}

// Eating returns true while the philosopher holds both forks and is
// consuming its fixed eating duration.
func (s *Status) Eating() bool {
	return s == eating
}

// Err returns the error that terminated the philosopher, if any.
func (s *Status) Err() error {
	return s.err
}

// Holding returns true while the philosopher holds its first fork and is
// blocked on, or has just obtained, the second.
func (s *Status) Holding() bool {
	return s == holding
}

// Thinking returns true while the philosopher is in its think delay.
func (s *Status) Thinking() bool {
	return s == thinking
}

// Waiting returns true from the moment the philosopher requests forks
// until the first fork is held.
func (s *Status) Waiting() bool {
	return s == waiting
}

func (s *Status) String() string {
	switch s {
	case thinking:
		return "thinking"
	case waiting:
		return "waiting"
	case holding:
		return "holding"
	case eating:
		return "eating"
	case done:
		return "done"
	default:
		return fmt.Sprintf("error: %v", s.err)
	}
}
