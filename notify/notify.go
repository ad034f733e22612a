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

// Package notify contains a utility for observing updates to a value.
package notify

import "sync"

// A Var is a thread-safe, observable variable. Readers receive the
// current value along with a channel that is closed on the next update,
// allowing them to block until something changes.
//
// The zero value is usable and holds the zero value of T.
type Var[T any] struct {
	mu struct {
		sync.Mutex
		changed chan struct{}
		value   T
	}
}

// VarOf returns a Var initialized to the given value.
func VarOf[T any](value T) *Var[T] {
	v := &Var[T]{}
	v.mu.value = value
	return v
}

// Get returns the current value and a channel that will be closed the
// next time the value is updated.
func (v *Var[T]) Get() (T, <-chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mu.changed == nil {
		v.mu.changed = make(chan struct{})
	}
	return v.mu.value, v.mu.changed
}

// Set replaces the value and wakes any goroutines blocked on a channel
// previously returned from [Var.Get].
func (v *Var[T]) Set(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mu.value = next
	if v.mu.changed != nil {
		close(v.mu.changed)
		v.mu.changed = nil
	}
}
