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
Package forkring models a fixed-size ring of mutually-exclusive, reusable
resources and the ordered acquisition discipline that makes holding two
adjacent resources deadlock-free.

Each resource ("fork") is an exclusive lock identified by a 0-based index.
A worker that needs the pair of forks adjacent to seat id always locks the
numerically lower index before the higher one. Because every worker's
acquisition order agrees with the global index order, no cycle of workers
can form in which each holds one fork and waits on the next: the worker
whose pair contains the highest index in any candidate cycle only blocks
on forks held by workers that are not themselves blocked.

Deadlock-freedom is the only liveness claim. Lock handoff has no fairness
guarantee, so starvation of an individual worker is not ruled out.
*/
package forkring

import (
	"fmt"
	"sync"
)

// noHolder marks a fork with no current holder in the instrumentation map.
const noHolder = -1

// A Ring is a fixed collection of forks sized at construction. It also
// tracks, for observability, which worker currently holds each fork.
//
// A Ring is internally synchronized and is safe for concurrent use. A
// Ring should not be copied after it has been created.
type Ring struct {
	forks []sync.Mutex

	mu struct {
		sync.Mutex
		holders []int
	}
}

// New constructs a Ring of n forks. A ring of one fork is legal; the pair
// acquisition path collapses to a single lock in that case.
func New(n int) (*Ring, error) {
	if n < 1 {
		return nil, fmt.Errorf("ring size must be at least 1, got %d", n)
	}
	r := &Ring{forks: make([]sync.Mutex, n)}
	r.mu.holders = make([]int, n)
	for i := range r.mu.holders {
		r.mu.holders[i] = noHolder
	}
	return r, nil
}

// Len returns the number of forks in the ring.
func (r *Ring) Len() int { return len(r.forks) }

// Pair returns the fork indices adjacent to seat id: the seat's own index
// and its clockwise neighbor.
func (r *Ring) Pair(id int) (left, right int) {
	if id < 0 || id >= len(r.forks) {
		panic(fmt.Sprintf("seat %d out of range [0,%d)", id, len(r.forks)))
	}
	return id, (id + 1) % len(r.forks)
}

// Acquire blocks until the fork at index is exclusively held by worker.
func (r *Ring) Acquire(worker, index int) {
	r.forks[index].Lock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if h := r.mu.holders[index]; h != noHolder {
		panic(fmt.Sprintf("fork %d acquired while held by worker %d", index, h))
	}
	r.mu.holders[index] = worker
}

// Release makes the fork at index available to the next blocked acquirer.
// Releasing a fork the worker does not hold is an invariant violation.
func (r *Ring) Release(worker, index int) {
	r.mu.Lock()
	if h := r.mu.holders[index]; h != worker {
		r.mu.Unlock()
		panic(fmt.Sprintf("worker %d released fork %d held by %d", worker, index, h))
	}
	r.mu.holders[index] = noHolder
	r.mu.Unlock()
	r.forks[index].Unlock()
}

// AcquirePair blocks until worker holds both forks, always locking the
// lower index first. When left == right (a one-fork ring) the single fork
// is locked exactly once. After each successful acquisition, onAcquire is
// invoked with the index just locked; it may be nil.
//
// The returned release function frees every fork the call acquired. It is
// idempotent, and release order cannot create a new wait condition since
// release never blocks.
func (r *Ring) AcquirePair(worker, left, right int, onAcquire func(index int)) (release func()) {
	first, second := left, right
	if first > second {
		first, second = second, first
	}

	r.Acquire(worker, first)
	if onAcquire != nil {
		onAcquire(first)
	}
	if first != second {
		r.Acquire(worker, second)
		if onAcquire != nil {
			onAcquire(second)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.Release(worker, first)
			if first != second {
				r.Release(worker, second)
			}
		})
	}
}

// Holder reports the worker currently holding the fork at index. The
// second return value is false if the fork is free.
func (r *Ring) Holder(index int) (worker int, held bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.mu.holders[index]
	return h, h != noHolder
}
