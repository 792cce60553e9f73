/*
 * Copyright 2024 The TierCache Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package locks provides Named Locks functionality for managing
// mutexes by string name (e.g., cache keys).
package locks

import "sync"

type namedLock struct {
	mtx  sync.Mutex
	refs int
}

// NamedLocker manages a set of mutexes addressable by name. Locks are created
// on first acquisition and removed once the last holder releases.
type NamedLocker struct {
	locks   map[string]*namedLock
	mapLock sync.Mutex
}

// NewNamedLocker returns a new NamedLocker
func NewNamedLocker() *NamedLocker {
	return &NamedLocker{locks: make(map[string]*namedLock)}
}

// Acquire locks the named lock, and blocks until the lock is obtained
func (lk *NamedLocker) Acquire(lockName string) {
	if lockName == "" {
		return
	}
	lk.mapLock.Lock()
	nl, ok := lk.locks[lockName]
	if !ok {
		nl = &namedLock{}
		lk.locks[lockName] = nl
	}
	nl.refs++
	lk.mapLock.Unlock()

	nl.mtx.Lock()
}

// Release unlocks and releases the named lock
func (lk *NamedLocker) Release(lockName string) {
	if lockName == "" {
		return
	}
	lk.mapLock.Lock()
	nl, ok := lk.locks[lockName]
	if ok {
		nl.refs--
		if nl.refs == 0 {
			delete(lk.locks, lockName)
		}
	}
	lk.mapLock.Unlock()

	if ok {
		nl.mtx.Unlock()
	}
}
