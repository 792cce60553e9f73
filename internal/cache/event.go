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

package cache

import "sync"

// EventType enumerates the observability events emitted by the cache engine
type EventType string

const (
	// EventHit is emitted when a get is satisfied by a tier
	EventHit EventType = "hit"
	// EventMiss is emitted when a get misses every tier
	EventMiss EventType = "miss"
	// EventSet is emitted when an entry is written to a tier
	EventSet EventType = "set"
	// EventDelete is emitted when a key is explicitly removed
	EventDelete EventType = "delete"
	// EventEviction is emitted when a tier completes an eviction pass
	EventEviction EventType = "eviction"
	// EventInvalidateTag is emitted by the notify-only tag invalidation hook
	EventInvalidateTag EventType = "invalidate_tag"
	// EventAnalytics is emitted periodically with a statistics snapshot
	EventAnalytics EventType = "analytics"
)

// Event describes a single observability event. Fields beyond Type are
// populated as relevant to each event type.
type Event struct {
	// Type is the event type
	Type EventType
	// Key is the subject cache key for hit/miss/set/delete events
	Key string
	// Tier names the tier ("memory", "filesystem", ...) the event concerns
	Tier string
	// Count is the number of affected entries for eviction events
	Count int
	// SizeBytes is the entry size for set events
	SizeBytes int64
	// Reason qualifies eviction events (ttl, size_bytes, size_objects)
	Reason string
	// Tag is the subject label for invalidate_tag events
	Tag string
	// Snapshot carries the engine statistics for analytics events
	Snapshot *Stats
}

// Listener is a registered observer callback. Listeners are invoked
// synchronously in subscription order and must not block.
type Listener func(Event)

// Notifier fans events out to registered listeners. The zero value is usable;
// a nil *Notifier discards all events.
type Notifier struct {
	mtx       sync.RWMutex
	seq       int
	listeners map[int]Listener
	order     []int
}

// NewNotifier returns a new Notifier
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[int]Listener)}
}

// Subscribe registers the listener and returns a function that removes the
// registration
func (n *Notifier) Subscribe(l Listener) func() {
	n.mtx.Lock()
	id := n.seq
	n.seq++
	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	n.listeners[id] = l
	n.order = append(n.order, id)
	n.mtx.Unlock()

	return func() {
		n.mtx.Lock()
		delete(n.listeners, id)
		for i, v := range n.order {
			if v == id {
				n.order = append(n.order[:i], n.order[i+1:]...)
				break
			}
		}
		n.mtx.Unlock()
	}
}

// Dispatch delivers the event to all registered listeners
func (n *Notifier) Dispatch(e Event) {
	if n == nil {
		return
	}
	n.mtx.RLock()
	ls := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		if l, ok := n.listeners[id]; ok {
			ls = append(ls, l)
		}
	}
	n.mtx.RUnlock()

	for _, l := range ls {
		l(e)
	}
}
