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

import "testing"

func TestNotifierDispatch(t *testing.T) {
	n := NewNotifier()

	var got []Event
	unsubscribe := n.Subscribe(func(e Event) { got = append(got, e) })

	n.Dispatch(Event{Type: EventSet, Key: "k1", Tier: "memory"})
	n.Dispatch(Event{Type: EventHit, Key: "k1", Tier: "memory"})

	if len(got) != 2 {
		t.Fatalf("expected 2 events got %d", len(got))
	}
	if got[0].Type != EventSet || got[1].Type != EventHit {
		t.Errorf("events delivered out of order: %v", got)
	}

	unsubscribe()
	n.Dispatch(Event{Type: EventMiss, Key: "k1"})
	if len(got) != 2 {
		t.Errorf("expected no delivery after unsubscribe, got %d events", len(got))
	}
}

func TestNotifierMultipleListeners(t *testing.T) {
	n := NewNotifier()

	var a, b int
	n.Subscribe(func(Event) { a++ })
	n.Subscribe(func(Event) { b++ })

	n.Dispatch(Event{Type: EventDelete, Key: "k1"})
	if a != 1 || b != 1 {
		t.Errorf("expected both listeners invoked once, got %d and %d", a, b)
	}
}

func TestNotifierNilSafe(t *testing.T) {
	var n *Notifier
	// must not panic
	n.Dispatch(Event{Type: EventSet, Key: "k1"})
}
