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

package memory

import (
	"bytes"
	"testing"
	"time"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

func init() {
	metrics.Init()
}

func newTestCache(t *testing.T) *Cache {
	cfg := config.NewCachingConfig()
	mc := New(cfg, nil)
	if err := mc.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mc.Close() })
	return mc
}

func TestConfiguration(t *testing.T) {
	mc := newTestCache(t)
	if mc.Configuration() == nil {
		t.Error("expected non-nil configuration")
	}
	if mc.Type() != "memory" {
		t.Errorf("expected memory got %s", mc.Type())
	}
}

func TestConnectInvalidPolicy(t *testing.T) {
	cfg := config.NewCachingConfig()
	cfg.Memory.EvictionPolicy = "bogus"
	if err := New(cfg, nil).Connect(); err == nil {
		t.Error("expected error for invalid eviction policy")
	}
}

func TestStoreRetrieve(t *testing.T) {
	mc := newTestCache(t)

	if err := mc.Store(cache.NewEntry("", []byte("data"))); err == nil {
		t.Error("expected error for empty key")
	}

	if err := mc.Store(cache.NewEntry("cacheKey", []byte("data"))); err != nil {
		t.Fatal(err)
	}

	e, err := mc.Retrieve("cacheKey")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(e.Value, []byte("data")) {
		t.Errorf("expected data got %s", e.Value)
	}

	if _, err := mc.Retrieve("absent"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestRetrieveExpired(t *testing.T) {
	mc := newTestCache(t)

	e := cache.NewEntry("cacheKey", []byte("data"))
	e.TTL = 50 * time.Millisecond
	if err := mc.Store(e); err != nil {
		t.Fatal(err)
	}

	if _, err := mc.Retrieve("cacheKey"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(60 * time.Millisecond)

	// lazily removed on access even though the reaper has not run
	if _, err := mc.Retrieve("cacheKey"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
	if count, _ := mc.Index.Totals(); count != 0 {
		t.Errorf("expected 0 objects got %d", count)
	}
}

func TestRemove(t *testing.T) {
	mc := newTestCache(t)

	mc.Store(cache.NewEntry("cacheKey", []byte("data")))
	if !mc.Remove("cacheKey") {
		t.Error("expected removal of present key")
	}
	if mc.Remove("cacheKey") {
		t.Error("expected no removal of absent key")
	}
	if _, err := mc.Retrieve("cacheKey"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestClear(t *testing.T) {
	mc := newTestCache(t)

	mc.Store(cache.NewEntry("k1", []byte("data")))
	mc.Store(cache.NewEntry("k2", []byte("data")))
	if err := mc.Clear(); err != nil {
		t.Fatal(err)
	}
	if count, _ := mc.Index.Totals(); count != 0 {
		t.Errorf("expected 0 objects got %d", count)
	}
}

func TestCapacityEviction(t *testing.T) {
	cfg := config.NewCachingConfig()
	cfg.Memory.MaxSizeObjects = 10
	cfg.Memory.EvictionBatchFraction = 0.1
	mc := New(cfg, nil)
	if err := mc.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mc.Close() })

	keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"}
	for _, k := range keys {
		if err := mc.Store(cache.NewEntry(k, []byte("data"))); err != nil {
			t.Fatal(err)
		}
	}

	// k0 is never accessed again; the rest are, so the smart policy should
	// pick k0 when the next store pushes the tier over capacity
	time.Sleep(5 * time.Millisecond)
	for _, k := range keys[1:] {
		if _, err := mc.Retrieve(k); err != nil {
			t.Fatal(err)
		}
	}

	if err := mc.Store(cache.NewEntry("overflow", []byte("data"))); err != nil {
		t.Fatal(err)
	}

	if _, err := mc.Retrieve("k0"); err != cache.ErrKNF {
		t.Errorf("expected k0 evicted, got %v", err)
	}
	if _, err := mc.Retrieve("overflow"); err != nil {
		t.Errorf("expected overflow stored, got %v", err)
	}
	if count, _ := mc.Index.Totals(); count != 10 {
		t.Errorf("expected 10 objects got %d", count)
	}
}

func TestEventDispatch(t *testing.T) {
	n := cache.NewNotifier()
	var events []cache.Event
	n.Subscribe(func(e cache.Event) { events = append(events, e) })

	cfg := config.NewCachingConfig()
	mc := New(cfg, n)
	if err := mc.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mc.Close() })

	mc.Store(cache.NewEntry("cacheKey", []byte("data")))
	mc.Remove("cacheKey")

	if len(events) != 2 {
		t.Fatalf("expected 2 events got %d", len(events))
	}
	if events[0].Type != cache.EventSet || events[0].Tier != "memory" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != cache.EventDelete || events[1].Key != "cacheKey" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}
