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

package bbolt

import (
	"bytes"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

func init() {
	metrics.Init()
}

func newTestConfig(t *testing.T) *config.CachingConfig {
	cfg := config.NewCachingConfig()
	cfg.Persistent.TierType = "bbolt"
	cfg.Persistent.BBolt.Filename = t.TempDir() + "/test.db"
	return cfg
}

func newTestCache(t *testing.T) *Cache {
	bc := New(newTestConfig(t), nil)
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bc.Close() })
	return bc
}

func TestConnectFailure(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Persistent.BBolt.Filename = "/dev/null/nodir/test.db"
	if err := New(cfg, nil).Connect(); err == nil {
		t.Error("expected connect error for unusable database path")
	}
}

func TestStoreRetrieve(t *testing.T) {
	bc := newTestCache(t)

	if err := bc.Store(cache.NewEntry("", []byte("data"))); err == nil {
		t.Error("expected error for empty key")
	}

	if err := bc.Store(cache.NewEntry("cacheKey", []byte("data"))); err != nil {
		t.Fatal(err)
	}

	e, err := bc.Retrieve("cacheKey")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(e.Value, []byte("data")) {
		t.Errorf("expected data got %s", e.Value)
	}

	if _, err := bc.Retrieve("absent"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestScanRebuild(t *testing.T) {
	cfg := newTestConfig(t)

	bc := New(cfg, nil)
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := bc.Store(cache.NewEntry("cacheKey", []byte("data"))); err != nil {
		t.Fatal(err)
	}
	bc.Close()

	bc2 := New(cfg, nil)
	if err := bc2.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bc2.Close() })

	if count, _ := bc2.Index.Totals(); count != 1 {
		t.Fatalf("expected 1 rebuilt object got %d", count)
	}
	e, err := bc2.Retrieve("cacheKey")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(e.Value, []byte("data")) {
		t.Errorf("expected data got %s", e.Value)
	}
}

func TestScanDropsUndecodableRecords(t *testing.T) {
	cfg := newTestConfig(t)

	bc := New(cfg, nil)
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	// plant a garbage record directly in the bucket
	bc.dbh.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cfg.Persistent.BBolt.Bucket)).
			Put([]byte("garbage"), []byte{0x7f, 0x01})
	})
	bc.Close()

	bc2 := New(cfg, nil)
	if err := bc2.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bc2.Close() })

	if count, _ := bc2.Index.Totals(); count != 0 {
		t.Errorf("expected 0 objects got %d", count)
	}
	if _, err := bc2.Retrieve("garbage"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestRetrieveCorruptRecord(t *testing.T) {
	bc := newTestCache(t)

	if err := bc.Store(cache.NewEntry("cacheKey", []byte("data"))); err != nil {
		t.Fatal(err)
	}
	bc.dbh.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bc.Config.Persistent.BBolt.Bucket)).
			Put([]byte("cacheKey"), []byte{0x7f, 0xff})
	})

	if _, err := bc.Retrieve("cacheKey"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
	if _, err := bc.Retrieve("cacheKey"); err != cache.ErrKNF {
		t.Errorf("expected record purged, got %v", err)
	}
}

func TestRetrieveExpired(t *testing.T) {
	bc := newTestCache(t)

	e := cache.NewEntry("cacheKey", []byte("data"))
	e.TTL = 50 * time.Millisecond
	if err := bc.Store(e); err != nil {
		t.Fatal(err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := bc.Retrieve("cacheKey"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	bc := newTestCache(t)

	bc.Store(cache.NewEntry("k1", []byte("data")))
	bc.Store(cache.NewEntry("k2", []byte("data")))

	if !bc.Remove("k1") {
		t.Error("expected removal of present key")
	}
	if bc.Remove("k1") {
		t.Error("expected no removal of absent key")
	}

	if err := bc.Clear(); err != nil {
		t.Fatal(err)
	}
	if count, _ := bc.Index.Totals(); count != 0 {
		t.Errorf("expected 0 objects got %d", count)
	}
	if _, err := bc.Retrieve("k2"); err != cache.ErrKNF {
		t.Errorf("expected ErrKNF got %v", err)
	}
}

func TestCapacityEviction(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Persistent.MaxSizeObjects = 5
	cfg.Persistent.MaxSizeBackoffObjects = 2

	bc := New(cfg, nil)
	if err := bc.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bc.Close() })

	for _, k := range []string{"k0", "k1", "k2", "k3", "k4", "k5"} {
		if err := bc.Store(cache.NewEntry(k, []byte("data"))); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	if count, _ := bc.Index.Totals(); count != 3 {
		t.Errorf("expected 3 objects after eviction got %d", count)
	}
	if _, err := bc.Retrieve("k0"); err != cache.ErrKNF {
		t.Errorf("expected k0 evicted, got %v", err)
	}
	if _, err := bc.Retrieve("k5"); err != nil {
		t.Errorf("expected k5 retained, got %v", err)
	}
}
