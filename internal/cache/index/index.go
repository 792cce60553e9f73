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

// Package index defines the TierCache tier metadata index
package index

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/policy"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

// Object contains metadata about an item in a cache tier
type Object struct {
	// Key represents the logical cache key of the Object
	Key string
	// Locator identifies the backing record (e.g., a data file name) for
	// durable tiers; empty for the memory tier
	Locator string
	// Size is the estimated size of the Object in bytes
	Size int64
	// Priority is the caller-declared importance of the Object
	Priority int64
	// Tags are the caller-declared grouping labels of the Object
	Tags []string
	// CreatedAt is the time the Object was created by set
	CreatedAt time.Time
	// Expiration represents the time that the Object expires from cache;
	// the zero time means the Object does not expire
	Expiration time.Time
	// LastWrite is the time the Object was last written
	LastWrite time.Time
	// LastAccess is the time the Object was last accessed
	LastAccess time.Time
	// AccessCount is the number of times the Object has been accessed
	AccessCount int64

	// Entry holds the cached value by reference for the memory tier, so a
	// present key is resolvable with zero I/O. Durable tiers leave it nil.
	Entry *cache.Entry
}

// expired reports whether the object's expiration has elapsed
func (o *Object) expired(now time.Time) bool {
	return !o.Expiration.IsZero() && o.Expiration.Before(now)
}

// Options configures an Index's retention enforcement
type Options struct {
	// MaxSizeObjects caps the number of objects tracked; zero disables the cap
	MaxSizeObjects int64
	// MaxSizeBackoffObjects is how far under MaxSizeObjects a need-based
	// eviction exercise drives the object count
	MaxSizeBackoffObjects int64
	// MaxSizeBytes caps the cumulative object bytes tracked; zero disables the cap
	MaxSizeBytes int64
	// MaxSizeBackoffBytes is how far under MaxSizeBytes a need-based eviction
	// exercise drives the cumulative size
	MaxSizeBackoffBytes int64
	// BatchFraction, when positive, evicts that fraction of current entries
	// per capacity-driven pass instead of the need-based amount
	BatchFraction float64
	// ReapInterval is how long the maintenance sweep sleeps between cycles;
	// zero disables background maintenance
	ReapInterval time.Duration
	// Ranker orders eviction candidates, most evictable first
	Ranker policy.Ranker
}

// Index maintains metadata about a cache tier where retention enforcement is
// managed internally, like memory or filesystem records. All mutations happen
// under the per-tier exclusive lock; the background maintenance sweep
// acquires the same lock as foreground operations.
type Index struct {
	mtx         sync.RWMutex
	objects     map[string]*Object
	cacheSize   int64
	objectCount int64

	name     string
	tierType string
	opts     Options

	// bulkRemove deletes backing records for evicted keys. It must not call
	// back into the Index.
	bulkRemove func(keys []string)
	notifier   *cache.Notifier
	cancel     context.CancelFunc
}

// NewIndex returns a new Index for the named tier and starts its maintenance
// sweep when a reap interval is configured
func NewIndex(cacheName, tierType string, o Options, bulkRemove func([]string),
	notifier *cache.Notifier) *Index {

	idx := &Index{
		objects:    make(map[string]*Object),
		name:       cacheName,
		tierType:   tierType,
		opts:       o,
		bulkRemove: bulkRemove,
		notifier:   notifier,
	}

	ctx, cancel := context.WithCancel(context.Background())
	idx.cancel = cancel

	if o.ReapInterval > 0 {
		go idx.reaper(ctx)
	} else {
		log.Warn("cache reaper did not start",
			log.Pairs{"cacheName": cacheName, "tierType": tierType, "reapInterval": o.ReapInterval})
	}

	metrics.CacheMaxObjects.WithLabelValues(cacheName, tierType).Set(float64(o.MaxSizeObjects))
	metrics.CacheMaxBytes.WithLabelValues(cacheName, tierType).Set(float64(o.MaxSizeBytes))

	return idx
}

// Close stops the Index's background maintenance
func (idx *Index) Close() {
	idx.cancel()
}

// Load replaces the Index contents with objects reconstructed from a scan of
// the backing storage
func (idx *Index) Load(objects []*Object) {
	idx.mtx.Lock()
	idx.objects = make(map[string]*Object, len(objects))
	idx.cacheSize = 0
	idx.objectCount = 0
	for _, o := range objects {
		if _, ok := idx.objects[o.Key]; ok {
			continue
		}
		idx.objects[o.Key] = o
		idx.cacheSize += o.Size
		idx.objectCount++
	}
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()
	cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
}

// UpdateObject writes or updates the Index metadata for the provided Object
func (idx *Index) UpdateObject(o *Object) {
	if o.Key == "" {
		return
	}

	now := time.Now()
	o.LastWrite = now
	o.LastAccess = now

	idx.mtx.Lock()
	if old, ok := idx.objects[o.Key]; ok {
		idx.cacheSize += o.Size - old.Size
		o.AccessCount = old.AccessCount
	} else {
		idx.cacheSize += o.Size
		idx.objectCount++
	}
	idx.objects[o.Key] = o
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()

	cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
}

// GetObject returns the Object for the provided key, when present
func (idx *Index) GetObject(key string) (*Object, bool) {
	idx.mtx.RLock()
	o, ok := idx.objects[key]
	idx.mtx.RUnlock()
	return o, ok
}

// GetExpiration returns the Index's expiration for the object of the given key
func (idx *Index) GetExpiration(key string) time.Time {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()
	if o, ok := idx.objects[key]; ok {
		return o.Expiration
	}
	return time.Time{}
}

// UpdateObjectAccessTime updates the LastAccess and AccessCount for the
// object with the provided key
func (idx *Index) UpdateObjectAccessTime(key string) {
	idx.mtx.Lock()
	if o, ok := idx.objects[key]; ok {
		o.LastAccess = time.Now()
		o.AccessCount++
	}
	idx.mtx.Unlock()
}

// RemoveObject removes an Object's metadata from the Index, reporting the
// removed Object's size and whether anything was removed
func (idx *Index) RemoveObject(key string) (int64, bool) {
	idx.mtx.Lock()
	o, ok := idx.objects[key]
	var removedSize int64
	if ok {
		removedSize = o.Size
		idx.cacheSize -= o.Size
		idx.objectCount--
		delete(idx.objects, key)
	}
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()

	if ok {
		cache.ObserveCacheDel(idx.name, idx.tierType, float64(removedSize))
		cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
	}
	return removedSize, ok
}

// RemoveObjects removes a list of Objects' metadata from the Index and
// returns the number removed
func (idx *Index) RemoveObjects(keys []string) int {
	idx.mtx.Lock()
	var removed int
	for _, key := range keys {
		if o, ok := idx.objects[key]; ok {
			idx.cacheSize -= o.Size
			idx.objectCount--
			delete(idx.objects, key)
			removed++
		}
	}
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()

	if removed > 0 {
		cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
	}
	return removed
}

// Clear removes all Objects from the Index
func (idx *Index) Clear() {
	idx.mtx.Lock()
	idx.objects = make(map[string]*Object)
	idx.cacheSize = 0
	idx.objectCount = 0
	idx.mtx.Unlock()
	cache.ObserveCacheSizeChange(idx.name, idx.tierType, 0, 0)
}

// Totals returns the current object count and cumulative size of the Index
func (idx *Index) Totals() (objectCount, cacheSize int64) {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()
	return idx.objectCount, idx.cacheSize
}

// Keys returns the keys currently tracked by the Index
func (idx *Index) Keys() []string {
	idx.mtx.RLock()
	keys := make([]string, 0, len(idx.objects))
	for k := range idx.objects {
		keys = append(keys, k)
	}
	idx.mtx.RUnlock()
	return keys
}

// reaper continually iterates through the index to find expired elements and
// remove them, and to enforce the tier's capacity ceilings
func (idx *Index) reaper(ctx context.Context) {
	ticker := time.NewTicker(idx.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			idx.Reap()
		case <-ctx.Done():
			return
		}
	}
}

// Reap makes a single maintenance pass: expired elements are removed first,
// then capacity ceilings are enforced via the configured eviction policy
func (idx *Index) Reap() {
	idx.reapExpired()
	idx.EvictIfNeeded(0, 0)
}

// reapExpired removes all objects whose TTL has elapsed
func (idx *Index) reapExpired() {
	now := time.Now()

	idx.mtx.Lock()
	var removals []string
	for _, o := range idx.objects {
		if o.expired(now) {
			removals = append(removals, o.Key)
		}
	}
	for _, key := range removals {
		if o, ok := idx.objects[key]; ok {
			idx.cacheSize -= o.Size
			idx.objectCount--
			delete(idx.objects, key)
		}
	}
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()

	if len(removals) == 0 {
		return
	}

	if idx.bulkRemove != nil {
		idx.bulkRemove(removals)
	}
	cache.ObserveCacheEvent(idx.name, idx.tierType, "eviction", "ttl")
	cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
	idx.notifier.Dispatch(cache.Event{
		Type:   cache.EventEviction,
		Tier:   idx.tierType,
		Count:  len(removals),
		Reason: "ttl",
	})
}

// EvictIfNeeded runs a capacity-driven eviction pass when the index, grown by
// the provided object and byte deltas, would exceed a configured ceiling. It
// returns the number of evicted objects.
func (idx *Index) EvictIfNeeded(addObjects, addBytes int64) int {
	now := time.Now()

	idx.mtx.Lock()

	var evictionType string
	switch {
	case idx.opts.MaxSizeBytes > 0 && idx.cacheSize+addBytes > idx.opts.MaxSizeBytes:
		evictionType = "size_bytes"
	case idx.opts.MaxSizeObjects > 0 && idx.objectCount+addObjects > idx.opts.MaxSizeObjects:
		evictionType = "size_objects"
	default:
		idx.mtx.Unlock()
		return 0
	}

	candidates := make([]policy.Candidate, 0, len(idx.objects))
	for _, o := range idx.objects {
		candidates = append(candidates, policy.Candidate{
			Key:         o.Key,
			Size:        o.Size,
			Priority:    o.Priority,
			AccessCount: o.AccessCount,
			CreatedAt:   o.CreatedAt,
			LastAccess:  o.LastAccess,
		})
	}

	if len(candidates) == 0 {
		idx.mtx.Unlock()
		return 0
	}

	log.Debug("max cache size reached. evicting least-desirable records",
		log.Pairs{
			"reason":         evictionType,
			"cacheSizeBytes": idx.cacheSize, "maxSizeBytes": idx.opts.MaxSizeBytes,
			"cacheSizeObjects": idx.objectCount, "maxSizeObjects": idx.opts.MaxSizeObjects,
		},
	)

	idx.opts.Ranker.Rank(candidates, now)

	removals := idx.selectRemovals(candidates, evictionType, addObjects, addBytes)

	for _, key := range removals {
		if o, ok := idx.objects[key]; ok {
			idx.cacheSize -= o.Size
			idx.objectCount--
			delete(idx.objects, key)
		}
	}
	size, count := idx.cacheSize, idx.objectCount
	idx.mtx.Unlock()

	if len(removals) == 0 {
		return 0
	}

	if idx.bulkRemove != nil {
		idx.bulkRemove(removals)
	}
	cache.ObserveCacheEvent(idx.name, idx.tierType, "eviction", evictionType)
	cache.ObserveCacheSizeChange(idx.name, idx.tierType, size, count)
	idx.notifier.Dispatch(cache.Event{
		Type:   cache.EventEviction,
		Tier:   idx.tierType,
		Count:  len(removals),
		Reason: evictionType,
	})

	log.Debug("size-based cache eviction exercise completed",
		log.Pairs{
			"reason":  evictionType,
			"removed": len(removals),
			"cacheSizeBytes": size, "cacheSizeObjects": count,
		})

	return len(removals)
}

// selectRemovals chooses eviction victims from the ranked candidate list.
// Callers must hold the index lock.
func (idx *Index) selectRemovals(candidates []policy.Candidate, evictionType string,
	addObjects, addBytes int64) []string {

	// fractional batch mode removes a fixed share of current entries per pass
	if idx.opts.BatchFraction > 0 {
		n := int(math.Ceil(idx.opts.BatchFraction * float64(len(candidates))))
		if n < 1 {
			n = 1
		}
		if n > len(candidates) {
			n = len(candidates)
		}
		removals := make([]string, n)
		for i := 0; i < n; i++ {
			removals[i] = candidates[i].Key
		}
		return removals
	}

	// need-based mode removes just enough to get back under the ceiling,
	// plus the configured backoff
	removals := make([]string, 0)
	i, j := 0, len(candidates)

	if evictionType == "size_bytes" {
		bytesNeeded := idx.cacheSize + addBytes - idx.opts.MaxSizeBytes
		if idx.opts.MaxSizeBytes > idx.opts.MaxSizeBackoffBytes {
			bytesNeeded += idx.opts.MaxSizeBackoffBytes
		}
		var bytesSelected int64
		for bytesSelected < bytesNeeded && i < j {
			removals = append(removals, candidates[i].Key)
			bytesSelected += candidates[i].Size
			i++
		}
	} else {
		objectsNeeded := idx.objectCount + addObjects - idx.opts.MaxSizeObjects
		if idx.opts.MaxSizeObjects > idx.opts.MaxSizeBackoffObjects {
			objectsNeeded += idx.opts.MaxSizeBackoffObjects
		}
		var objectsSelected int64
		for objectsSelected < objectsNeeded && i < j {
			removals = append(removals, candidates[i].Key)
			objectsSelected++
			i++
		}
	}
	return removals
}
