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

// Package cache defines the TierCache tier interfaces and provides
// general cache functionality
package cache

import (
	"errors"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

// ErrKNF represents the error "key not found in cache"
var ErrKNF = errors.New("key not found in cache")

// Tier is the interface for the supported caching tiers.
// When making new tiers, Retrieve() must return ErrKNF on cache miss.
type Tier interface {
	// Connect readies the tier for traffic. Configuration problems that make
	// the tier unusable (e.g., an unwritable storage location) are surfaced
	// here, before any traffic is served.
	Connect() error
	// Store places an entry in the tier. The tier takes ownership of the
	// provided entry; callers sharing an entry across tiers must pass copies.
	Store(entry *Entry) error
	// Retrieve looks up an entry by key. Expired entries are removed lazily
	// and reported as ErrKNF. On a hit, the entry's access metadata is updated.
	Retrieve(key string) (*Entry, error)
	// Remove deletes the keyed entry and reports whether anything was removed
	Remove(key string) bool
	// Clear removes all entries from the tier
	Clear() error
	// Close releases tier resources and stops background maintenance
	Close() error
	// Type returns the tier type, e.g. "memory" or "filesystem"
	Type() string
}

// ObserveCacheOperation records a cache operation for metrics purposes
func ObserveCacheOperation(cacheName, tierType, operation, status string, bytes float64) {
	metrics.CacheObjectOperations.WithLabelValues(cacheName, tierType, operation, status).Inc()
	if bytes > 0 {
		metrics.CacheByteOperations.WithLabelValues(cacheName, tierType, operation, status).Add(bytes)
	}
}

// ObserveCacheMiss records a cache miss for metrics purposes and returns ErrKNF
func ObserveCacheMiss(cacheName, tierType string) (*Entry, error) {
	ObserveCacheOperation(cacheName, tierType, "get", "miss", 0)
	return nil, ErrKNF
}

// ObserveCacheDel records a cache deletion for metrics purposes
func ObserveCacheDel(cacheName, tierType string, bytes float64) {
	ObserveCacheOperation(cacheName, tierType, "del", "none", bytes)
}

// ObserveCacheEvent records a cache event (e.g., eviction, error) for metrics purposes
func ObserveCacheEvent(cacheName, tierType, event, reason string) {
	metrics.CacheEvents.WithLabelValues(cacheName, tierType, event, reason).Inc()
}

// ObserveCacheSizeChange adjusts the tier's size gauges following a cache operation
func ObserveCacheSizeChange(cacheName, tierType string, byteCount, objectCount int64) {
	metrics.CacheObjects.WithLabelValues(cacheName, tierType).Set(float64(objectCount))
	metrics.CacheBytes.WithLabelValues(cacheName, tierType).Set(float64(byteCount))
}
