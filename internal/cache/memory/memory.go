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

// Package memory is the fast, bounded, volatile cache tier
package memory

import (
	"fmt"
	"time"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/index"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/policy"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

const tierType = "memory"

// Cache implements cache.Tier backed by process memory. Values are held by
// reference on the index, so a present key is resolvable with zero I/O.
type Cache struct {
	Config   *config.CachingConfig
	Index    *index.Index
	notifier *cache.Notifier
}

// New returns a memory tier for the provided configuration. Events are
// dispatched through the provided notifier, which may be nil.
func New(cfg *config.CachingConfig, notifier *cache.Notifier) *Cache {
	return &Cache{Config: cfg, notifier: notifier}
}

// Configuration returns the Configuration for the Cache object
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Type returns the tier type
func (c *Cache) Type() string {
	return tierType
}

// Connect initializes the memory tier and starts its maintenance sweep
func (c *Cache) Connect() error {
	log.Info("memory tier setup", log.Pairs{
		"name":           c.Config.Name,
		"maxSizeObjects": c.Config.Memory.MaxSizeObjects,
		"maxSizeBytes":   c.Config.Memory.MaxSizeBytes,
		"evictionPolicy": c.Config.Memory.EvictionPolicy,
	})

	pt, ok := policy.Names[c.Config.Memory.EvictionPolicy]
	if !ok {
		return fmt.Errorf("invalid eviction policy [%s]", c.Config.Memory.EvictionPolicy)
	}

	w := policy.Weights{
		Age:       c.Config.Memory.SmartWeights.Age,
		Idle:      c.Config.Memory.SmartWeights.Idle,
		Frequency: c.Config.Memory.SmartWeights.Frequency,
		Size:      c.Config.Memory.SmartWeights.Size,
		Priority:  c.Config.Memory.SmartWeights.Priority,
	}
	if w == (policy.Weights{}) {
		w = policy.DefaultWeights()
	}

	c.Index = index.NewIndex(c.Config.Name, tierType, index.Options{
		MaxSizeObjects: c.Config.Memory.MaxSizeObjects,
		MaxSizeBytes:   c.Config.Memory.MaxSizeBytes,
		BatchFraction:  c.Config.Memory.EvictionBatchFraction,
		ReapInterval:   c.Config.Memory.ReapInterval,
		Ranker:         policy.New(pt, w),
	}, nil, c.notifier)

	return nil
}

// Store places an entry in the memory tier, evicting first when the tier is
// at or over its configured capacity
func (c *Cache) Store(e *cache.Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("cacheKey required")
	}

	c.Index.EvictIfNeeded(1, e.Size)

	o := &index.Object{
		Key:        e.Key,
		Size:       e.Size,
		Priority:   e.Priority,
		Tags:       e.Tags,
		CreatedAt:  e.CreatedAt,
		Expiration: e.Expiration(),
		Entry:      e,
	}
	c.Index.UpdateObject(o)

	log.Debug("memory tier store", log.Pairs{"key": e.Key, "size": e.Size, "ttl": e.TTL})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "set", "none", float64(e.Size))
	c.notifier.Dispatch(cache.Event{Type: cache.EventSet, Key: e.Key, Tier: tierType, SizeBytes: e.Size})
	return nil
}

// Retrieve looks for an entry in the memory tier and returns it, or ErrKNF on
// a miss. Expired entries are removed lazily and reported as a miss.
func (c *Cache) Retrieve(key string) (*cache.Entry, error) {
	o, ok := c.Index.GetObject(key)
	if !ok || o.Entry == nil {
		log.Debug("memory tier miss", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	if !o.Expiration.IsZero() && o.Expiration.Before(time.Now()) {
		// expired but not yet reaped, delete it now
		c.Index.RemoveObject(key)
		log.Debug("memory tier expired", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	c.Index.UpdateObjectAccessTime(key)
	log.Debug("memory tier retrieve", log.Pairs{"key": key})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "get", "hit", float64(o.Size))
	return o.Entry, nil
}

// Remove removes an entry from the memory tier
func (c *Cache) Remove(key string) bool {
	_, ok := c.Index.RemoveObject(key)
	if ok {
		log.Debug("memory tier remove", log.Pairs{"key": key})
		c.notifier.Dispatch(cache.Event{Type: cache.EventDelete, Key: key, Tier: tierType})
	}
	return ok
}

// Clear removes all entries from the memory tier
func (c *Cache) Clear() error {
	c.Index.Clear()
	return nil
}

// Close stops the memory tier's background maintenance
func (c *Cache) Close() error {
	if c.Index != nil {
		c.Index.Close()
	}
	return nil
}
