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

// Package tiered implements the cache engine that coordinates the memory and
// persistent tiers: get promotion, write policies, warming, tag invalidation
// notification and analytics.
package tiered

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

// GetOptions adjusts the behavior of a single Get
type GetOptions struct {
	// NoPromote suppresses promotion of a persistent-tier hit into the
	// memory tier
	NoPromote bool
}

// SetOptions adjusts the behavior of a single Set
type SetOptions struct {
	// TTL is the entry's time to live. Zero applies the engine's default TTL.
	TTL time.Duration
	// Tags are the entry's invalidation labels
	Tags []string
	// Dependencies names keys this entry was derived from
	Dependencies []string
	// Priority raises an entry's resistance to smart eviction
	Priority int64
}

// Engine is the two-tier cache engine. Gets prefer the memory tier and fall
// back to the persistent tier, promoting hits; sets reach the persistent tier
// synchronously or through the writeback queue per the configured write
// policy.
type Engine struct {
	cfg        *config.CachingConfig
	memory     cache.Tier
	persistent cache.Tier
	notifier   *cache.Notifier
	counters   *counters
	wb         *writebackQueue
	sf         singleflight.Group

	unsubscribe   func()
	stopAnalytics chan struct{}
}

// New returns an unconnected Engine over the provided tiers. A nil notifier
// is replaced with a new one so Subscribe always works.
func New(cfg *config.CachingConfig, memoryTier, persistentTier cache.Tier, notifier *cache.Notifier) *Engine {
	if notifier == nil {
		notifier = cache.NewNotifier()
	}
	return &Engine{
		cfg:        cfg,
		memory:     memoryTier,
		persistent: persistentTier,
		notifier:   notifier,
		counters:   &counters{},
	}
}

// Connect connects both tiers and starts the engine's background machinery
func (e *Engine) Connect() error {
	if err := e.memory.Connect(); err != nil {
		return errors.Wrap(err, "memory tier connect failed")
	}
	if err := e.persistent.Connect(); err != nil {
		return errors.Wrap(err, "persistent tier connect failed")
	}

	e.unsubscribe = e.notifier.Subscribe(func(ev cache.Event) {
		if ev.Type == cache.EventEviction {
			e.counters.addEvictions(ev.Count)
		}
	})

	if e.cfg.WritePolicy == "writeback" {
		e.wb = newWritebackQueue(e.cfg.WritebackWorkers, e.cfg.WritebackQueueDepth,
			e.persistent.Store, e.persistent.Remove)
	}

	if e.cfg.AnalyticsInterval > 0 {
		e.stopAnalytics = make(chan struct{})
		go e.analyticsLoop(e.cfg.AnalyticsInterval, e.stopAnalytics)
	}

	log.Info("cache engine started", log.Pairs{
		"cacheName":      e.cfg.Name,
		"persistentTier": e.persistent.Type(),
		"writePolicy":    e.cfg.WritePolicy,
	})
	return nil
}

// Get retrieves the entry for key, checking the memory tier first and the
// persistent tier second. Persistent-tier hits are promoted into the memory
// tier unless opts suppresses it. Returns cache.ErrKNF when no tier holds the
// key. The returned entry is shared with the cache and must not be mutated.
func (e *Engine) Get(ctx context.Context, key string, opts *GetOptions) (*cache.Entry, error) {
	start := time.Now()

	if entry, err := e.memory.Retrieve(key); err == nil {
		e.observeGet("memory", key, start)
		return entry, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// concurrent misses for the same key share one persistent-tier read
	v, err, _ := e.sf.Do(key, func() (interface{}, error) {
		return e.persistent.Retrieve(key)
	})
	if err != nil {
		e.observeGet("", key, start)
		return nil, err
	}
	entry := v.(*cache.Entry)

	if opts == nil || !opts.NoPromote {
		if err := e.memory.Store(entry.Clone()); err != nil {
			log.Warn("promotion to memory tier failed",
				log.Pairs{"key": key, "detail": err.Error()})
		}
	}

	e.observeGet(e.persistent.Type(), key, start)
	return entry, nil
}

// Set stores value under key in both tiers per the configured write policy
func (e *Engine) Set(ctx context.Context, key string, value []byte, opts *SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := cache.NewEntry(key, value)
	entry.TTL = e.cfg.DefaultTTL
	if opts != nil {
		if opts.TTL > 0 {
			entry.TTL = opts.TTL
		}
		entry.Tags = opts.Tags
		entry.Dependencies = opts.Dependencies
		entry.Priority = opts.Priority
	}

	start := time.Now()
	if err := e.storeEntry(entry); err != nil {
		return err
	}
	e.counters.recordSet()
	metrics.EngineRequestDuration.WithLabelValues(e.cfg.Name, "set").
		Observe(time.Since(start).Seconds())
	return nil
}

// storeEntry applies the write policy: the memory tier is always written
// synchronously; the persistent tier is written synchronously under
// writethrough or queued under writeback
func (e *Engine) storeEntry(entry *cache.Entry) error {
	if err := e.memory.Store(entry); err != nil {
		return err
	}
	if e.wb != nil {
		if !e.wb.enqueue(entry.Clone()) {
			return errors.New("writeback queue is closed")
		}
		return nil
	}
	return e.persistent.Store(entry)
}

// Delete removes key from both tiers. Under the writeback policy the
// persistent removal rides the queue behind any earlier queued write to the
// same key, and the return value reports whether the memory tier held the key
// or a persistent removal was scheduled; otherwise it reports whether either
// tier held it.
func (e *Engine) Delete(ctx context.Context, key string) bool {
	if ctx.Err() != nil {
		return false
	}
	removedMemory := e.memory.Remove(key)
	var removedPersistent bool
	if e.wb != nil {
		removedPersistent = e.wb.enqueueDelete(key)
	} else {
		removedPersistent = e.persistent.Remove(key)
	}
	removed := removedMemory || removedPersistent
	if removed {
		e.counters.recordDelete()
	}
	return removed
}

// Clear empties both tiers
func (e *Engine) Clear() error {
	memErr := e.memory.Clear()
	persErr := e.persistent.Clear()
	if memErr != nil {
		return memErr
	}
	return persErr
}

// InvalidateByTag publishes an invalidation notification for tag to all
// subscribers. No entries are removed; acting on the notification is the
// subscriber's responsibility.
func (e *Engine) InvalidateByTag(tag string) {
	log.Debug("tag invalidation notified", log.Pairs{"tag": tag})
	cache.ObserveCacheEvent(e.cfg.Name, "engine", "invalidate_tag", tag)
	e.notifier.Dispatch(cache.Event{Type: cache.EventInvalidateTag, Tag: tag})
}

// Flush blocks until all queued background writes have been persisted. It is
// a no-op under the writethrough policy.
func (e *Engine) Flush(ctx context.Context) error {
	if e.wb == nil {
		return nil
	}
	return e.wb.flush(ctx)
}

// Stats returns a snapshot of the engine's analytics counters
func (e *Engine) Stats() cache.Stats {
	return e.counters.snapshot()
}

// Subscribe registers an observer for engine events and returns a function
// that removes the registration
func (e *Engine) Subscribe(l cache.Listener) func() {
	return e.notifier.Subscribe(l)
}

// Close drains the writeback queue within the configured grace period and
// closes both tiers
func (e *Engine) Close() error {
	if e.stopAnalytics != nil {
		close(e.stopAnalytics)
		e.stopAnalytics = nil
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}

	var drainErr error
	if e.wb != nil {
		drainErr = e.wb.close(e.cfg.DrainTimeout)
	}

	memErr := e.memory.Close()
	persErr := e.persistent.Close()

	if drainErr != nil {
		return drainErr
	}
	if memErr != nil {
		return memErr
	}
	return persErr
}

func (e *Engine) observeGet(tier, key string, start time.Time) {
	elapsed := time.Since(start)
	e.counters.recordGet(tier, elapsed)
	metrics.EngineRequestDuration.WithLabelValues(e.cfg.Name, "get").
		Observe(elapsed.Seconds())
	if tier == "" {
		e.notifier.Dispatch(cache.Event{Type: cache.EventMiss, Key: key})
		return
	}
	e.notifier.Dispatch(cache.Event{Type: cache.EventHit, Key: key, Tier: tier})
}

func (e *Engine) analyticsLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := e.counters.snapshot()
			metrics.EngineHitRate.WithLabelValues(e.cfg.Name).Set(snap.HitRate)
			e.notifier.Dispatch(cache.Event{Type: cache.EventAnalytics, Snapshot: &snap})
			log.Debug("analytics snapshot published", log.Pairs{
				"requests": snap.Requests,
				"hitRate":  snap.HitRate,
			})
		}
	}
}
