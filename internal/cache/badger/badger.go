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

// Package badger is the durable cache tier backed by a BadgerDB store.
// Badger manages record expiry and on-disk retention natively, so this tier
// carries no index of its own.
package badger

import (
	"time"

	"github.com/dgraph-io/badger"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

const tierType = "badger"

// Cache implements cache.Tier over a BadgerDB database
type Cache struct {
	Config   *config.CachingConfig
	notifier *cache.Notifier
	dbh      *badger.DB
}

// New returns a badger tier for the provided configuration
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

// Connect opens the configured BadgerDB database
func (c *Cache) Connect() error {
	log.Info("badger tier setup", log.Pairs{"cacheDir": c.Config.Persistent.Badger.Directory})

	opts := badger.DefaultOptions(c.Config.Persistent.Badger.Directory)
	opts.ValueDir = c.Config.Persistent.Badger.ValueDirectory
	if opts.ValueDir == "" {
		opts.ValueDir = c.Config.Persistent.Badger.Directory
	}

	var err error
	c.dbh, err = badger.Open(opts)
	return err
}

// Store places an entry in the badger tier, delegating expiry to badger's
// native TTL support
func (c *Cache) Store(e *cache.Entry) error {
	data, err := e.ToBytes(c.Config.Persistent.Compression)
	if err != nil {
		return err
	}

	err = c.dbh.Update(func(txn *badger.Txn) error {
		ent := badger.NewEntry([]byte(e.Key), data)
		if e.TTL > 0 {
			ent = ent.WithTTL(e.TTL)
		}
		return txn.SetEntry(ent)
	})
	if err != nil {
		return err
	}

	log.Debug("badger tier store", log.Pairs{"key": e.Key, "bytes": len(data)})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "set", "none", float64(len(data)))
	c.notifier.Dispatch(cache.Event{Type: cache.EventSet, Key: e.Key, Tier: tierType, SizeBytes: int64(len(data))})
	return nil
}

// Retrieve looks for a record in the badger tier and returns it, or ErrKNF on
// a miss. Corrupt records are purged and reported as a miss.
func (c *Cache) Retrieve(key string) (*cache.Entry, error) {
	var data []byte
	err := c.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		log.Debug("badger tier miss", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	e, err := cache.EntryFromBytes(data)
	if err != nil {
		log.Warn("badger tier removing corrupt record",
			log.Pairs{"key": key, "detail": err.Error()})
		c.remove(key)
		cache.ObserveCacheEvent(c.Config.Name, tierType, "error", "corrupt record")
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	if e.Expired(time.Now()) {
		c.remove(key)
		log.Debug("badger tier expired", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	log.Debug("badger tier retrieve", log.Pairs{"key": key})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "get", "hit", float64(len(data)))
	return e, nil
}

// Remove removes a record from the badger tier
func (c *Cache) Remove(key string) bool {
	exists := false
	c.dbh.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			exists = true
		}
		return nil
	})
	if !exists {
		return false
	}
	if c.remove(key) {
		c.notifier.Dispatch(cache.Event{Type: cache.EventDelete, Key: key, Tier: tierType})
		return true
	}
	return false
}

func (c *Cache) remove(key string) bool {
	err := c.dbh.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err == nil {
		log.Debug("badger tier remove", log.Pairs{"key": key})
		cache.ObserveCacheDel(c.Config.Name, tierType, 0)
	}
	return err == nil
}

// Clear removes all records from the badger tier
func (c *Cache) Clear() error {
	return c.dbh.DropAll()
}

// Close closes the badger tier
func (c *Cache) Close() error {
	return c.dbh.Close()
}
