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

// Package bbolt is the durable cache tier backed by a bbolt key-value store
package bbolt

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/index"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/policy"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

const tierType = "bbolt"

// Cache implements cache.Tier over a single-bucket bbolt database. Like the
// filesystem tier, its in-memory index is rebuilt by scanning the bucket at
// startup and self-heals on undecodable records.
type Cache struct {
	Config   *config.CachingConfig
	Index    *index.Index
	notifier *cache.Notifier
	dbh      *bbolt.DB
}

// New returns a bbolt tier for the provided configuration. Events are
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

// Connect opens the configured bbolt database, ensures the bucket exists,
// rebuilds the index from the records physically present, and starts the
// maintenance sweep
func (c *Cache) Connect() error {
	log.Info("bbolt tier setup", log.Pairs{"cacheFile": c.Config.Persistent.BBolt.Filename})

	var err error
	c.dbh, err = bbolt.Open(c.Config.Persistent.BBolt.Filename, 0644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}

	err = c.dbh.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(c.Config.Persistent.BBolt.Bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.Index = index.NewIndex(c.Config.Name, tierType, index.Options{
		MaxSizeObjects:        c.Config.Persistent.MaxSizeObjects,
		MaxSizeBackoffObjects: c.Config.Persistent.MaxSizeBackoffObjects,
		MaxSizeBytes:          c.Config.Persistent.MaxSizeBytes,
		MaxSizeBackoffBytes:   c.Config.Persistent.MaxSizeBackoffBytes,
		ReapInterval:          c.Config.Persistent.ReapInterval,
		Ranker:                policy.New(policy.TypeLRU, policy.Weights{}),
	}, c.bulkRemove, c.notifier)

	c.Index.Load(c.scan())
	return nil
}

// scan reconstructs index objects from the records physically present in the
// bucket. Records that cannot be decoded are removed.
func (c *Cache) scan() []*index.Object {
	objects := make([]*index.Object, 0)
	var drops [][]byte

	c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
		cursor := b.Cursor()
		now := time.Now()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			e, err := cache.EntryFromBytes(v)
			if err != nil {
				log.Warn("bbolt tier removing undecodable record",
					log.Pairs{"key": string(k), "detail": err.Error()})
				drops = append(drops, append([]byte(nil), k...))
				continue
			}
			objects = append(objects, &index.Object{
				Key:        string(k),
				Size:       int64(len(v)),
				Priority:   e.Priority,
				Tags:       e.Tags,
				CreatedAt:  e.CreatedAt,
				Expiration: e.Expiration(),
				LastWrite:  now,
				LastAccess: now,
			})
		}
		return nil
	})

	if len(drops) > 0 {
		c.dbh.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
			for _, k := range drops {
				b.Delete(k)
			}
			return nil
		})
	}

	log.Info("bbolt tier index rebuilt", log.Pairs{"records": len(objects)})
	return objects
}

// Store places an entry in the bbolt tier
func (c *Cache) Store(e *cache.Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("cacheKey required")
	}

	data, err := e.ToBytes(c.Config.Persistent.Compression)
	if err != nil {
		return err
	}

	c.Index.EvictIfNeeded(1, int64(len(data)))

	err = c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
		return b.Put([]byte(e.Key), data)
	})
	if err != nil {
		return err
	}

	c.Index.UpdateObject(&index.Object{
		Key:        e.Key,
		Size:       int64(len(data)),
		Priority:   e.Priority,
		Tags:       e.Tags,
		CreatedAt:  e.CreatedAt,
		Expiration: e.Expiration(),
	})

	log.Debug("bbolt tier store", log.Pairs{"key": e.Key, "bytes": len(data)})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "set", "none", float64(len(data)))
	c.notifier.Dispatch(cache.Event{Type: cache.EventSet, Key: e.Key, Tier: tierType, SizeBytes: int64(len(data))})
	return nil
}

// Retrieve looks for a record in the bbolt tier and returns it, or ErrKNF on
// a miss. Undecodable records are purged and reported as a miss.
func (c *Cache) Retrieve(key string) (*cache.Entry, error) {
	var data []byte
	c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
		if v := b.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})

	if data == nil {
		if _, ok := c.Index.RemoveObject(key); ok {
			log.Warn("bbolt tier purged stale index entry", log.Pairs{"key": key})
		}
		log.Debug("bbolt tier miss", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	e, err := cache.EntryFromBytes(data)
	if err != nil {
		log.Warn("bbolt tier removing corrupt record",
			log.Pairs{"key": key, "detail": err.Error()})
		c.remove(key)
		cache.ObserveCacheEvent(c.Config.Name, tierType, "error", "corrupt record")
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	if e.Expired(time.Now()) {
		c.remove(key)
		log.Debug("bbolt tier expired", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	c.Index.UpdateObjectAccessTime(key)
	log.Debug("bbolt tier retrieve", log.Pairs{"key": key})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "get", "hit", float64(len(data)))
	return e, nil
}

// Remove removes a record from the bbolt tier
func (c *Cache) Remove(key string) bool {
	ok := c.remove(key)
	if ok {
		c.notifier.Dispatch(cache.Event{Type: cache.EventDelete, Key: key, Tier: tierType})
	}
	return ok
}

func (c *Cache) remove(key string) bool {
	c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
		return b.Delete([]byte(key))
	})
	_, ok := c.Index.RemoveObject(key)
	if ok {
		log.Debug("bbolt tier remove", log.Pairs{"key": key})
	}
	return ok
}

// bulkRemove deletes the backing records for keys evicted by the index
func (c *Cache) bulkRemove(keys []string) {
	c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.Persistent.BBolt.Bucket))
		for _, key := range keys {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// Clear removes all records from the bbolt tier
func (c *Cache) Clear() error {
	err := c.dbh.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(c.Config.Persistent.BBolt.Bucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(c.Config.Persistent.BBolt.Bucket))
		return err
	})
	if err != nil {
		return err
	}
	c.Index.Clear()
	return nil
}

// Close stops the tier's background maintenance and closes the database
func (c *Cache) Close() error {
	if c.Index != nil {
		c.Index.Close()
	}
	return c.dbh.Close()
}
