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

// Package filesystem is the durable cache tier backed by one file per record
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/index"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/policy"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/md5"
	"github.com/a2z2k25/BUMBA-2.0-sub007/pkg/locks"
)

const (
	tierType      = "filesystem"
	dataExtension = ".data"
)

// Cache implements cache.Tier over a directory of durable record files. The
// in-memory index is a cache of directory state: it is rebuilt by scanning
// the directory at startup and self-heals when a referenced record is missing
// or unreadable.
type Cache struct {
	Config   *config.CachingConfig
	Index    *index.Index
	notifier *cache.Notifier
	locker   *locks.NamedLocker
}

// New returns a filesystem tier for the provided configuration. Events are
// dispatched through the provided notifier, which may be nil.
func New(cfg *config.CachingConfig, notifier *cache.Notifier) *Cache {
	return &Cache{Config: cfg, notifier: notifier, locker: locks.NewNamedLocker()}
}

// Configuration returns the Configuration for the Cache object
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Type returns the tier type
func (c *Cache) Type() string {
	return tierType
}

// Connect validates the storage location, rebuilds the index from what is
// physically present, and starts the maintenance sweep. An unusable storage
// location is the only fatal condition, surfaced here before any traffic.
func (c *Cache) Connect() error {
	cachePath := c.Config.Persistent.Filesystem.CachePath
	log.Info("filesystem tier setup", log.Pairs{"name": c.Config.Name, "cachePath": cachePath})

	if err := makeDirectory(cachePath); err != nil {
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

	c.Index.Load(c.scan(cachePath))
	return nil
}

// scan reconstructs index objects from the records physically present in the
// storage directory. Records that cannot be decoded are removed.
func (c *Cache) scan(cachePath string) []*index.Object {
	dirEntries, err := os.ReadDir(cachePath)
	if err != nil {
		log.Warn("filesystem tier scan failed", log.Pairs{"cachePath": cachePath, "detail": err.Error()})
		return nil
	}

	objects := make([]*index.Object, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), dataExtension) {
			continue
		}
		dataFile := filepath.Join(cachePath, de.Name())

		data, err := os.ReadFile(dataFile)
		if err != nil {
			log.Warn("filesystem tier record unreadable during scan",
				log.Pairs{"dataFile": dataFile, "detail": err.Error()})
			continue
		}
		e, err := cache.EntryFromBytes(data)
		if err != nil {
			log.Warn("filesystem tier removing undecodable record",
				log.Pairs{"dataFile": dataFile, "detail": err.Error()})
			os.Remove(dataFile)
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		objects = append(objects, &index.Object{
			Key:        e.Key,
			Locator:    de.Name(),
			Size:       fi.Size(),
			Priority:   e.Priority,
			Tags:       e.Tags,
			CreatedAt:  e.CreatedAt,
			Expiration: e.Expiration(),
			LastWrite:  fi.ModTime(),
			LastAccess: fi.ModTime(),
		})
	}

	log.Info("filesystem tier index rebuilt", log.Pairs{"records": len(objects)})
	return objects
}

// Store writes the entry durably under a locator derived from a hash of the
// logical key, then updates the index
func (c *Cache) Store(e *cache.Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("cacheKey required")
	}

	data, err := e.ToBytes(c.Config.Persistent.Compression)
	if err != nil {
		return err
	}

	c.Index.EvictIfNeeded(1, int64(len(data)))

	dataFile := c.getFileName(e.Key)

	c.locker.Acquire(e.Key)
	err = os.WriteFile(dataFile, data, 0644)
	c.locker.Release(e.Key)
	if err != nil {
		return errors.Wrap(err, "filesystem tier write failed")
	}

	c.Index.UpdateObject(&index.Object{
		Key:        e.Key,
		Locator:    filepath.Base(dataFile),
		Size:       int64(len(data)),
		Priority:   e.Priority,
		Tags:       e.Tags,
		CreatedAt:  e.CreatedAt,
		Expiration: e.Expiration(),
	})

	log.Debug("filesystem tier store", log.Pairs{"key": e.Key, "dataFile": dataFile, "bytes": len(data)})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "set", "none", float64(len(data)))
	c.notifier.Dispatch(cache.Event{Type: cache.EventSet, Key: e.Key, Tier: tierType, SizeBytes: int64(len(data))})
	return nil
}

// Retrieve reads and deserializes a record. On an I/O or deserialization
// failure the tier self-heals by purging the stale index entry and reporting
// a miss rather than raising a fault.
func (c *Cache) Retrieve(key string) (*cache.Entry, error) {
	dataFile := c.getFileName(key)

	c.locker.Acquire(key)
	data, err := os.ReadFile(dataFile)
	c.locker.Release(key)
	if err != nil {
		// the record disappeared out from under the index
		if _, ok := c.Index.RemoveObject(key); ok {
			log.Warn("filesystem tier purged stale index entry",
				log.Pairs{"key": key, "dataFile": dataFile})
		}
		log.Debug("filesystem tier miss", log.Pairs{"key": key, "dataFile": dataFile})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	e, err := cache.EntryFromBytes(data)
	if err != nil {
		// corrupt record, drop it and report a miss
		log.Warn("filesystem tier removing corrupt record",
			log.Pairs{"key": key, "dataFile": dataFile, "detail": err.Error()})
		c.remove(key)
		cache.ObserveCacheEvent(c.Config.Name, tierType, "error", "corrupt record")
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	if e.Expired(time.Now()) {
		// expired but not yet reaped, delete it now
		c.remove(key)
		log.Debug("filesystem tier expired", log.Pairs{"key": key})
		return cache.ObserveCacheMiss(c.Config.Name, tierType)
	}

	c.Index.UpdateObjectAccessTime(key)
	log.Debug("filesystem tier retrieve", log.Pairs{"key": key, "dataFile": dataFile})
	cache.ObserveCacheOperation(c.Config.Name, tierType, "get", "hit", float64(len(data)))
	return e, nil
}

// Remove removes a record from the tier
func (c *Cache) Remove(key string) bool {
	ok := c.remove(key)
	if ok {
		c.notifier.Dispatch(cache.Event{Type: cache.EventDelete, Key: key, Tier: tierType})
	}
	return ok
}

func (c *Cache) remove(key string) bool {
	c.locker.Acquire(key)
	err := os.Remove(c.getFileName(key))
	c.locker.Release(key)

	_, indexed := c.Index.RemoveObject(key)
	removed := err == nil || indexed
	if removed {
		log.Debug("filesystem tier remove", log.Pairs{"key": key})
	}
	return removed
}

// bulkRemove deletes the backing records for keys evicted by the index
func (c *Cache) bulkRemove(keys []string) {
	for _, key := range keys {
		c.locker.Acquire(key)
		os.Remove(c.getFileName(key))
		c.locker.Release(key)
	}
}

// Clear removes all records from the tier
func (c *Cache) Clear() error {
	c.bulkRemove(c.Index.Keys())
	c.Index.Clear()
	return nil
}

// Close stops the tier's background maintenance
func (c *Cache) Close() error {
	if c.Index != nil {
		c.Index.Close()
	}
	return nil
}

// getFileName returns the storage path of a key's record; the locator is
// derived from a hash of the logical key rather than the key string itself
func (c *Cache) getFileName(key string) string {
	return filepath.Join(c.Config.Persistent.Filesystem.CachePath, md5.Checksum(key)+dataExtension)
}

// writeable returns true if the path is writeable by the calling process
func writeable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// makeDirectory creates a directory on the filesystem and returns an error
// when the location cannot be used
func makeDirectory(path string) error {
	err := os.MkdirAll(path, 0755)
	if err != nil || !writeable(path) {
		return fmt.Errorf("[%s] directory is not writeable by the cache: %v", path, err)
	}
	return nil
}
