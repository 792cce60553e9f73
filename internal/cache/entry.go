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

import (
	"time"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// record encodings, leading byte of a serialized entry
const (
	encodingRaw    byte = 0x00
	encodingSnappy byte = 0x01
)

// entryOverhead approximates the per-entry bookkeeping cost in bytes, used by
// the size estimator. Capacity decisions tolerate estimation error; this is
// not exact accounting.
const entryOverhead = 96

// ErrInvalidRecord is returned when a serialized entry cannot be decoded
var ErrInvalidRecord = errors.New("invalid cache record")

// Entry is a cached key/value pair plus the caller-provided metadata that
// the eviction and invalidation machinery operates on
type Entry struct {
	// Key is the logical cache key of the entry
	Key string `msgpack:"key"`
	// Value is the opaque cached blob
	Value []byte `msgpack:"value"`
	// CreatedAt is the time the entry was created by set
	CreatedAt time.Time `msgpack:"created_at"`
	// TTL is the time-to-live; zero means the entry does not expire
	TTL time.Duration `msgpack:"ttl"`
	// Tags are caller-declared grouping labels used for bulk invalidation hooks
	Tags []string `msgpack:"tags,omitempty"`
	// Dependencies are caller-declared keys this entry is derived from,
	// carried for external invalidation consumers
	Dependencies []string `msgpack:"dependencies,omitempty"`
	// Priority is the caller-declared importance; higher values resist eviction
	Priority int64 `msgpack:"priority"`

	// Size is the estimated in-memory footprint in bytes. It is derived, not
	// serialized.
	Size int64 `msgpack:"-"`
}

// NewEntry returns an Entry for the provided key and value, stamped with the
// current time and the estimated size
func NewEntry(key string, value []byte) *Entry {
	e := &Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
	}
	e.Size = e.EstimateSize()
	return e
}

// EstimateSize approximates the byte footprint of the entry
func (e *Entry) EstimateSize() int64 {
	size := int64(len(e.Key) + len(e.Value) + entryOverhead)
	for _, t := range e.Tags {
		size += int64(len(t))
	}
	for _, d := range e.Dependencies {
		size += int64(len(d))
	}
	return size
}

// Expiration returns the wall-clock time the entry expires, or the zero time
// when the entry has no TTL
func (e *Entry) Expiration() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry's TTL has elapsed as of now
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return e.CreatedAt.Add(e.TTL).Before(now)
}

// Clone returns an independent copy of the entry. Entries crossing tiers
// during promotion or write-through are copies, never shared references.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Value = make([]byte, len(e.Value))
	copy(c.Value, e.Value)
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.Dependencies != nil {
		c.Dependencies = append([]string(nil), e.Dependencies...)
	}
	return &c
}

// ToBytes returns a serialized byte slice representing the Entry, optionally
// compressed with snappy
func (e *Entry) ToBytes(compress bool) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "could not serialize cache record")
	}
	if compress {
		return append([]byte{encodingSnappy}, snappy.Encode(nil, b)...), nil
	}
	return append([]byte{encodingRaw}, b...), nil
}

// EntryFromBytes returns a deserialized Entry from a serialized byte slice
func EntryFromBytes(data []byte) (*Entry, error) {
	if len(data) < 2 {
		return nil, ErrInvalidRecord
	}
	b := data[1:]
	switch data[0] {
	case encodingSnappy:
		var err error
		if b, err = snappy.Decode(nil, b); err != nil {
			return nil, errors.Wrap(ErrInvalidRecord, err.Error())
		}
	case encodingRaw:
	default:
		return nil, ErrInvalidRecord
	}
	e := &Entry{}
	if err := msgpack.Unmarshal(b, e); err != nil {
		return nil, errors.Wrap(ErrInvalidRecord, err.Error())
	}
	e.Size = e.EstimateSize()
	return e, nil
}
