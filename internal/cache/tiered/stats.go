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

package tiered

import (
	"sync"
	"time"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
)

// counters accumulates the engine's analytics under a single mutex. The
// running average latency is maintained incrementally so no per-request
// samples are retained: avg += (x - avg) / n.
type counters struct {
	mtx            sync.Mutex
	memoryHits     int64
	persistentHits int64
	misses         int64
	sets           int64
	deletes        int64
	evictions      int64
	warmedKeys     int64
	requests       int64
	avgLatency     time.Duration
}

// recordGet folds one get operation into the counters. tier is the tier that
// served the hit, or empty on a miss.
func (c *counters) recordGet(tier string, elapsed time.Duration) {
	c.mtx.Lock()
	c.requests++
	switch tier {
	case "memory":
		c.memoryHits++
	case "":
		c.misses++
	default:
		c.persistentHits++
	}
	c.avgLatency += (elapsed - c.avgLatency) / time.Duration(c.requests)
	c.mtx.Unlock()
}

func (c *counters) recordSet() {
	c.mtx.Lock()
	c.sets++
	c.mtx.Unlock()
}

func (c *counters) recordDelete() {
	c.mtx.Lock()
	c.deletes++
	c.mtx.Unlock()
}

func (c *counters) addEvictions(n int) {
	c.mtx.Lock()
	c.evictions += int64(n)
	c.mtx.Unlock()
}

func (c *counters) addWarmedKeys(n int) {
	c.mtx.Lock()
	c.warmedKeys += int64(n)
	c.mtx.Unlock()
}

// snapshot returns a point-in-time copy of the counters with the derived
// hit rate populated
func (c *counters) snapshot() cache.Stats {
	c.mtx.Lock()
	s := cache.Stats{
		MemoryHits:     c.memoryHits,
		PersistentHits: c.persistentHits,
		Misses:         c.misses,
		Sets:           c.sets,
		Deletes:        c.deletes,
		Evictions:      c.evictions,
		WarmedKeys:     c.warmedKeys,
		Requests:       c.requests,
		AvgLatency:     c.avgLatency,
	}
	c.mtx.Unlock()
	if s.Requests > 0 {
		s.HitRate = float64(s.MemoryHits+s.PersistentHits) / float64(s.Requests)
	}
	return s
}
