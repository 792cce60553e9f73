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

import "time"

// Stats is a point-in-time snapshot of the cache engine's analytics counters
type Stats struct {
	// MemoryHits is the count of gets served by the memory tier
	MemoryHits int64 `json:"memory_hits"`
	// PersistentHits is the count of gets served by the persistent tier
	PersistentHits int64 `json:"persistent_hits"`
	// Misses is the count of gets that missed every tier
	Misses int64 `json:"misses"`
	// Sets is the count of set operations
	Sets int64 `json:"sets"`
	// Deletes is the count of delete operations that removed something
	Deletes int64 `json:"deletes"`
	// Evictions is the count of entries removed by eviction passes
	Evictions int64 `json:"evictions"`
	// WarmedKeys is the count of keys populated by warming passes
	WarmedKeys int64 `json:"warmed_keys"`
	// Requests is the total count of get operations
	Requests int64 `json:"requests"`
	// AvgLatency is the running average duration of get operations,
	// maintained with an incremental mean
	AvgLatency time.Duration `json:"avg_latency_ns"`
	// HitRate is (MemoryHits + PersistentHits) / Requests, 0 when no requests
	// have been served
	HitRate float64 `json:"hit_rate"`
}
