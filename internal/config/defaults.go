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

package config

const (
	defaultListenAddress   = ""
	defaultListenPort      = 8480
	defaultPingHandlerPath = "/ping"

	defaultLogFile  = ""
	defaultLogLevel = "INFO"

	defaultMetricsListenPort = 8482

	defaultCacheName = "default"

	defaultMemoryMaxSizeObjects  = 4096
	defaultMemoryMaxSizeBytes    = 256 * 1024 * 1024
	defaultEvictionPolicy        = "smart"
	defaultEvictionBatchFraction = 0.10
	defaultReapIntervalSecs      = 3

	defaultSmartWeightAge       = 1.0
	defaultSmartWeightIdle      = 2.0
	defaultSmartWeightFrequency = 2.0
	defaultSmartWeightSize      = 0.5
	defaultSmartWeightPriority  = 1.5

	defaultPersistentTierType       = "filesystem"
	defaultPersistentMaxSizeObjects = 65536
	defaultPersistentMaxSizeBytes   = 2 * 1024 * 1024 * 1024
	defaultMaxSizeBackoffObjects    = 128
	defaultMaxSizeBackoffBytes      = 16 * 1024 * 1024

	defaultCachePath   = "/tmp/tiercache"
	defaultBBoltFile   = "tiercache.db"
	defaultBBoltBucket = "tiercache"

	defaultWritePolicy           = "writethrough"
	defaultWritebackWorkers      = 4
	defaultWritebackQueueDepth   = 64
	defaultDrainTimeoutSecs      = 30
	defaultAnalyticsIntervalSecs = 60
	defaultWarmConcurrency       = 8
)

// WritePolicyNames lists the valid write_policy values
var WritePolicyNames = []string{"writethrough", "writeback"}

// TierTypeNames lists the valid persistent tier_type values
var TierTypeNames = []string{"filesystem", "bbolt", "badger"}

// EvictionPolicyNames lists the valid memory eviction_policy values
var EvictionPolicyNames = []string{"lru", "lfu", "smart"}
