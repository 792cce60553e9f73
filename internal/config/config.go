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

// Package config provides TierCache configuration abilities, including
// parsing and printing configuration files, command line parameters, and
// environment variables, as well as default values and state.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the Running Configuration for TierCache
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `toml:"main"`
	// Caching is the section for the tiered cache engine
	Caching *CachingConfig `toml:"caching"`
	// Logging provides configurations for logging
	Logging *LoggingConfig `toml:"logging"`
	// Metrics provides configurations for collecting Metrics about the application
	Metrics *MetricsConfig `toml:"metrics"`

	// LoaderWarnings holds warnings generated during config load that should
	// be logged once a logger is available
	LoaderWarnings []string `toml:"-"`
}

// MainConfig is a collection of general configurations
type MainConfig struct {
	// InstanceID represents a unique ID for the current instance, when multiple
	// instances on the same host share a configuration
	InstanceID int `toml:"instance_id"`
	// ListenAddress is the address the management HTTP listener binds to
	ListenAddress string `toml:"listen_address"`
	// ListenPort is the port the management HTTP listener binds to
	ListenPort int `toml:"listen_port"`
	// PingHandlerPath provides the path to register the Ping Handler for checking
	// that the process is running
	PingHandlerPath string `toml:"ping_handler_path"`
}

// CachingConfig defines the behavior of the tiered cache engine
type CachingConfig struct {
	// Name is the name of the cache engine instance
	Name string `toml:"-"`
	// Memory configures the in-memory tier
	Memory MemoryCacheConfig `toml:"memory"`
	// Persistent configures the durable tier
	Persistent PersistentCacheConfig `toml:"persistent"`
	// WritePolicy selects how sets propagate to the persistent tier:
	// "writethrough" (synchronous) or "writeback" (asynchronous)
	WritePolicy string `toml:"write_policy"`
	// WritebackWorkers is the number of background persistence workers
	WritebackWorkers int `toml:"writeback_workers"`
	// WritebackQueueDepth is the per-worker queue depth for background writes
	WritebackQueueDepth int `toml:"writeback_queue_depth"`
	// DrainTimeoutSecs bounds how long Close waits for in-flight background
	// writes to complete
	DrainTimeoutSecs int `toml:"drain_timeout_secs"`
	// DefaultTTLSecs is applied to entries stored without an explicit TTL.
	// Zero means entries do not expire unless a TTL is provided.
	DefaultTTLSecs int `toml:"default_ttl_secs"`
	// AnalyticsIntervalSecs sets how often the engine publishes an analytics
	// snapshot event. Zero disables periodic snapshots.
	AnalyticsIntervalSecs int `toml:"analytics_interval_secs"`
	// WarmConcurrency bounds how many warming producers run concurrently
	WarmConcurrency int `toml:"warm_concurrency"`

	//  Synthetic Values

	// DrainTimeout is the parsed duration of DrainTimeoutSecs
	DrainTimeout time.Duration `toml:"-"`
	// DefaultTTL is the parsed duration of DefaultTTLSecs
	DefaultTTL time.Duration `toml:"-"`
	// AnalyticsInterval is the parsed duration of AnalyticsIntervalSecs
	AnalyticsInterval time.Duration `toml:"-"`
}

// MemoryCacheConfig is a collection of configurations for the in-memory tier
type MemoryCacheConfig struct {
	// MaxSizeObjects indicates how large the tier can grow in objects before
	// an eviction pass runs
	MaxSizeObjects int64 `toml:"max_size_objects"`
	// MaxSizeBytes indicates how large the tier can grow in estimated bytes
	// before an eviction pass runs
	MaxSizeBytes int64 `toml:"max_size_bytes"`
	// EvictionPolicy selects the eviction ranking: "lru", "lfu" or "smart"
	EvictionPolicy string `toml:"eviction_policy"`
	// EvictionBatchFraction is the fraction of current entries removed in a
	// single capacity-driven eviction pass
	EvictionBatchFraction float64 `toml:"eviction_batch_fraction"`
	// ReapIntervalSecs defines how long the tier maintenance sweep sleeps
	// between cycles
	ReapIntervalSecs int `toml:"reap_interval_secs"`
	// SmartWeights tunes the smart scoring eviction policy
	SmartWeights SmartWeightsConfig `toml:"smart_weights"`

	// ReapInterval is the parsed duration of ReapIntervalSecs
	ReapInterval time.Duration `toml:"-"`
}

// SmartWeightsConfig holds the term weights of the smart scoring policy
type SmartWeightsConfig struct {
	// Age weighs time since the entry was created
	Age float64 `toml:"age"`
	// Idle weighs time since the entry was last accessed
	Idle float64 `toml:"idle"`
	// Frequency weighs (negatively) how often the entry has been accessed
	Frequency float64 `toml:"frequency"`
	// Size weighs the estimated byte size of the entry
	Size float64 `toml:"size"`
	// Priority weighs (negatively) the caller-declared entry priority
	Priority float64 `toml:"priority"`
}

// PersistentCacheConfig is a collection of configurations for the durable tier
type PersistentCacheConfig struct {
	// TierType selects the durable backing: "filesystem", "bbolt" or "badger"
	TierType string `toml:"tier_type"`
	// MaxSizeObjects indicates how many records the tier may hold before the
	// least-recently-accessed records are evicted
	MaxSizeObjects int64 `toml:"max_size_objects"`
	// MaxSizeBackoffObjects indicates how far under max_size_objects an
	// object-count eviction exercise must get before it completes
	MaxSizeBackoffObjects int64 `toml:"max_size_backoff_objects"`
	// MaxSizeBytes indicates how many cumulative bytes the tier may hold
	// before the least-recently-accessed records are evicted
	MaxSizeBytes int64 `toml:"max_size_bytes"`
	// MaxSizeBackoffBytes indicates how far under max_size_bytes a byte-size
	// eviction exercise must get before it completes
	MaxSizeBackoffBytes int64 `toml:"max_size_backoff_bytes"`
	// ReapIntervalSecs defines how long the tier maintenance sweep sleeps
	// between cycles
	ReapIntervalSecs int `toml:"reap_interval_secs"`
	// Compression enables snappy compression of durable records
	Compression bool `toml:"compression"`
	// Filesystem provides options for filesystem-backed persistence
	Filesystem FilesystemCacheConfig `toml:"filesystem"`
	// BBolt provides options for bbolt-backed persistence
	BBolt BBoltCacheConfig `toml:"bbolt"`
	// Badger provides options for badger-backed persistence
	Badger BadgerCacheConfig `toml:"badger"`

	// ReapInterval is the parsed duration of ReapIntervalSecs
	ReapInterval time.Duration `toml:"-"`
}

// FilesystemCacheConfig is a collection of configurations for storing cached
// records as files
type FilesystemCacheConfig struct {
	// CachePath represents the path on disk where the cache records live
	CachePath string `toml:"cache_path"`
}

// BBoltCacheConfig is a collection of configurations for storing cached
// records in a bbolt key-value store
type BBoltCacheConfig struct {
	// Filename represents the filename (including path) of the bbolt database
	Filename string `toml:"filename"`
	// Bucket represents the name of the bucket within bbolt under which
	// the cached records live
	Bucket string `toml:"bucket"`
}

// BadgerCacheConfig is a collection of configurations for storing cached
// records in a badger key-value store
type BadgerCacheConfig struct {
	// Directory represents the path on disk where the badger database resides
	Directory string `toml:"directory"`
	// ValueDirectory represents the path on disk where the badger value log resides
	ValueDirectory string `toml:"value_directory"`
}

// LoggingConfig is a collection of logging configurations
type LoggingConfig struct {
	// LogFile provides the filepath to the instance's logfile. Set as empty
	// string to Log to Console
	LogFile string `toml:"log_file"`
	// LogLevel provides the most granular level (e.g., DEBUG, INFO, ERROR)
	// to log
	LogLevel string `toml:"log_level"`
}

// MetricsConfig is a collection of metrics exposition configurations
type MetricsConfig struct {
	// ListenAddress is the address the metrics HTTP listener binds to
	ListenAddress string `toml:"listen_address"`
	// ListenPort is the port the /metrics endpoint will listen on
	ListenPort int `toml:"listen_port"`
}

// NewConfig returns a Config with default values
func NewConfig() *Config {
	return &Config{
		Main: &MainConfig{
			ListenAddress:   defaultListenAddress,
			ListenPort:      defaultListenPort,
			PingHandlerPath: defaultPingHandlerPath,
		},
		Caching:        NewCachingConfig(),
		Logging:        &LoggingConfig{LogFile: defaultLogFile, LogLevel: defaultLogLevel},
		Metrics:        &MetricsConfig{ListenPort: defaultMetricsListenPort},
		LoaderWarnings: make([]string, 0),
	}
}

// NewCachingConfig returns a CachingConfig with default values
func NewCachingConfig() *CachingConfig {
	return &CachingConfig{
		Name: defaultCacheName,
		Memory: MemoryCacheConfig{
			MaxSizeObjects:        defaultMemoryMaxSizeObjects,
			MaxSizeBytes:          defaultMemoryMaxSizeBytes,
			EvictionPolicy:        defaultEvictionPolicy,
			EvictionBatchFraction: defaultEvictionBatchFraction,
			ReapIntervalSecs:      defaultReapIntervalSecs,
			SmartWeights: SmartWeightsConfig{
				Age:       defaultSmartWeightAge,
				Idle:      defaultSmartWeightIdle,
				Frequency: defaultSmartWeightFrequency,
				Size:      defaultSmartWeightSize,
				Priority:  defaultSmartWeightPriority,
			},
		},
		Persistent: PersistentCacheConfig{
			TierType:              defaultPersistentTierType,
			MaxSizeObjects:        defaultPersistentMaxSizeObjects,
			MaxSizeBackoffObjects: defaultMaxSizeBackoffObjects,
			MaxSizeBytes:          defaultPersistentMaxSizeBytes,
			MaxSizeBackoffBytes:   defaultMaxSizeBackoffBytes,
			ReapIntervalSecs:      defaultReapIntervalSecs,
			Filesystem:            FilesystemCacheConfig{CachePath: defaultCachePath},
			BBolt:                 BBoltCacheConfig{Filename: defaultBBoltFile, Bucket: defaultBBoltBucket},
			Badger:                BadgerCacheConfig{Directory: defaultCachePath, ValueDirectory: defaultCachePath},
		},
		WritePolicy:           defaultWritePolicy,
		WritebackWorkers:      defaultWritebackWorkers,
		WritebackQueueDepth:   defaultWritebackQueueDepth,
		DrainTimeoutSecs:      defaultDrainTimeoutSecs,
		AnalyticsIntervalSecs: defaultAnalyticsIntervalSecs,
		WarmConcurrency:       defaultWarmConcurrency,
	}
}

// loadFile loads application configuration from a TOML-formatted file
func (c *Config) loadFile(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// setSyntheticValues materializes the duration fields parsed from the
// seconds-based TOML values
func (c *Config) setSyntheticValues() {
	c.Caching.DrainTimeout = time.Duration(c.Caching.DrainTimeoutSecs) * time.Second
	c.Caching.DefaultTTL = time.Duration(c.Caching.DefaultTTLSecs) * time.Second
	c.Caching.AnalyticsInterval = time.Duration(c.Caching.AnalyticsIntervalSecs) * time.Second
	c.Caching.Memory.ReapInterval = time.Duration(c.Caching.Memory.ReapIntervalSecs) * time.Second
	c.Caching.Persistent.ReapInterval = time.Duration(c.Caching.Persistent.ReapIntervalSecs) * time.Second
}
