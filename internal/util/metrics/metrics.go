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

// Package metrics implements prometheus metrics and exposes the metrics HTTP listener
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

const (
	metricNamespace = "tiercache"
	cacheSubsystem  = "cache"
	engineSubsystem = "engine"
)

// Default histogram buckets used by tiercache
var defaultBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// CacheObjectOperations is a Counter of operations (in # of objects) performed on a cache tier
var CacheObjectOperations *prometheus.CounterVec

// CacheByteOperations is a Counter of operations (in # of bytes) performed on a cache tier
var CacheByteOperations *prometheus.CounterVec

// CacheEvents is a Counter of events (evictions, errors, invalidations) observed on a cache tier
var CacheEvents *prometheus.CounterVec

// CacheObjects is a Gauge representing the number of objects in a cache tier
var CacheObjects *prometheus.GaugeVec

// CacheBytes is a Gauge representing the number of bytes in a cache tier
var CacheBytes *prometheus.GaugeVec

// CacheMaxObjects is a Gauge representing a tier's max object threshold for triggering an eviction exercise
var CacheMaxObjects *prometheus.GaugeVec

// CacheMaxBytes is a Gauge representing a tier's max byte threshold for triggering an eviction exercise
var CacheMaxBytes *prometheus.GaugeVec

// EngineRequestDuration is a Histogram of time required in seconds to serve a cache engine request
var EngineRequestDuration *prometheus.HistogramVec

// EngineHitRate is a Gauge of the engine's running overall hit rate
var EngineHitRate *prometheus.GaugeVec

var initOnce sync.Once

// Init initializes the instrumented metrics
func Init() {
	initOnce.Do(registerMetrics)
}

func registerMetrics() {
	CacheObjectOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_objects_total",
			Help:      "Count of operations (in # of objects) performed on a cache tier",
		},
		[]string{"cache_name", "tier_type", "operation", "status"},
	)

	CacheByteOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_bytes_total",
			Help:      "Count of operations (in # of bytes) performed on a cache tier",
		},
		[]string{"cache_name", "tier_type", "operation", "status"},
	)

	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "events_total",
			Help:      "Count of events observed on a cache tier",
		},
		[]string{"cache_name", "tier_type", "event", "reason"},
	)

	CacheObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "usage_objects",
			Help:      "Number of objects in a cache tier",
		},
		[]string{"cache_name", "tier_type"},
	)

	CacheBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "usage_bytes",
			Help:      "Number of bytes in a cache tier",
		},
		[]string{"cache_name", "tier_type"},
	)

	CacheMaxObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "max_usage_objects",
			Help:      "Max object threshold for triggering an eviction exercise on a cache tier",
		},
		[]string{"cache_name", "tier_type"},
	)

	CacheMaxBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "max_usage_bytes",
			Help:      "Max byte threshold for triggering an eviction exercise on a cache tier",
		},
		[]string{"cache_name", "tier_type"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: engineSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of cache engine request durations",
			Buckets:   defaultBuckets,
		},
		[]string{"cache_name", "operation"},
	)

	EngineHitRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: engineSubsystem,
			Name:      "hit_rate",
			Help:      "Running overall hit rate of the cache engine",
		},
		[]string{"cache_name"},
	)

	prometheus.MustRegister(
		CacheObjectOperations,
		CacheByteOperations,
		CacheEvents,
		CacheObjects,
		CacheBytes,
		CacheMaxObjects,
		CacheMaxBytes,
		EngineRequestDuration,
		EngineHitRate,
	)
}

// ListenAndServe starts the metrics listener endpoint when configured
func ListenAndServe(cfg *config.MetricsConfig) {
	if cfg != nil && cfg.ListenPort > 0 {
		go func() {
			log.Info("metrics http endpoint starting",
				log.Pairs{"address": cfg.ListenAddress, "port": fmt.Sprintf("%d", cfg.ListenPort)})

			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort), nil); err != nil {
				log.Error("unable to start metrics http server",
					log.Pairs{"detail": err.Error()})
			}
		}()
	}
}
