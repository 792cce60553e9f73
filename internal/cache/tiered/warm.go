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
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

// WarmSource names a batch of entries to preload into the cache. Either
// Entries or Producer must be set; Producer wins when both are.
type WarmSource struct {
	// Name identifies the source in logs and failure reports
	Name string
	// Entries are preloaded as-is
	Entries []*cache.Entry
	// Producer is invoked to materialize the entries to preload
	Producer func(ctx context.Context) ([]*cache.Entry, error)
}

// WarmFailure describes one entry or source that could not be warmed
type WarmFailure struct {
	// Source is the name of the WarmSource the failure belongs to
	Source string `json:"source"`
	// Key is the affected cache key, empty when the source itself failed
	Key string `json:"key,omitempty"`
	// Detail is the failure message
	Detail string `json:"detail"`
}

// WarmReport summarizes one warming pass
type WarmReport struct {
	// Warmed is the count of keys successfully preloaded
	Warmed int `json:"warmed"`
	// Keys lists the keys successfully preloaded
	Keys []string `json:"keys,omitempty"`
	// Failures lists the entries and sources that could not be warmed
	Failures []WarmFailure `json:"failures,omitempty"`
}

// Warm preloads the provided sources into the cache, bounded by the
// configured warm concurrency. Entries without a TTL receive the engine's
// default TTL. Failures are aggregated into the report rather than aborting
// the pass.
func (e *Engine) Warm(ctx context.Context, sources ...WarmSource) *WarmReport {
	report := &WarmReport{}
	var mtx sync.Mutex

	g := &errgroup.Group{}
	concurrency := e.cfg.WarmConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			entries := src.Entries
			if src.Producer != nil {
				var err error
				entries, err = src.Producer(ctx)
				if err != nil {
					mtx.Lock()
					report.Failures = append(report.Failures,
						WarmFailure{Source: src.Name, Detail: err.Error()})
					mtx.Unlock()
					return nil
				}
			}
			for _, entry := range entries {
				if entry == nil || entry.Key == "" {
					continue
				}
				if err := ctx.Err(); err != nil {
					mtx.Lock()
					report.Failures = append(report.Failures,
						WarmFailure{Source: src.Name, Key: entry.Key, Detail: err.Error()})
					mtx.Unlock()
					continue
				}
				if entry.TTL == 0 {
					entry.TTL = e.cfg.DefaultTTL
				}
				if err := e.storeEntry(entry); err != nil {
					mtx.Lock()
					report.Failures = append(report.Failures,
						WarmFailure{Source: src.Name, Key: entry.Key, Detail: err.Error()})
					mtx.Unlock()
					continue
				}
				mtx.Lock()
				report.Warmed++
				report.Keys = append(report.Keys, entry.Key)
				mtx.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	e.counters.addWarmedKeys(report.Warmed)
	log.Info("cache warming pass complete",
		log.Pairs{"sources": len(sources), "warmed": report.Warmed, "failures": len(report.Failures)})
	return report
}
