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

// Package registration constructs cache tiers from configuration
package registration

import (
	"fmt"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/badger"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/bbolt"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/filesystem"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/memory"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
)

// NewMemoryTier returns an unconnected memory tier for the provided
// configuration
func NewMemoryTier(cfg *config.CachingConfig, notifier *cache.Notifier) cache.Tier {
	return memory.New(cfg, notifier)
}

// NewPersistentTier returns an unconnected persistent tier of the type named
// in the provided configuration
func NewPersistentTier(cfg *config.CachingConfig, notifier *cache.Notifier) (cache.Tier, error) {
	switch cfg.Persistent.TierType {
	case "filesystem":
		return filesystem.New(cfg, notifier), nil
	case "bbolt":
		return bbolt.New(cfg, notifier), nil
	case "badger":
		return badger.New(cfg, notifier), nil
	}
	return nil, fmt.Errorf("invalid persistent tier type: %s", cfg.Persistent.TierType)
}
