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

import (
	"fmt"
)

// Load returns the Application Configuration, starting with a default config,
// then overriding with any provided config file, then env vars, and finally flags
func Load(applicationName string, applicationVersion string, arguments []string) (*Config, *Flags, error) {
	c := NewConfig()

	flags, err := parseFlags(applicationName, arguments)
	if err != nil {
		return nil, nil, err
	}
	if flags.PrintVersion {
		return c, flags, nil
	}

	if err := c.loadFile(flags.ConfigPath); err != nil && flags.customPath {
		// a user-provided path couldn't be loaded. return the error for the
		// application to handle
		return nil, flags, err
	} else if err != nil {
		c.LoaderWarnings = append(c.LoaderWarnings,
			fmt.Sprintf("default config file not loaded, using defaults (%s)", flags.ConfigPath))
	}

	c.loadEnvVars()
	c.loadFlags(flags)

	if err := c.validate(); err != nil {
		return nil, flags, err
	}

	c.setSyntheticValues()

	return c, flags, nil
}

// validate rejects unusable configurations before any traffic is served
func (c *Config) validate() error {
	if !contains(WritePolicyNames, c.Caching.WritePolicy) {
		return fmt.Errorf("invalid write_policy [%s]", c.Caching.WritePolicy)
	}
	if !contains(TierTypeNames, c.Caching.Persistent.TierType) {
		return fmt.Errorf("invalid persistent tier_type [%s]", c.Caching.Persistent.TierType)
	}
	if !contains(EvictionPolicyNames, c.Caching.Memory.EvictionPolicy) {
		return fmt.Errorf("invalid memory eviction_policy [%s]", c.Caching.Memory.EvictionPolicy)
	}
	if f := c.Caching.Memory.EvictionBatchFraction; f <= 0 || f > 1 {
		return fmt.Errorf("invalid eviction_batch_fraction [%f]", f)
	}
	if c.Caching.WritebackWorkers < 1 {
		return fmt.Errorf("invalid writeback_workers [%d]", c.Caching.WritebackWorkers)
	}
	if c.Caching.WritebackQueueDepth < 1 {
		return fmt.Errorf("invalid writeback_queue_depth [%d]", c.Caching.WritebackQueueDepth)
	}
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
