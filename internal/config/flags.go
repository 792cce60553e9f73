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
	"flag"
)

const (
	// Command-line flags
	cfConfig      = "config"
	cfVersion     = "version"
	cfLogLevel    = "log-level"
	cfInstanceID  = "instance-id"
	cfCachePath   = "cache-path"
	cfMetricsPort = "metrics-port"

	// DefaultConfigPath defines the default location of the TierCache config file
	DefaultConfigPath = "/etc/tiercache/tiercache.conf"
)

// Flags holds the values for whitelisted command-line flags
type Flags struct {
	PrintVersion      bool
	ConfigPath        string
	customPath        bool
	CachePath         string
	MetricsListenPort int
	LogLevel          string
	InstanceID        int
}

// parseFlags parses the provided arguments into a Flags object
func parseFlags(applicationName string, arguments []string) (*Flags, error) {
	flags := &Flags{}

	f := flag.NewFlagSet(applicationName, flag.ContinueOnError)
	f.BoolVar(&flags.PrintVersion, cfVersion, false, "Prints the application version")
	f.StringVar(&flags.ConfigPath, cfConfig, "", "Path to the config file")
	f.StringVar(&flags.LogLevel, cfLogLevel, "", "Level of Logging to use (debug, info, warn, error)")
	f.IntVar(&flags.InstanceID, cfInstanceID, 0,
		"Instance ID is for running multiple processes from the same config while logging to their own files")
	f.StringVar(&flags.CachePath, cfCachePath, "", "Path to the persistent tier storage location")
	f.IntVar(&flags.MetricsListenPort, cfMetricsPort, 0, "Port that the /metrics endpoint will listen on")
	if err := f.Parse(arguments); err != nil {
		return nil, err
	}

	if flags.ConfigPath != "" {
		flags.customPath = true
	} else {
		flags.ConfigPath = DefaultConfigPath
	}

	return flags, nil
}

// loadFlags applies parsed flag values over the file- and env-provided config
func (c *Config) loadFlags(flags *Flags) {
	if flags.CachePath != "" {
		c.Caching.Persistent.Filesystem.CachePath = flags.CachePath
	}
	if flags.MetricsListenPort > 0 {
		c.Metrics.ListenPort = flags.MetricsListenPort
	}
	if flags.LogLevel != "" {
		c.Logging.LogLevel = flags.LogLevel
	}
	if flags.InstanceID > 0 {
		c.Main.InstanceID = flags.InstanceID
	}
}
