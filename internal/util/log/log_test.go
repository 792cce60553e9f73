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

package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
)

func TestConsoleLogger(t *testing.T) {
	l := ConsoleLogger("debug")
	if l.level != "debug" {
		t.Errorf("expected debug got %s", l.level)
	}
	l.Info("test entry", Pairs{"testKey": "testVal"})
}

func TestNewLogsToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "out.log")
	l := New(&config.LoggingConfig{LogFile: logFile, LogLevel: "info"}, 0)

	l.Info("test entry", Pairs{"testKey": "testVal"})
	l.Debug("should be filtered", Pairs{})
	l.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "event=\"test entry\"") || !strings.Contains(out, "testKey=testVal") {
		t.Errorf("log output missing expected fields: %s", out)
	}
	if strings.Contains(out, "should be filtered") {
		t.Errorf("debug entry should have been filtered at info level: %s", out)
	}
}

func TestNewInstanceID(t *testing.T) {
	dir := t.TempDir()
	l := New(&config.LoggingConfig{LogFile: filepath.Join(dir, "out.log"), LogLevel: "info"}, 3)

	l.Warn("test entry", Pairs{})
	l.Close()

	if _, err := os.Stat(filepath.Join(dir, "out.3.log")); err != nil {
		t.Errorf("expected instance-suffixed log file: %v", err)
	}
}

func TestFatalNoExit(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "out.log")
	l := New(&config.LoggingConfig{LogFile: logFile, LogLevel: "info"}, 0)

	// negative code logs without exiting
	l.Fatal(-1, "fatal entry", Pairs{"testKey": "testVal"})
	l.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "level=fatal") {
		t.Errorf("expected fatal entry in log: %s", data)
	}
}

func TestSetDefaultLogger(t *testing.T) {
	prev := current()
	defer SetDefaultLogger(prev)

	logFile := filepath.Join(t.TempDir(), "out.log")
	l := New(&config.LoggingConfig{LogFile: logFile, LogLevel: "info"}, 0)
	SetDefaultLogger(l)

	Info("test entry", Pairs{})
	l.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "test entry") {
		t.Errorf("expected entry via default logger: %s", data)
	}
}
