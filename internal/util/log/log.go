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

// Package log provides logging functionality to the application
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Pairs represents a key=value pair that helps to describe a log event
type Pairs map[string]interface{}

// Logger is a container for the underlying log provider
type Logger struct {
	logger kitlog.Logger
	closer io.Closer
	level  string
}

var (
	defaultLogger   *Logger
	defaultLoggerMx sync.Mutex
)

func init() {
	defaultLogger = ConsoleLogger("info")
}

// SetDefaultLogger sets the package-level logger used by the convenience functions
func SetDefaultLogger(l *Logger) {
	defaultLoggerMx.Lock()
	defaultLogger = l
	defaultLoggerMx.Unlock()
}

func current() *Logger {
	defaultLoggerMx.Lock()
	l := defaultLogger
	defaultLoggerMx.Unlock()
	return l
}

func mapToArray(event string, detail Pairs) []interface{} {
	a := make([]interface{}, (len(detail)*2)+2)
	var i int

	// Ensure the log level is the first Pair in the output order (after prefixes)
	if level, ok := detail["level"]; ok {
		a[0] = "level"
		a[1] = level
		delete(detail, "level")
		i += 2
	}

	// Ensure the event description is the second Pair in the output order (after prefixes)
	a[i] = "event"
	a[i+1] = event
	i += 2

	for k, v := range detail {
		a[i] = k
		a[i+1] = v
		i += 2
	}
	return a
}

// ConsoleLogger returns a Logger object that prints log events to the Console
func ConsoleLogger(logLevel string) *Logger {
	l := &Logger{}

	wr := os.Stdout

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(wr))
	logger = kitlog.With(logger,
		"time", kitlog.DefaultTimestampUTC,
		"app", "tiercache",
		"caller", kitlog.Valuer(func() interface{} {
			return pkgCaller{stack.Caller(6)}
		}),
	)

	l.level = strings.ToLower(logLevel)
	l.logger = filtered(logger, l.level)

	return l
}

// New returns a Logger for the provided logging configuration. The returned
// Logger will write to files distinguished from other Loggers by the instance
// string.
func New(cfg *config.LoggingConfig, instanceID int) *Logger {
	l := &Logger{}

	var wr io.Writer

	if cfg.LogFile == "" {
		wr = os.Stdout
	} else {
		logFile := cfg.LogFile
		if instanceID > 0 {
			logFile = strings.Replace(logFile, ".log", "."+strconv.Itoa(instanceID)+".log", 1)
		}

		wr = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    256,  // megabytes
			MaxBackups: 80,   // 256 megs @ 80 backups is 20GB of Logs
			MaxAge:     7,    // days
			Compress:   true, // Compress Rolled Backups
		}
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(wr))
	logger = kitlog.With(logger,
		"time", kitlog.DefaultTimestampUTC,
		"app", "tiercache",
		"caller", kitlog.Valuer(func() interface{} {
			return pkgCaller{stack.Caller(6)}
		}),
	)

	l.level = strings.ToLower(cfg.LogLevel)
	l.logger = filtered(logger, l.level)

	if c, ok := wr.(io.Closer); ok && c != nil {
		l.closer = c
	}

	return l
}

func filtered(logger kitlog.Logger, logLevel string) kitlog.Logger {
	switch logLevel {
	case "debug", "trace":
		return level.NewFilter(logger, level.AllowDebug())
	case "warn":
		return level.NewFilter(logger, level.AllowWarn())
	case "error":
		return level.NewFilter(logger, level.AllowError())
	default:
		return level.NewFilter(logger, level.AllowInfo())
	}
}

// Info sends an "INFO" event to the default Logger
func Info(event string, detail Pairs) {
	current().Info(event, detail)
}

// Warn sends a "WARN" event to the default Logger
func Warn(event string, detail Pairs) {
	current().Warn(event, detail)
}

// Error sends an "ERROR" event to the default Logger
func Error(event string, detail Pairs) {
	current().Error(event, detail)
}

// Debug sends a "DEBUG" event to the default Logger
func Debug(event string, detail Pairs) {
	current().Debug(event, detail)
}

// Fatal sends a "FATAL" event to the default Logger and exits the program
// with the provided exit code
func Fatal(code int, event string, detail Pairs) {
	current().Fatal(code, event, detail)
}

// Info sends an "INFO" event to the Logger
func (l *Logger) Info(event string, detail Pairs) {
	level.Info(l.logger).Log(mapToArray(event, detail)...)
}

// Warn sends a "WARN" event to the Logger
func (l *Logger) Warn(event string, detail Pairs) {
	level.Warn(l.logger).Log(mapToArray(event, detail)...)
}

// Error sends an "ERROR" event to the Logger
func (l *Logger) Error(event string, detail Pairs) {
	level.Error(l.logger).Log(mapToArray(event, detail)...)
}

// Debug sends a "DEBUG" event to the Logger
func (l *Logger) Debug(event string, detail Pairs) {
	level.Debug(l.logger).Log(mapToArray(event, detail)...)
}

// Fatal sends a "FATAL" event to the Logger and exits the program with the
// provided exit code. A negative code skips the exit, which is used in tests.
func (l *Logger) Fatal(code int, event string, detail Pairs) {
	// go-kit/log/level does not support Fatal, so implemented separately here
	if detail == nil {
		detail = Pairs{}
	}
	detail["level"] = "fatal"
	l.logger.Log(mapToArray(event, detail)...)
	if code >= 0 {
		os.Exit(code)
	}
}

// Close closes any opened file handles that were used for logging.
func (l *Logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

// Log implements the go-kit log.Logger interface
func (l *Logger) Log(keyvals ...interface{}) error {
	return l.logger.Log(keyvals...)
}

// pkgCaller wraps a stack.Call to make the default string output include the
// package path.
type pkgCaller struct {
	c stack.Call
}

// String returns a path from the call stack that is relative to the root of the project
func (pc pkgCaller) String() string {
	return strings.TrimPrefix(fmt.Sprintf("%+v", pc.c), "github.com/a2z2k25/BUMBA-2.0-sub007/internal/")
}
