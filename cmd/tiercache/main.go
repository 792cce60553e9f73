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

// Package main is the main package for the TierCache application
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/registration"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/tiered"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

const (
	applicationName    = "tiercache"
	applicationVersion = "1.0.0"
)

func main() {

	cfg, flags, err := config.Load(applicationName, applicationVersion, os.Args[1:])
	if err != nil {
		// using fmt.Println because the logger can't be instantiated without
		// the config loaded, and the config load just failed
		fmt.Println("Could not load configuration:", err.Error())
		os.Exit(1)
	}

	if flags.PrintVersion {
		fmt.Println(applicationVersion)
		os.Exit(0)
	}

	logger := log.New(cfg.Logging, cfg.Main.InstanceID)
	log.SetDefaultLogger(logger)
	defer logger.Close()

	log.Info("application startup", log.Pairs{"name": applicationName, "version": applicationVersion})
	for _, w := range cfg.LoaderWarnings {
		log.Warn(w, log.Pairs{})
	}

	metrics.Init()
	metrics.ListenAndServe(cfg.Metrics)

	notifier := cache.NewNotifier()
	memoryTier := registration.NewMemoryTier(cfg.Caching, notifier)
	persistentTier, err := registration.NewPersistentTier(cfg.Caching, notifier)
	if err != nil {
		log.Fatal(1, "unable to construct persistent tier", log.Pairs{"detail": err.Error()})
	}

	engine := tiered.New(cfg.Caching, memoryTier, persistentTier, notifier)
	if err := engine.Connect(); err != nil {
		log.Fatal(1, "unable to connect cache engine", log.Pairs{"detail": err.Error()})
	}

	router := mux.NewRouter()
	registerRoutes(router, cfg, engine)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Main.ListenAddress, cfg.Main.ListenPort),
		Handler: handlers.CompressHandler(router),
	}

	go func() {
		log.Info("management http endpoint starting",
			log.Pairs{"address": cfg.Main.ListenAddress, "port": cfg.Main.ListenPort})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(1, "unable to start management http server", log.Pairs{"detail": err.Error()})
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("shutting down", log.Pairs{"signal": sig.String()})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Caching.DrainTimeout+5*time.Second)
	defer cancel()
	server.Shutdown(ctx)

	if err := engine.Close(); err != nil {
		log.Error("cache engine shutdown error", log.Pairs{"detail": err.Error()})
		os.Exit(1)
	}
	log.Info("shutdown complete", log.Pairs{})
}
