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

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/filesystem"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/memory"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/tiered"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/metrics"
)

func init() {
	metrics.Init()
}

func newTestRouter(t *testing.T) *mux.Router {
	cfg := config.NewConfig()
	cfg.Caching.Persistent.Filesystem.CachePath = t.TempDir()

	n := cache.NewNotifier()
	engine := tiered.New(cfg.Caching, memory.New(cfg.Caching, n),
		filesystem.New(cfg.Caching, n), n)
	if err := engine.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { engine.Close() })

	router := mux.NewRouter()
	registerRoutes(router, cfg, engine)
	return router
}

func doRequest(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestPingHandler(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/ping", "")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("unexpected ping response: %d %s", w.Code, w.Body.String())
	}
}

func TestCacheHandlers(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodGet, "/cache/k1", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 got %d", w.Code)
	}

	if w := doRequest(router, http.MethodPut,
		"/cache/k1?ttl=60&priority=5&tags=reports,daily", "somedata"); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 got %d: %s", w.Code, w.Body.String())
	}

	w := doRequest(router, http.MethodGet, "/cache/k1", "")
	if w.Code != http.StatusOK || w.Body.String() != "somedata" {
		t.Errorf("unexpected get response: %d %s", w.Code, w.Body.String())
	}

	if w := doRequest(router, http.MethodPut, "/cache/k1?ttl=abc", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid ttl got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPut, "/cache/k1?priority=abc", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid priority got %d", w.Code)
	}

	if w := doRequest(router, http.MethodDelete, "/cache/k1", ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 got %d", w.Code)
	}
	if w := doRequest(router, http.MethodDelete, "/cache/k1", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 got %d", w.Code)
	}
}

func TestInvalidateAndFlushHandlers(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodPost, "/invalidate/reports", ""); w.Code != http.StatusAccepted {
		t.Errorf("expected 202 got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPost, "/flush", ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 got %d", w.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	router := newTestRouter(t)

	doRequest(router, http.MethodPut, "/cache/k1", "somedata")
	doRequest(router, http.MethodGet, "/cache/k1", "")
	doRequest(router, http.MethodGet, "/cache/absent", "")

	w := doRequest(router, http.MethodGet, "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var s cache.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Sets != 1 || s.MemoryHits != 1 || s.Misses != 1 || s.Requests != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
}
