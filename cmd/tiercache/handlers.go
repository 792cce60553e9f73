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
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache/tiered"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/config"
)

// registerRoutes attaches the management API to the router
func registerRoutes(router *mux.Router, cfg *config.Config, engine *tiered.Engine) {
	router.HandleFunc(cfg.Main.PingHandlerPath, pingHandler).Methods(http.MethodGet)
	router.HandleFunc("/cache/{key}", getHandler(engine)).Methods(http.MethodGet)
	router.HandleFunc("/cache/{key}", setHandler(engine)).Methods(http.MethodPut, http.MethodPost)
	router.HandleFunc("/cache/{key}", deleteHandler(engine)).Methods(http.MethodDelete)
	router.HandleFunc("/invalidate/{tag}", invalidateHandler(engine)).Methods(http.MethodPost)
	router.HandleFunc("/flush", flushHandler(engine)).Methods(http.MethodPost)
	router.HandleFunc("/stats", statsHandler(engine)).Methods(http.MethodGet)
}

func pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pong"))
}

func getHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		entry, err := engine.Get(r.Context(), key,
			&tiered.GetOptions{NoPromote: r.URL.Query().Get("nopromote") == "true"})
		if err == cache.ErrKNF {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(entry.Value)
	}
}

func setHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		opts := &tiered.SetOptions{}
		q := r.URL.Query()
		if v := q.Get("ttl"); v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid ttl", http.StatusBadRequest)
				return
			}
			opts.TTL = time.Duration(secs) * time.Second
		}
		if v := q.Get("priority"); v != "" {
			p, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "invalid priority", http.StatusBadRequest)
				return
			}
			opts.Priority = p
		}
		if v := q.Get("tags"); v != "" {
			opts.Tags = strings.Split(v, ",")
		}
		if v := q.Get("dependencies"); v != "" {
			opts.Dependencies = strings.Split(v, ",")
		}

		if err := engine.Set(r.Context(), key, body, opts); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !engine.Delete(r.Context(), mux.Vars(r)["key"]) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func invalidateHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.InvalidateByTag(mux.Vars(r)["tag"])
		w.WriteHeader(http.StatusAccepted)
	}
}

func flushHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Flush(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statsHandler(engine *tiered.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(engine.Stats())
	}
}
