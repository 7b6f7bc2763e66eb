// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sadikovi/codesearchd/internal/cache"
	"github.com/sadikovi/codesearchd/internal/codeserr"
	"github.com/sadikovi/codesearchd/internal/search"
)

// Handlers binds an Engine and a Cache to the HTTP surface named in §6 plus
// the supplemented cache-stats and ping endpoints.
type Handlers struct {
	engine *search.Engine
	cache  *cache.Cache
	logger *zap.Logger
}

// NewHandlers builds a Handlers. A nil logger disables logging.
func NewHandlers(engine *search.Engine, c *cache.Cache, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{engine: engine, cache: c, logger: logger}
}

// Register mounts every handler on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/search", h.handleSearch)
	mux.HandleFunc("/cache/register", h.handleCacheRegister)
	mux.HandleFunc("/cache/stats", h.handleCacheStats)
	mux.HandleFunc("/ping", h.handlePing)
}

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, codeserr.Wrap(codeserr.Serde, err, "failed to decode request"))
		return
	}

	res, err := h.engine.Find(r.Context(), req.Dir, req.Pattern, search.Options{
		UseRegex: req.UseRegex,
		UseCache: req.UseCache,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSearchResult(res))
}

func (h *Handlers) handleCacheRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req CacheRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, codeserr.Wrap(codeserr.Serde, err, "failed to decode request"))
		return
	}
	if req.Dir == "" {
		writeError(w, codeserr.New(codeserr.NotADirectory, "dir must not be empty"))
		return
	}

	h.cache.Register(req.Dir)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, FromCacheStatistics(h.cache.Stats()))
}

func (h *Handlers) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ce *codeserr.Error
	if errors.As(err, &ce) {
		status = ce.Code.HTTPStatus()
	}
	writeJSON(w, status, ErrorResponse{Err: true, Msg: err.Error()})
}
