// Package handler provides HTTP handlers for all API endpoints.
// Handlers read the players collection directly and cache encoded
// responses with an ETag.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/albapepper/mercato-data/internal/api/respond"
	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/runlog"
	"github.com/albapepper/mercato-data/internal/store"
)

// Pinger checks backing store connectivity. *db.Pool implements it.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	players store.Collection
	runs    runlog.Log
	db      Pinger
	cache   *cache.Cache
	ttl     time.Duration // player responses
	now     func() time.Time
}

// New creates a Handler with shared dependencies. runs and db may be nil.
func New(players store.Collection, runs runlog.Log, db Pinger, c *cache.Cache) *Handler {
	return &Handler{
		players: players,
		runs:    runs,
		db:      db,
		cache:   c,
		ttl:     cache.TTLPlayers,
		now:     time.Now,
	}
}

// WithTTL sets how long player responses stay cached. d <= 0 keeps the
// default.
func (h *Handler) WithTTL(d time.Duration) *Handler {
	if d > 0 {
		h.ttl = d
	}
	return h
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and available optimizations.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":    "Mercato Data API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"optimizations": []string{
			"pgxpool_connection_pooling",
			"prepared_statements",
			"gzip_compression",
			"in_memory_cache",
			"etag_support",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.timestamp(),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"database":  "not_configured",
			"timestamp": h.timestamp(),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": h.timestamp(),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": h.timestamp(),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// serveCached answers from cache when possible, otherwise calls build,
// encodes its result and caches it. build reports its own errors to w and
// returns ok=false.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, build func() (any, bool)) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, ok := build()
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.Fail(w, respond.CodeEncodeFailed, "Failed to encode response")
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}
