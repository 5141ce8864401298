// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api is the HTTP façade: recompute a vendor search, list stored
// vendor responses, and report health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ameyabhat/jetfinder-be/internal/models"
	"github.com/ameyabhat/jetfinder-be/internal/pipeline"
	"github.com/ameyabhat/jetfinder-be/internal/store"
)

// Recomputer re-runs a vendor search for a stored response.
type Recomputer interface {
	UpdateFlightSearch(ctx context.Context, req models.FlightUpdateRequest) (*models.VendorResponseRecord, error)
}

// Lister pages through a user's stored responses.
type Lister interface {
	List(ctx context.Context, q store.ListQuery) (*models.VendorResponsePage, error)
}

// HealthCheck is one dependency probe for /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HandlerConfig holds the handler's dependencies.
type HandlerConfig struct {
	Recomputer     Recomputer
	Lister         Lister
	HealthChecks   []HealthCheck
	RequestTimeout time.Duration

	// AllowedOrigins enables CORS for browser clients; empty disables it.
	AllowedOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	recompute Recomputer
	lister    Lister
	checks    []HealthCheck
	timeout   time.Duration
	origins   []string
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		recompute: cfg.Recomputer,
		lister:    cfg.Lister,
		checks:    cfg.HealthChecks,
		timeout:   timeout,
		origins:   cfg.AllowedOrigins,
	}
}

// Routes returns the router for all endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(h.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.ServeHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))
		r.Get("/", h.ServeRoot)
		r.Post("/recompute-flight-plan", h.ServeRecompute)
		r.Post("/recompute-flight-plan/", h.ServeRecompute)
		r.Get("/vendor-responses/{userID}", h.ServeVendorResponses)
	})

	return r
}

// ServeRoot handles GET /.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to JetFinder API"})
}

// ServeRecompute handles POST /recompute-flight-plan/.
func (h *Handler) ServeRecompute(w http.ResponseWriter, r *http.Request) {
	var req models.FlightUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.MessageID) == "" {
		writeError(w, http.StatusBadRequest, "user_id and message_id are required")
		return
	}
	if req.SearchRadius != nil && *req.SearchRadius < 0 {
		writeError(w, http.StatusBadRequest, "search_radius must not be negative")
		return
	}

	rec, err := h.recompute.UpdateFlightSearch(r.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrNoVendorEmailsFound):
		writeError(w, http.StatusBadRequest, "No vendor emails found")
	case err != nil:
		slog.Error("recompute failed",
			"user_id", req.UserID,
			"email_id", req.MessageID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Unknown error")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

// ServeVendorResponses handles GET /vendor-responses/{userID}.
func (h *Handler) ServeVendorResponses(w http.ResponseWriter, r *http.Request) {
	q := store.ListQuery{
		UserID:    chi.URLParam(r, "userID"),
		Page:      1,
		PageSize:  store.DefaultPageSize,
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	var err error
	if q.Page, err = intParam(r, "page", q.Page); err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if q.PageSize, err = intParam(r, "page_size", q.PageSize); err != nil {
		writeError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	page, err := h.lister.List(r.Context(), q)
	if err != nil {
		slog.Error("list vendor responses failed", "user_id", q.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list vendor responses")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ServeHealth handles GET /health.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			slog.Warn("health check failed", "check", c.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"failed": c.Name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
