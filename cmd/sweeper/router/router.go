// Package router configures the sweep runner's status HTTP API.
//
// Routes:
//   - GET /run/current?run=<name> - Retrieve the latest run record
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// The run record endpoint serves partial records while a sweep is in
// progress, so the curve can be watched point by point. Records older
// than the stale threshold carry an X-Coldatom-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synqs/coldatom/pkg/httpx"
	"github.com/synqs/coldatom/pkg/storage"
)

var runNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures the status API endpoints.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.HandleFunc("/run/current", handleGetRun(store, staleAfter, logger))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetRun returns a handler for GET /run/current?run=<name>.
func handleGetRun(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := r.URL.Query().Get("run")
		if run == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "run parameter required")
			return
		}

		if !runNameRegex.MatchString(run) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid run name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		record, found, err := store.GetLatest(ctx, run)
		if err != nil {
			logger.Error("failed to get run record", "run", run, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("record not found for run %q", run))
			return
		}

		if staleAfter > 0 && time.Since(record.GeneratedAt) > staleAfter {
			w.Header().Set("X-Coldatom-Stale", "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, record); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
