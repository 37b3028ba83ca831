// Package api provides HTTP routing and middleware infrastructure for the
// media integrity service.
//
// Routing is built on one gorilla/mux router; each concern's handler set
// (catalog queries, scan/cleanup/file-changes control, administration,
// reports) registers its routes on it through its Mount method. A small
// middleware chain handles CORS and request tracing; rate limiting wraps
// the whole router (see RateLimiter).
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mediaguard/internal/logger"
)

// MiddlewareFunc wraps an http.Handler with cross-cutting behavior.
type MiddlewareFunc func(http.Handler) http.Handler

// NewRouter builds the top-level mux.Router with CORS and tracing
// middleware already attached. Callers register concern-specific
// routes directly on the returned router.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		RespondError(w, http.StatusNotFound, "no such route")
	})
	return r
}

// corsMiddleware applies permissive CORS headers to every response, per
// spec.md §6 ("CORS is permissive for API and streaming endpoints").
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, Content-Range, Accept-Ranges")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware traces every request at TRACE level, matching the
// teacher's low-overhead request logging.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Trace("%s %s %s - %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

// StatusHandler returns a trivial liveness handler, exempt from rate
// limiting, mirroring the teacher's /api/v1/status endpoint.
func StatusHandler(appName, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"app":       appName,
			"version":   version,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
