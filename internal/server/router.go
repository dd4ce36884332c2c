// Package server wires handlers, middleware, and the HTTP listener.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyward-systems/proctorwatch/internal/handlers"
	"github.com/skyward-systems/proctorwatch/internal/middleware"
)

// NewRouter builds the engine's HTTP routing table.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Health(w, r)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/signals/score/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ScoreCategory(w, r)
	})

	mux.HandleFunc("/api/v1/signals/monitor", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Monitor(w, r)
	})

	mux.HandleFunc("/api/v1/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ListSessionFlags(w, r)
	})

	var handler http.Handler = mux
	handler = middleware.CORS(middleware.DefaultCORSConfig())(handler)
	handler = middleware.RequestID(handler)
	return handler
}
