package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stockroom-core/internal/shell"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// View sessions
	r.Get(s.wsPath(), s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeNotFound(w, "no such endpoint")
		})
	})

	// Browser shell (embedded, or from disk in development)
	r.Handle("/*", shell.Handler(s.shellDir))

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/api/v1/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.hub.ClientCount(),
	})
}
