/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     slog request log (method, path, status, request id,
                 idempotency key, duration)
  4. CORS:       Cross-origin requests; exposes the replay header

ROUTE GROUPS:
  /health               Public
  /api/scenarios/demo   Public, registered outside production only
  /api/me               Any authenticated employee
  /api/* and /files/*   Managers only
  /createPdfForEmployees, /sendPdfToEmployees,
  /createAggregatedEmployeeData, /sendAggregatedEmployeeData
                        Legacy aliases of the /api operations

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/auth.go: token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/payslip-engine/auth"
)

// RouterConfig holds the router options that come from configuration.
type RouterConfig struct {
	CORSOrigins []string
	Production  bool
	FilesRoot   string // artifact store root served under /files
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, verifier *auth.Verifier, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderIdempotencyKey, middleware.RequestIDHeader},
		ExposedHeaders:   []string{HeaderReplayed, "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	if !cfg.Production && h.Seeder != nil {
		r.Post("/api/scenarios/demo", h.LoadDemoScenario)
	}

	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Get("/api/me", h.Me)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireManager)

			r.Post("/api/slips/generate", h.GenerateSlips)
			r.Post("/api/slips/send", h.SendSlips)
			r.Post("/api/reports/generate", h.GenerateReport)
			r.Post("/api/reports/send", h.SendReport)
			r.Post("/api/reports/export", h.ExportReport)
			r.Get("/api/archives", h.Archives)
			r.Get("/api/archives/browse", h.BrowseArchives)

			// Legacy operation names
			r.Post("/createPdfForEmployees", h.GenerateSlips)
			r.Post("/sendPdfToEmployees", h.SendSlips)
			r.Post("/createAggregatedEmployeeData", h.GenerateReport)
			r.Post("/sendAggregatedEmployeeData", h.SendReport)

			if cfg.FilesRoot != "" {
				r.Get("/files/*", h.Files(cfg.FilesRoot))
			}
		})
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if key := r.Header.Get(HeaderIdempotencyKey); key != "" {
				attrs = append(attrs, "idempotency_key", key)
			}
			if ww.Header().Get(HeaderReplayed) != "" {
				attrs = append(attrs, "replayed", true)
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}
