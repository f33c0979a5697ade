// Package api exposes the backup service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/api/handlers"
	"github.com/Flocio/AgrisaleWS-sub002/internal/metrics"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/backup"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates the chi router for the backup API.
func NewRouter(logger zerolog.Logger, service backup.Service, collector *metrics.Collector, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	backupHandler := handlers.NewBackupHandler(logger, service)

	r.Route("/api/v1/backups", func(r chi.Router) {
		r.Get("/", backupHandler.GetAll)
		r.Post("/", backupHandler.Create)
		r.Delete("/", backupHandler.DeleteAll)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", backupHandler.GetSchedule)
			r.Post("/start", backupHandler.StartSchedule)
			r.Post("/stop", backupHandler.StopSchedule)
			r.Put("/interval", backupHandler.UpdateInterval)
		})

		r.Get("/settings", backupHandler.GetSettings)
		r.Put("/settings", backupHandler.UpdateSettings)

		r.Route("/{name}", func(r chi.Router) {
			r.Delete("/", backupHandler.Delete)
			r.Post("/restore", backupHandler.Restore)
		})
	})

	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request completed")
		})
	}
}
