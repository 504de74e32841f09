package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the HTTP handler tree: the upload control-plane routes
// the client library talks to, plus the bucket/object browse routes.
func NewRouter(h *Handler, logger *slog.Logger, corsCfg CORSConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/cookbook", h.Cookbook)
			r.Post("/presign", h.Presign)
			r.Post("/multipart", h.InitiateMultipart)
			r.Post("/multipart/part-url", h.PartURL)
			r.Post("/multipart/complete", h.CompleteMultipart)
			r.Post("/multipart/abort", h.AbortMultipart)
			r.Post("/proxy", h.ProxyUpload)
		})

		r.Get("/buckets", h.ListBuckets)
		r.Route("/buckets/{bucket}", func(r chi.Router) {
			r.Get("/objects", h.ListObjects)
			r.Get("/objects/*", h.GetObject)
			r.Delete("/objects/*", h.DeleteObject)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	return r
}
