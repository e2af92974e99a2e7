package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/middleware"
)

// NewRouter mounts the diary API under /api.
//
// Routes:
//
//	GET    /api/entries                 → ListEntries
//	POST   /api/entries                 → CreateEntry
//	PUT    /api/entries/{id}            → UpdateEntry
//	DELETE /api/entries/{id}            → DeleteEntry
//	GET    /api/products                → Products
//	GET    /api/stats                   → Stats
//	GET    /api/export                  → Export
//	GET    /api/status                  → Status
//	POST   /api/sync/cloud              → SyncCloud
//	POST   /api/sync/mirror/download    → DownloadMirror
//	POST   /api/sync/mirror/upload      → UploadMirror
//	GET    /api/settings/mirror         → GetSettings
//	PUT    /api/settings/mirror         → PutSettings
//	DELETE /api/settings/mirror         → DeleteSettings
//	POST   /api/settings/mirror/test    → TestSettings
//	GET    /api/notifications           → Notifications
func NewRouter(h *DiaryHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/", h.CreateEntry)
			r.With(chiMiddleware.AllowContentType("application/json")).Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Get("/products", h.Products)
		r.Get("/stats", h.Stats)
		r.Get("/export", h.Export)
		r.Get("/status", h.Status)
		r.Get("/notifications", h.Notifications)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/cloud", h.SyncCloud)
			r.Post("/mirror/download", h.DownloadMirror)
			r.Post("/mirror/upload", h.UploadMirror)
		})

		r.Route("/settings/mirror", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.With(chiMiddleware.AllowContentType("application/json")).Put("/", h.PutSettings)
			r.Delete("/", h.DeleteSettings)
			r.With(chiMiddleware.AllowContentType("application/json")).Post("/test", h.TestSettings)
		})
	})

	return r
}
