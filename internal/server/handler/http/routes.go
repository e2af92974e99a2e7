package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/FoodDiary/internal/middleware"
)

const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// NewRouter mounts the snapshot and mirror endpoints under /api.
//
// Routes:
//
//	GET|PUT|POST|DELETE /api/snapshot  → snapshotHandler
//	GET|PUT|POST|DELETE /api/mirror    → mirrorHandler (X-DB-Config required)
//
// Every route answers CORS preflights and logs the request. Unsupported
// methods get a JSON 405.
func NewRouter(
	snapshotHandler *SnapshotHandler,
	mirrorHandler *MirrorHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.CORS(allowedMethods))

	r.MethodNotAllowed(MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", snapshotHandler.Get)
			r.Put("/", snapshotHandler.Put)
			r.Post("/", snapshotHandler.Post)
			r.Delete("/", snapshotHandler.Delete)
		})
		r.Route("/mirror", func(r chi.Router) {
			r.Get("/", mirrorHandler.Get)
			r.Put("/", mirrorHandler.Put)
			r.Post("/", mirrorHandler.Post)
			r.Delete("/", mirrorHandler.Delete)
		})
	})

	return r
}
