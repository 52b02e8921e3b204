package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP routing tree around a Handler
type Router struct {
	handler   *Handler
	staticDir string
}

// NewRouter creates the API router
func NewRouter(handler *Handler, staticDir string) *Router {
	return &Router{handler: handler, staticDir: staticDir}
}

// Routes returns the assembled http.Handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/version", rt.handler.GetVersion)
		r.Get("/capabilities", rt.handler.GetCapabilities)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", rt.handler.CreateJob)
			r.Post("/upload", rt.handler.UploadJob)
			r.Get("/current", rt.handler.GetCurrentJob)
		})

		r.Route("/models", func(r chi.Router) {
			r.Post("/preload", rt.handler.PreloadModel)
			r.Delete("/cache", rt.handler.ClearModelCache)
		})

		r.Route("/transcriptions", func(r chi.Router) {
			r.Get("/", rt.handler.GetAllTranscriptions)
			r.Get("/engine/{engine}", rt.handler.GetTranscriptionsByEngine)
		})

		r.Get("/ws", rt.handler.HandleWebSocket)
	})

	// Everything else is the browser UI
	r.Handle("/*", NewStaticFileHandler(rt.staticDir, rt.handler.logger))

	return r
}
