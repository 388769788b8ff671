package router

import (
	"net/http"
	"time"

	"stockroom/internal/handler"
	"stockroom/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// A non-positive requestTimeout disables the per-request deadline.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	requestTimeout time.Duration,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Applied in order: RequestID -> RealIP -> Recovery -> Logging -> CORS -> Timeout
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestIDHeader)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if requestTimeout > 0 {
		r.Use(chimw.Timeout(requestTimeout))
	}

	r.Get("/health", handler.Health)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", productHandler.Create)
		r.Get("/", productHandler.List)
		r.Get("/{id}", productHandler.GetByID)
		r.Put("/{id}", productHandler.Update)
		r.Delete("/{id}", productHandler.Delete)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderHandler.Create)
		r.Get("/", orderHandler.List)
		r.Get("/customer/{name}", orderHandler.ListByCustomer)
		r.Get("/{id}", orderHandler.GetByID)
		r.Put("/{id}/status", orderHandler.UpdateStatus)
	})

	return r
}
