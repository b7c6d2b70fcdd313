package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/rideorders-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса заказов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Group(func(r chi.Router) {
		r.Use(h.limiters.Public.Middleware)

		r.Get("/health", h.Health)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.limiters.Strict.Middleware)
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.limiters.General.Middleware)
			r.Use(h.authMiddleware.Middleware)

			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "Not found", nil)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}
