package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/merchant-dashboard/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware панели мерчанта.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/error", h.ClearError)

			r.Group(func(r chi.Router) {
				r.Use(h.gate.Middleware)

				r.Post("/refresh", h.RefreshUser)
				r.Post("/merchant/refresh", h.RefreshMerchant)
				r.Post("/onboarding/refresh", h.RefreshOnboarding)
			})
		})

		r.Route("/amounts", func(r chi.Router) {
			r.Post("/minor", h.ToMinorUnits)
			r.Get("/display", h.DisplayAmount)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
