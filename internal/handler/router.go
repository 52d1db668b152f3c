package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/stitchmart-system/internal/middleware"
	"github.com/mmeshcher/stitchmart-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса ститчмарт.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		// Обратные вызовы платёжного шлюза приходят без cookie авторизации.
		r.Post("/payments/callback/success", h.PaymentSuccessCallback)
		r.Post("/payments/callback/fail", h.PaymentFailureCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/pricing/quote", h.CalculatePrice)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Get("/orders/{orderID}/payments", h.GetOrderPayments)
			r.Post("/orders/{orderID}/payments", h.InitiatePayment)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleTailor, model.RoleAdmin))
				r.Post("/orders/{orderID}/status", h.ChangeOrderStatus)
			})

			r.Route("/admin/pricing/rules", func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleAdmin))

				r.Post("/", h.CreateRule)
				r.Get("/", h.ListRules)
				r.Put("/{ruleID}", h.UpdateRule)
				r.Delete("/{ruleID}", h.DeactivateRule)
			})
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
