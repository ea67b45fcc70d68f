package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/vrpay/handler"
	"github.com/mstgnz/vrpay/infra/middle"
	"github.com/mstgnz/vrpay/infra/response"
	v1 "github.com/mstgnz/vrpay/router/v1"
)

// Deps are the handlers mounted by Routes. Metrics may be nil.
type Deps struct {
	APIKey    string
	Payments  *handler.PaymentHandler
	Exchanges *handler.ExchangeHandler
	Health    *handler.HealthHandler
	Metrics   http.Handler
}

// Routes mounts the public shopper and gateway routes and the
// authenticated /v1 API
func Routes(r chi.Router, d Deps) {
	// Called by the payment widget and the gateway, no auth required
	r.Get("/return", d.Payments.Return)
	r.Post("/webhooks", d.Payments.Webhook)

	r.Get("/health", d.Health.CheckHealth)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.AuthMiddleware(d.APIKey))
		v1.Routes(r, d.Payments, d.Exchanges)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})
}
