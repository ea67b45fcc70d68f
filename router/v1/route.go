package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/vrpay/handler"
)

// Routes registers the authenticated API routes
func Routes(r chi.Router, payments *handler.PaymentHandler, exchanges *handler.ExchangeHandler) {
	// Checkout routes
	r.Route("/checkouts", func(r chi.Router) {
		r.Post("/", payments.CreateCheckout)
		r.Get("/{merchantTransactionId}", payments.GetCheckout)
		r.Get("/{merchantTransactionId}/status", payments.GetCheckoutStatus)
	})

	// Payment routes
	r.Route("/payments", func(r chi.Router) {
		r.Get("/{merchantTransactionId}", payments.GetPayment)
		r.Get("/{merchantTransactionId}/responses", payments.ListResponses)
		r.Get("/{merchantTransactionId}/exchanges", exchanges.TransactionExchanges)
	})

	// Exchange archive
	r.Route("/exchanges", func(r chi.Router) {
		r.Get("/stats", exchanges.Stats)
		r.Get("/errors", exchanges.RecentErrors)
	})

	// Result code lookup
	r.Get("/result-codes", handler.ListResultCategories)
	r.Get("/result-codes/{code}", handler.ClassifyResultCode)
}
