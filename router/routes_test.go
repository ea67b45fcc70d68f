package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/vrpay/handler"
	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/mstgnz/vrpay/provider/webhook"
	"github.com/stretchr/testify/assert"
)

const testAPIKey = "test-api-key"

// notFoundService answers every lookup with ErrPaymentNotFound
type notFoundService struct{}

func (notFoundService) CreateCheckout(context.Context, provider.CheckoutRequest) (*provider.Payment, *provider.GatewayResponse, error) {
	return nil, nil, provider.ErrDuplicateTransaction
}

func (notFoundService) CheckoutInfo(context.Context, string) (*provider.CheckoutInfo, error) {
	return nil, provider.ErrPaymentNotFound
}

func (notFoundService) CheckoutStatusByMerchantTransactionID(context.Context, string) (*provider.Payment, *provider.GatewayResponse, error) {
	return nil, nil, provider.ErrPaymentNotFound
}

func (notFoundService) CompleteReturn(_ context.Context, checkoutID, _ string) (resultcode.Outcome, *provider.Payment, error) {
	if checkoutID == "" {
		return resultcode.OutcomeUnknown, nil, provider.ErrMissingParameter
	}
	return resultcode.OutcomeUnknown, nil, provider.ErrPaymentNotFound
}

func (notFoundService) QueryPayment(context.Context, string) (*provider.GatewayResponse, error) {
	return nil, provider.ErrPaymentNotFound
}

func (notFoundService) ListResponses(context.Context, string, resultcode.Outcome) ([]provider.GatewayResponse, error) {
	return nil, provider.ErrPaymentNotFound
}

func (notFoundService) HandleWebhook(context.Context, webhook.Envelope) (*provider.WebhookResult, error) {
	return nil, provider.ErrDuplicateWebhook
}

type fakeStorage struct{}

func (fakeStorage) Ping(context.Context) error { return nil }

func (fakeStorage) Stats(context.Context) (map[string]any, error) {
	return map[string]any{"payments": int64(0)}, nil
}

func newTestRouter(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	Routes(r, Deps{
		APIKey:    testAPIKey,
		Payments:  handler.NewPaymentHandler(notFoundService{}, handler.RedirectURLs{Error: "/status/error"}),
		Exchanges: handler.NewExchangeHandler(nil, true),
		Health:    handler.NewHealthHandler(fakeStorage{}, nil, "test"),
		Metrics:   metrics,
	})
	return r
}

func TestRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r := newTestRouter(metrics)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		auth       bool
		expectCode int
	}{
		{"checkout_requires_auth", http.MethodGet, "/v1/checkouts/order-1", "", false, http.StatusUnauthorized},
		{"checkout_not_found", http.MethodGet, "/v1/checkouts/order-1", "", true, http.StatusNotFound},
		{"checkout_status_not_found", http.MethodGet, "/v1/checkouts/order-1/status", "", true, http.StatusNotFound},
		{"payment_not_found", http.MethodGet, "/v1/payments/order-1", "", true, http.StatusNotFound},
		{"responses_not_found", http.MethodGet, "/v1/payments/order-1/responses", "", true, http.StatusNotFound},
		{"exchanges_disabled", http.MethodGet, "/v1/payments/order-1/exchanges", "", true, http.StatusServiceUnavailable},
		{"exchange_stats_disabled", http.MethodGet, "/v1/exchanges/stats", "", true, http.StatusServiceUnavailable},
		{"exchange_errors_disabled", http.MethodGet, "/v1/exchanges/errors", "", true, http.StatusServiceUnavailable},
		{"result_code_categories", http.MethodGet, "/v1/result-codes", "", true, http.StatusOK},
		{"result_code_lookup", http.MethodGet, "/v1/result-codes/000.100.110", "", true, http.StatusOK},
		{"return_missing_parameters", http.MethodGet, "/return", "", false, http.StatusBadRequest},
		{"return_unknown_checkout", http.MethodGet, "/return?id=CHK-1&resourcePath=/v1/checkouts/CHK-1/payment", "", false, http.StatusNotFound},
		{"webhook_without_headers", http.MethodPost, "/webhooks", "00", false, http.StatusBadRequest},
		{"health", http.MethodGet, "/health", "", false, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", false, http.StatusOK},
		{"unknown_route", http.MethodGet, "/nope", "", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+testAPIKey)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectCode, rec.Code)
		})
	}
}

func TestRoutes_WithoutMetrics(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodDelete, "/webhooks", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
