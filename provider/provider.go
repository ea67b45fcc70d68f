package provider

import (
	"context"
	"time"

	"github.com/mstgnz/vrpay/infra/opensearch"
	"github.com/mstgnz/vrpay/provider/resultcode"
)

// Exchange is one HTTP round trip with the gateway, kept verbatim
type Exchange struct {
	Operation  string            `json:"operation"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body"`
	Duration   time.Duration     `json:"duration"`
}

// Gateway is the VR Payment API as the service uses it.
// Implementations return the Exchange whenever an HTTP answer was received,
// together with an error wrapping ErrGateway for non-2xx status codes.
type Gateway interface {
	// CreateCheckout prepares a checkout for p and returns the gateway answer
	CreateCheckout(ctx context.Context, p *Payment, extra map[string]string) (*Exchange, error)

	// QueryResourcePath fetches the status behind a resource path returned to the shopper
	QueryResourcePath(ctx context.Context, resourcePath string) (*Exchange, error)

	// QueryPaymentID fetches a payment by the gateway's payment id
	QueryPaymentID(ctx context.Context, paymentID string) (*Exchange, error)

	// QueryMerchantTransactionID fetches payments by merchant transaction id
	QueryMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*Exchange, error)

	// EntityID returns the configured entity
	EntityID() string

	// Sandbox reports whether the test platform is used
	Sandbox() bool

	// WidgetScriptURL returns the payment widget script for a checkout
	WidgetScriptURL(checkoutID string) string
}

// OwnerKey names a payment column used when linking a response to its payment
type OwnerKey string

const (
	// OwnerByGatewayID matches either the gateway payment id or the checkout id
	OwnerByGatewayID OwnerKey = "gateway_id"
	// OwnerByMerchantTransactionID matches the merchant transaction id
	OwnerByMerchantTransactionID OwnerKey = "merchant_transaction_id"
	// OwnerByReferencedID matches the gateway payment id of a referenced payment
	OwnerByReferencedID OwnerKey = "referenced_id"
)

// ResponseFilter selects stored responses. A response matches when its
// classification intersects Any (if set) and does not intersect None.
type ResponseFilter struct {
	PaymentID int64
	Kind      ResponseKind
	Any       resultcode.Set
	None      resultcode.Set
	Limit     int
}

// Store persists payments, responses and webhooks
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	UpdatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	GetPaymentByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*Payment, error)
	GetPaymentByCheckoutID(ctx context.Context, checkoutID string) (*Payment, error)
	FindPayments(ctx context.Context, key OwnerKey, value string) ([]Payment, error)

	// SaveResponse stores r and sets its ID and CreatedAt
	SaveResponse(ctx context.Context, r *GatewayResponse) error
	// ListResponses returns matching responses, newest first
	ListResponses(ctx context.Context, filter ResponseFilter) ([]GatewayResponse, error)

	SaveWebhook(ctx context.Context, w *Webhook) error
	// WebhookExists reports whether a webhook with fingerprint was stored
	WebhookExists(ctx context.Context, fingerprint string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// Deduper remembers webhook fingerprints
type Deduper interface {
	// Claim marks fingerprint as in progress and reports false when it was already claimed
	Claim(ctx context.Context, fingerprint string) (bool, error)
	// Release forgets a claim so a retry of the delivery is processed again
	Release(ctx context.Context, fingerprint string) error
}

// EventPublisher ships outcome events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// MetricsRecorder receives counters and latencies of the service
type MetricsRecorder interface {
	ObserveResponse(ctx context.Context, kind string, outcome string, categories []string)
	ObserveWebhook(ctx context.Context, result string)
	ObserveGatewayCall(ctx context.Context, operation string, statusCode int, d time.Duration)
}

// ExchangeLogger archives gateway exchanges
type ExchangeLogger interface {
	LogExchange(ctx context.Context, log opensearch.ExchangeLog) error
}

type noopDeduper struct{}

func (noopDeduper) Claim(context.Context, string) (bool, error) { return true, nil }
func (noopDeduper) Release(context.Context, string) error       { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ObserveResponse(context.Context, string, string, []string)      {}
func (noopMetrics) ObserveWebhook(context.Context, string)                         {}
func (noopMetrics) ObserveGatewayCall(context.Context, string, int, time.Duration) {}

type noopExchangeLogger struct{}

func (noopExchangeLogger) LogExchange(context.Context, opensearch.ExchangeLog) error { return nil }
