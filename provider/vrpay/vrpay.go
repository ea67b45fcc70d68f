// Package vrpay is the VR Payment (Open Payment Platform) gateway client.
package vrpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/vrpay/provider"
)

const (
	// API URLs
	DefaultTestURL = "https://test.vr-pay-ecommerce.de/"
	DefaultLiveURL = "https://vr-pay-ecommerce.de/"

	// API Endpoints
	endpointCheckouts = "/v1/checkouts"
	endpointQuery     = "/v1/query"
	endpointWidget    = "/v1/paymentWidgets.js"

	// Operation names used in exchange logs and metrics
	OperationCheckout              = "checkout"
	OperationResourcePath          = "resource_path"
	OperationPaymentID             = "payment_id"
	OperationMerchantTransactionID = "merchant_transaction_id"

	defaultConnectTimeout = 2 * time.Second
	defaultReadTimeout    = 10 * time.Second
)

// Client implements provider.Gateway for VR Payment
type Client struct {
	entityID string
	sandbox  bool
	baseURL  string
	http     *provider.GatewayHTTPClient
}

// Config holds the VR Payment credentials and endpoints
type Config struct {
	BearerToken    string
	EntityID       string
	Sandbox        bool
	TestURL        string
	LiveURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// RequiredConfig returns the configuration fields VR Payment needs
func RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "bearerToken",
			Required:    true,
			Type:        "string",
			Description: "Access token from the VR Payment merchant portal",
			Example:     "OGE4Mjk0MTc0ZTczNWQwYzAxNGU3OGJlYjZjNTE1NGZ8...",
			MinLength:   16,
			MaxLength:   512,
		},
		{
			Key:         "entityId",
			Required:    true,
			Type:        "string",
			Description: "Entity the checkouts are created for",
			Example:     "8a8294174e735d0c014e78beb6b9154b",
			Pattern:     "^[0-9a-fA-F]{32}$",
		},
		{
			Key:         "sandbox",
			Required:    true,
			Type:        "boolean",
			Description: "Use the test platform",
			Example:     "true",
		},
		{
			Key:         "testUrl",
			Required:    false,
			Type:        "url",
			Description: "Base URL of the test platform",
			Example:     DefaultTestURL,
		},
		{
			Key:         "liveUrl",
			Required:    false,
			Type:        "url",
			Description: "Base URL of the live platform",
			Example:     DefaultLiveURL,
		},
		{
			Key:         "webhookKey",
			Required:    false,
			Type:        "hex",
			Description: "Hex secret webhooks are encrypted with",
			Example:     "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f",
			MinLength:   32,
			MaxLength:   64,
		},
	}
}

// ValidateConfig validates a configuration map against RequiredConfig
func ValidateConfig(conf map[string]string) error {
	return provider.ValidateConfigFields("vrpay", conf, RequiredConfig())
}

// ConfigFromMap validates conf and builds a Config from it
func ConfigFromMap(conf map[string]string) (Config, error) {
	if err := ValidateConfig(conf); err != nil {
		return Config{}, err
	}
	sandbox, _ := strconv.ParseBool(conf["sandbox"])
	return Config{
		BearerToken: conf["bearerToken"],
		EntityID:    conf["entityId"],
		Sandbox:     sandbox,
		TestURL:     conf["testUrl"],
		LiveURL:     conf["liveUrl"],
	}, nil
}

// NewClient creates a VR Payment client
func NewClient(cfg Config) (*Client, error) {
	if cfg.BearerToken == "" || cfg.EntityID == "" {
		return nil, errors.New("vrpay: bearer token and entity id are required")
	}
	if cfg.TestURL == "" {
		cfg.TestURL = DefaultTestURL
	}
	if cfg.LiveURL == "" {
		cfg.LiveURL = DefaultLiveURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	baseURL := cfg.LiveURL
	if cfg.Sandbox {
		baseURL = cfg.TestURL
	}

	return &Client{
		entityID: cfg.EntityID,
		sandbox:  cfg.Sandbox,
		baseURL:  baseURL,
		http: provider.NewGatewayHTTPClient(
			provider.CreateHTTPClientConfig(baseURL, cfg.BearerToken, cfg.ConnectTimeout, cfg.ReadTimeout),
		),
	}, nil
}

// EntityID returns the configured entity
func (c *Client) EntityID() string { return c.entityID }

// Sandbox reports whether the test platform is used
func (c *Client) Sandbox() bool { return c.sandbox }

// CreateCheckout prepares a checkout. Empty optional fields are not sent;
// extra fields are passed through unchanged.
func (c *Client) CreateCheckout(ctx context.Context, p *provider.Payment, extra map[string]string) (*provider.Exchange, error) {
	form := url.Values{}
	for key, value := range extra {
		form.Set(key, value)
	}
	form.Set("entityId", c.entityID)
	form.Set("amount", p.Amount.StringFixed(2))
	form.Set("currency", p.Currency)
	form.Set("paymentType", string(p.PaymentType))
	form.Set("taxAmount", p.TaxAmount.StringFixed(2))
	setIfNotEmpty(form, "paymentBrand", p.PaymentBrand)
	setIfNotEmpty(form, "descriptor", p.Descriptor)
	form.Set("merchantTransactionId", p.MerchantTransactionID)
	setIfNotEmpty(form, "merchantInvoiceId", p.MerchantInvoiceID)
	setIfNotEmpty(form, "merchantMemo", p.MerchantMemo)
	setIfNotEmpty(form, "transactionCategory", p.TransactionCategory)

	return c.http.SendForm(ctx, &provider.HTTPRequest{
		Operation: OperationCheckout,
		Method:    http.MethodPost,
		Endpoint:  endpointCheckouts,
		FormData:  form,
	})
}

// QueryResourcePath fetches the status behind a checkout resource path.
// The gateway answers it only for a limited time after checkout creation.
func (c *Client) QueryResourcePath(ctx context.Context, resourcePath string) (*provider.Exchange, error) {
	if !strings.HasPrefix(resourcePath, "/v1/") {
		return nil, fmt.Errorf("%w: unexpected resource path %q", provider.ErrGateway, resourcePath)
	}
	return c.http.Get(ctx, &provider.HTTPRequest{
		Operation:   OperationResourcePath,
		Endpoint:    resourcePath,
		QueryParams: url.Values{"entityId": {c.entityID}},
	})
}

// QueryPaymentID fetches one payment by the gateway's payment id
func (c *Client) QueryPaymentID(ctx context.Context, paymentID string) (*provider.Exchange, error) {
	return c.http.Get(ctx, &provider.HTTPRequest{
		Operation:   OperationPaymentID,
		Endpoint:    endpointQuery + "/" + url.PathEscape(paymentID),
		QueryParams: url.Values{"entityId": {c.entityID}},
	})
}

// QueryMerchantTransactionID fetches the payments of a merchant transaction id
func (c *Client) QueryMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*provider.Exchange, error) {
	return c.http.Get(ctx, &provider.HTTPRequest{
		Operation: OperationMerchantTransactionID,
		Endpoint:  endpointQuery,
		QueryParams: url.Values{
			"entityId":              {c.entityID},
			"merchantTransactionId": {merchantTransactionID},
		},
	})
}

// WidgetScriptURL returns the payment widget script for a checkout
func (c *Client) WidgetScriptURL(checkoutID string) string {
	return strings.TrimSuffix(c.baseURL, "/") + endpointWidget + "?checkoutId=" + url.QueryEscape(checkoutID)
}

func setIfNotEmpty(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

var _ provider.Gateway = (*Client)(nil)
