package provider

import (
	"encoding/json"
	"time"

	"github.com/mstgnz/vrpay/provider/normalize"
	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/shopspring/decimal"
)

// PaymentType is the paymentType sent to the gateway
type PaymentType string

const (
	TypePreauthorization PaymentType = "PA"
	TypeDebit            PaymentType = "DB"
	TypeCredit           PaymentType = "CD"
	TypeCapture          PaymentType = "CP"
	TypeReversal         PaymentType = "RV"
	TypeRefund           PaymentType = "RF"
)

// PaymentTypes lists the accepted payment types in gateway order
var PaymentTypes = []PaymentType{
	TypePreauthorization,
	TypeDebit,
	TypeCredit,
	TypeCapture,
	TypeReversal,
	TypeRefund,
}

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	for _, known := range PaymentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultCurrency is used when a checkout request names none
const DefaultCurrency = "EUR"

// Payment is a checkout created by this service
type Payment struct {
	ID                    int64           `json:"id"`
	EntityID              string          `json:"entityId"`
	Amount                decimal.Decimal `json:"amount"`
	TaxAmount             decimal.Decimal `json:"taxAmount"`
	Currency              string          `json:"currency"`
	PaymentBrand          string          `json:"paymentBrand,omitempty"`
	PaymentType           PaymentType     `json:"paymentType"`
	Descriptor            string          `json:"descriptor,omitempty"`
	MerchantTransactionID string          `json:"merchantTransactionId"`
	MerchantInvoiceID     string          `json:"merchantInvoiceId,omitempty"`
	MerchantMemo          string          `json:"merchantMemo,omitempty"`
	TransactionCategory   string          `json:"transactionCategory,omitempty"`
	Sandbox               bool            `json:"sandbox"`
	ResourcePath          string          `json:"resourcePath,omitempty"`
	CheckoutID            string          `json:"checkoutId,omitempty"`
	GatewayPaymentID      string          `json:"paymentId,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// CheckoutRequest is the input of a new checkout
type CheckoutRequest struct {
	Amount                string            `json:"amount" validate:"required,vramount"`
	TaxAmount             string            `json:"taxAmount,omitempty" validate:"omitempty,vramount"`
	Currency              string            `json:"currency,omitempty" validate:"omitempty,currency"`
	PaymentType           PaymentType       `json:"paymentType" validate:"required,paymenttype"`
	PaymentBrand          string            `json:"paymentBrand,omitempty" validate:"omitempty,brand"`
	Descriptor            string            `json:"descriptor,omitempty" validate:"max=127"`
	MerchantTransactionID string            `json:"merchantTransactionId" validate:"required,min=8,max=255"`
	MerchantInvoiceID     string            `json:"merchantInvoiceId,omitempty" validate:"omitempty,min=8,max=255"`
	MerchantMemo          string            `json:"merchantMemo,omitempty" validate:"omitempty,min=8,max=255"`
	TransactionCategory   string            `json:"transactionCategory,omitempty" validate:"max=32"`
	Extra                 map[string]string `json:"extra,omitempty"`
}

// ResponseKind says where a stored gateway response came from
type ResponseKind string

const (
	KindCheckout ResponseKind = "checkout"
	KindStatus   ResponseKind = "status"
	KindWebhook  ResponseKind = "webhook"
)

// GatewayResponse is one gateway answer or webhook payload, with its
// normalized record and classification.
type GatewayResponse struct {
	ID             int64              `json:"id"`
	OwnerID        *int64             `json:"paymentId,omitempty"`
	WebhookID      *int64             `json:"webhookId,omitempty"`
	Kind           ResponseKind       `json:"kind"`
	HTTPStatusCode int                `json:"httpStatusCode,omitempty"`
	URL            string             `json:"url,omitempty"`
	Headers        map[string]string  `json:"headers,omitempty"`
	RawContent     json.RawMessage    `json:"rawContent"`
	Record         normalize.Response `json:"record"`
	Classification resultcode.Set     `json:"classification"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// ResultCode returns the result code of the record
func (r *GatewayResponse) ResultCode() string {
	return r.Record.ResultCode()
}

// Outcome returns the summarized outcome of the classification
func (r *GatewayResponse) Outcome() resultcode.Outcome {
	return r.Classification.Outcome()
}

// GatewayID returns the gateway's id of the record or ""
func (r *GatewayResponse) GatewayID() string {
	if r.Record.ID == nil {
		return ""
	}
	return *r.Record.ID
}

// Webhook is a received and decrypted notification
type Webhook struct {
	ID            int64             `json:"id"`
	Headers       map[string]string `json:"headers,omitempty"`
	Type          string            `json:"type"`
	Action        string            `json:"action,omitempty"`
	DecryptedBody json.RawMessage   `json:"decryptedBody"`
	Fingerprint   string            `json:"fingerprint"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// CheckoutInfo carries what the payment page needs to render the widget
type CheckoutInfo struct {
	Payment          *Payment `json:"payment"`
	CheckoutID       string   `json:"checkoutId"`
	WidgetScriptURL  string   `json:"widgetScriptUrl"`
	ShopperResultURL string   `json:"shopperResultUrl"`
	PaymentBrands    []string `json:"paymentBrands,omitempty"`
}

// WebhookResult is what HandleWebhook did with a delivery
type WebhookResult struct {
	Webhook  *Webhook         `json:"webhook"`
	Response *GatewayResponse `json:"response,omitempty"`
	Owner    *Payment         `json:"owner,omitempty"`
	Unowned  bool             `json:"unowned"`
}

// OutcomeEvent is published for every stored response
type OutcomeEvent struct {
	EventID               string             `json:"eventId"`
	OccurredAt            time.Time          `json:"occurredAt"`
	Kind                  ResponseKind       `json:"kind"`
	MerchantTransactionID string             `json:"merchantTransactionId,omitempty"`
	GatewayID             string             `json:"gatewayId,omitempty"`
	ResultCode            string             `json:"resultCode"`
	Outcome               resultcode.Outcome `json:"outcome"`
	Categories            []string           `json:"categories"`
	Amount                string             `json:"amount,omitempty"`
	Currency              string             `json:"currency,omitempty"`
}
