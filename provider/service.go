package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mstgnz/vrpay/infra/logger"
	"github.com/mstgnz/vrpay/infra/opensearch"
	"github.com/mstgnz/vrpay/provider/normalize"
	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/mstgnz/vrpay/provider/webhook"
	"github.com/shopspring/decimal"
)

// DefaultStatusWindow is how long a resource path can be queried directly
const DefaultStatusWindow = 30 * time.Minute

// ServiceConfig holds the settings of a PaymentService
type ServiceConfig struct {
	// WebhookKey is the hex secret webhooks are sealed with
	WebhookKey string
	// ShopperResultURL is where the widget sends the shopper back to
	ShopperResultURL string
	// PaymentBrands are offered by the widget when a payment names none
	PaymentBrands []string
	// StatusWindow limits direct resource path queries to recent checkouts
	StatusWindow time.Duration
}

// ServiceOption configures optional collaborators
type ServiceOption func(*PaymentService)

// WithDeduper sets the webhook duplicate lookup
func WithDeduper(d Deduper) ServiceOption {
	return func(s *PaymentService) { s.dedupe = d }
}

// WithEventPublisher sets where outcome events go
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *PaymentService) { s.events = p }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *PaymentService) { s.metrics = m }
}

// WithExchangeLogger sets the exchange archive
func WithExchangeLogger(l ExchangeLogger) ServiceOption {
	return func(s *PaymentService) { s.exchanges = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ServiceOption {
	return func(s *PaymentService) { s.now = now }
}

// PaymentService runs checkouts against the gateway and keeps every
// gateway answer and webhook linked to its payment.
type PaymentService struct {
	store     Store
	gateway   Gateway
	config    ServiceConfig
	dedupe    Deduper
	events    EventPublisher
	metrics   MetricsRecorder
	exchanges ExchangeLogger
	now       func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(store Store, gateway Gateway, config ServiceConfig, opts ...ServiceOption) *PaymentService {
	if config.StatusWindow <= 0 {
		config.StatusWindow = DefaultStatusWindow
	}

	s := &PaymentService{
		store:     store,
		gateway:   gateway,
		config:    config,
		dedupe:    noopDeduper{},
		events:    noopPublisher{},
		metrics:   noopMetrics{},
		exchanges: noopExchangeLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCheckout registers a payment and prepares its checkout at the gateway
func (s *PaymentService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Payment, *GatewayResponse, error) {
	if _, err := s.store.GetPaymentByMerchantTransactionID(ctx, req.MerchantTransactionID); err == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, req.MerchantTransactionID)
	} else if !errors.Is(err, ErrPaymentNotFound) {
		return nil, nil, err
	}

	p, err := s.newPayment(req)
	if err != nil {
		return nil, nil, err
	}

	ex, callErr := s.gateway.CreateCheckout(ctx, p, req.Extra)
	s.logExchange(ctx, p, ex, callErr)
	if ex == nil {
		return nil, nil, callErr
	}

	record, err := s.parse(ctx, p, ex)
	if err != nil {
		return nil, nil, err
	}
	if record.ID != nil {
		p.CheckoutID = *record.ID
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("saving payment: %w", err)
	}

	resp, err := s.saveResponse(ctx, KindCheckout, p, ex, record)
	if err != nil {
		return p, nil, err
	}

	if callErr != nil {
		return p, resp, callErr
	}
	if p.CheckoutID == "" {
		return p, resp, fmt.Errorf("%w: checkout answer without id (result %s)", ErrGateway, resp.ResultCode())
	}

	logger.Info("Checkout created", s.logContext(ctx, p, map[string]any{
		"checkout_id": p.CheckoutID,
		"result_code": resp.ResultCode(),
	}))
	return p, resp, nil
}

func (s *PaymentService) newPayment(req CheckoutRequest) (*Payment, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", req.Amount, err)
	}

	tax := decimal.Zero
	if req.TaxAmount != "" {
		if tax, err = decimal.NewFromString(req.TaxAmount); err != nil {
			return nil, fmt.Errorf("invalid tax amount %q: %w", req.TaxAmount, err)
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Payment{
		EntityID:              s.gateway.EntityID(),
		Amount:                amount,
		TaxAmount:             tax,
		Currency:              currency,
		PaymentBrand:          req.PaymentBrand,
		PaymentType:           req.PaymentType,
		Descriptor:            req.Descriptor,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantInvoiceID:     req.MerchantInvoiceID,
		MerchantMemo:          req.MerchantMemo,
		TransactionCategory:   req.TransactionCategory,
		Sandbox:               s.gateway.Sandbox(),
	}, nil
}

// CheckoutInfo returns what the payment page needs for a checkout that
// has not been used yet.
func (s *PaymentService) CheckoutInfo(ctx context.Context, merchantTransactionID string) (*CheckoutInfo, error) {
	p, err := s.store.GetPaymentByMerchantTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, err
	}
	if p.CheckoutID == "" {
		return nil, fmt.Errorf("%w: payment %s has no checkout", ErrPaymentNotFound, merchantTransactionID)
	}

	used, err := s.store.ListResponses(ctx, ResponseFilter{PaymentID: p.ID, Kind: KindStatus, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(used) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCheckoutAlreadyUsed, merchantTransactionID)
	}

	brands := s.config.PaymentBrands
	if p.PaymentBrand != "" {
		brands = []string{p.PaymentBrand}
	}

	return &CheckoutInfo{
		Payment:          p,
		CheckoutID:       p.CheckoutID,
		WidgetScriptURL:  s.gateway.WidgetScriptURL(p.CheckoutID),
		ShopperResultURL: s.config.ShopperResultURL,
		PaymentBrands:    brands,
	}, nil
}

// CheckoutStatus queries the gateway for the current state of p. A recent
// checkout is looked up by its resource path; older ones, or a failed
// resource path query, fall back to the merchant transaction id.
func (s *PaymentService) CheckoutStatus(ctx context.Context, p *Payment) (*GatewayResponse, error) {
	var ex *Exchange
	var err error

	if p.ResourcePath != "" && s.now().Sub(p.CreatedAt) < s.config.StatusWindow {
		ex, err = s.gateway.QueryResourcePath(ctx, p.ResourcePath)
		s.logExchange(ctx, p, ex, err)
		if err != nil {
			logger.Warn("Resource path query failed, falling back to merchant transaction id", s.logContext(ctx, p, map[string]any{
				"error": err.Error(),
			}))
			ex = nil
		}
	}

	if ex == nil {
		ex, err = s.gateway.QueryMerchantTransactionID(ctx, p.MerchantTransactionID)
		s.logExchange(ctx, p, ex, err)
		if ex == nil {
			return nil, err
		}
	}

	record, err := s.parse(ctx, p, ex)
	if err != nil {
		return nil, err
	}
	return s.saveResponse(ctx, KindStatus, p, ex, record)
}

// CheckoutStatusByMerchantTransactionID runs CheckoutStatus for a stored payment
func (s *PaymentService) CheckoutStatusByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*Payment, *GatewayResponse, error) {
	p, err := s.store.GetPaymentByMerchantTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.CheckoutStatus(ctx, p)
	return p, resp, err
}

// CompleteReturn settles a shopper coming back from the payment page and
// returns where to send them.
func (s *PaymentService) CompleteReturn(ctx context.Context, checkoutID, resourcePath string) (resultcode.Outcome, *Payment, error) {
	if checkoutID == "" || resourcePath == "" {
		return resultcode.OutcomeUnknown, nil, fmt.Errorf("%w: id and resourcePath are required", ErrMissingParameter)
	}

	p, err := s.store.GetPaymentByCheckoutID(ctx, checkoutID)
	if err != nil {
		return resultcode.OutcomeUnknown, nil, err
	}

	switch {
	case p.ResourcePath == "":
		p.ResourcePath = resourcePath
		if err := s.store.UpdatePayment(ctx, p); err != nil {
			return resultcode.OutcomeUnknown, p, fmt.Errorf("saving resource path: %w", err)
		}
	case p.ResourcePath != resourcePath:
		return resultcode.OutcomeUnknown, p, fmt.Errorf("%w: stored %s, got %s", ErrResourcePathChanged, p.ResourcePath, resourcePath)
	}

	latest, err := s.store.ListResponses(ctx, ResponseFilter{PaymentID: p.ID, Kind: KindStatus, Limit: 1})
	if err != nil {
		return resultcode.OutcomeUnknown, p, err
	}
	if len(latest) > 0 && latest[0].Classification.Has(resultcode.SuccessfullyProcessed) {
		return resultcode.OutcomeSuccessful, p, nil
	}

	resp, err := s.CheckoutStatus(ctx, p)
	if err != nil {
		return resultcode.OutcomeUnknown, p, err
	}

	outcome := resp.Outcome()
	if outcome == resultcode.OutcomeSuccessful && resp.GatewayID() != "" && p.GatewayPaymentID != resp.GatewayID() {
		p.GatewayPaymentID = resp.GatewayID()
		if err := s.store.UpdatePayment(ctx, p); err != nil {
			return outcome, p, fmt.Errorf("saving payment id: %w", err)
		}
	}

	logger.Info("Shopper returned", s.logContext(ctx, p, map[string]any{
		"outcome":     string(outcome),
		"result_code": resp.ResultCode(),
	}))
	return outcome, p, nil
}

// QueryPayment asks the gateway for a settled payment. It uses the gateway
// payment id when known, the merchant transaction id otherwise.
func (s *PaymentService) QueryPayment(ctx context.Context, merchantTransactionID string) (*GatewayResponse, error) {
	p, err := s.store.GetPaymentByMerchantTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, err
	}

	var ex *Exchange
	if p.GatewayPaymentID != "" {
		ex, err = s.gateway.QueryPaymentID(ctx, p.GatewayPaymentID)
	} else {
		ex, err = s.gateway.QueryMerchantTransactionID(ctx, p.MerchantTransactionID)
	}
	s.logExchange(ctx, p, ex, err)
	if ex == nil {
		return nil, err
	}

	record, err := s.parse(ctx, p, ex)
	if err != nil {
		return nil, err
	}
	return s.saveResponse(ctx, KindStatus, p, ex, record)
}

// ListResponses returns the stored responses of a payment, newest first,
// optionally restricted to one outcome.
func (s *PaymentService) ListResponses(ctx context.Context, merchantTransactionID string, outcome resultcode.Outcome) ([]GatewayResponse, error) {
	p, err := s.store.GetPaymentByMerchantTransactionID(ctx, merchantTransactionID)
	if err != nil {
		return nil, err
	}

	filter := ResponseFilter{PaymentID: p.ID}
	switch outcome {
	case "":
	case resultcode.OutcomeUnknown:
		filter.None = resultcode.OutcomeSuccessful.Mask() | resultcode.OutcomeRejected.Mask() | resultcode.OutcomePending.Mask()
	default:
		filter.Any = outcome.Mask()
	}
	return s.store.ListResponses(ctx, filter)
}

// HandleWebhook opens a delivery, stores it and links payment notifications
// to their payment. An unowned payment notification is stored without a
// link and is not an error.
func (s *PaymentService) HandleWebhook(ctx context.Context, env webhook.Envelope) (result *WebhookResult, err error) {
	fingerprint := env.Fingerprint()

	claimed, claimErr := s.dedupe.Claim(ctx, fingerprint)
	if claimErr != nil {
		logger.Warn("Webhook duplicate lookup failed", s.logContext(ctx, nil, map[string]any{
			"error":       claimErr.Error(),
			"fingerprint": fingerprint,
		}))
		claimed = true
	}
	if !claimed {
		return nil, s.unclaimedWebhook(ctx, fingerprint)
	}

	defer func() {
		if err == nil {
			return
		}
		s.metrics.ObserveWebhook(ctx, webhookFailure(err))
		if relErr := s.dedupe.Release(ctx, fingerprint); relErr != nil {
			logger.Warn("Failed to release webhook claim", s.logContext(ctx, nil, map[string]any{
				"error":       relErr.Error(),
				"fingerprint": fingerprint,
			}))
		}
	}()

	plain, err := env.Open(s.config.WebhookKey)
	if err != nil {
		logger.Warn("Webhook rejected", s.logContext(ctx, nil, map[string]any{
			"error":       err.Error(),
			"fingerprint": fingerprint,
		}))
		return nil, err
	}

	notification, err := webhook.ParseNotification(plain)
	if err != nil {
		logger.Error("Webhook plaintext is not a notification", err, s.logContext(ctx, nil, map[string]any{
			"body": opensearch.SanitizeForLog(string(plain)),
		}))
		return nil, err
	}

	wh := &Webhook{
		Headers:       env.Headers,
		Type:          notification.Type,
		Action:        notification.Action,
		DecryptedBody: plain,
		Fingerprint:   fingerprint,
	}
	result = &WebhookResult{Webhook: wh}

	if !notification.IsPayment() {
		if err := s.store.SaveWebhook(ctx, wh); err != nil {
			return nil, fmt.Errorf("saving webhook: %w", err)
		}
		s.metrics.ObserveWebhook(ctx, "ignored")
		return result, nil
	}

	record, err := notification.PaymentRecord()
	if err != nil {
		logger.Error("Payment notification could not be normalized", err, s.logContext(ctx, nil, map[string]any{
			"body": opensearch.SanitizeForLog(string(plain)),
		}))
		return nil, err
	}

	owner, err := ResolveOwner(ctx, s.store, record)
	switch {
	case errors.Is(err, ErrUnownedResponse):
		logger.Warn("Webhook has no owning payment", s.logContext(ctx, nil, map[string]any{
			"error":       err.Error(),
			"fingerprint": fingerprint,
		}))
		result.Unowned = true
	case err != nil:
		return nil, err
	}

	if err := s.store.SaveWebhook(ctx, wh); err != nil {
		return nil, fmt.Errorf("saving webhook: %w", err)
	}

	resp := &GatewayResponse{
		WebhookID:      &wh.ID,
		Kind:           KindWebhook,
		Headers:        env.Headers,
		RawContent:     notification.Payload,
		Record:         record,
		Classification: record.Classification(),
	}
	if owner != nil {
		resp.OwnerID = &owner.ID
		result.Owner = owner
	}
	if err := s.store.SaveResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("saving webhook response: %w", err)
	}
	result.Response = resp
	s.observe(ctx, owner, resp)

	if owner != nil && owner.GatewayPaymentID == "" && resp.Classification.IsSuccessful() && resp.GatewayID() != "" {
		owner.GatewayPaymentID = resp.GatewayID()
		if err := s.store.UpdatePayment(ctx, owner); err != nil {
			logger.Warn("Failed to store payment id from webhook", s.logContext(ctx, owner, map[string]any{
				"error": err.Error(),
			}))
		}
	}

	s.metrics.ObserveWebhook(ctx, "accepted")
	return result, nil
}

// unclaimedWebhook tells a finished duplicate from one whose first delivery is
// still running. Only the former may be acknowledged.
func (s *PaymentService) unclaimedWebhook(ctx context.Context, fingerprint string) error {
	stored, err := s.store.WebhookExists(ctx, fingerprint)
	if err != nil {
		logger.Warn("Webhook lookup failed", s.logContext(ctx, nil, map[string]any{
			"error":       err.Error(),
			"fingerprint": fingerprint,
		}))
	}
	if !stored {
		s.metrics.ObserveWebhook(ctx, "in_progress")
		return fmt.Errorf("%w: %s", ErrWebhookInProgress, fingerprint)
	}
	s.metrics.ObserveWebhook(ctx, "duplicate")
	return fmt.Errorf("%w: %s", ErrDuplicateWebhook, fingerprint)
}

func webhookFailure(err error) string {
	switch {
	case errors.Is(err, webhook.ErrAuthentication):
		return "authentication_failed"
	case errors.Is(err, webhook.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, normalize.ErrAmbiguousResponse):
		return "ambiguous"
	case errors.Is(err, normalize.ErrPayloadFormat):
		return "payload_format"
	default:
		return "error"
	}
}

// parse normalizes an exchange body. Unreadable bodies are logged verbatim and
// reported as gateway faults.
func (s *PaymentService) parse(ctx context.Context, p *Payment, ex *Exchange) (normalize.Response, error) {
	record, err := normalize.Parse(ex.Body)
	if err != nil {
		logger.Error("Gateway answer could not be normalized", err, s.logContext(ctx, p, map[string]any{
			"operation":   ex.Operation,
			"status_code": ex.StatusCode,
			"body":        opensearch.SanitizeForLog(string(ex.Body)),
		}))
		return normalize.Response{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return record, nil
}

func (s *PaymentService) saveResponse(ctx context.Context, kind ResponseKind, p *Payment, ex *Exchange, record normalize.Response) (*GatewayResponse, error) {
	resp := &GatewayResponse{
		OwnerID:        &p.ID,
		Kind:           kind,
		HTTPStatusCode: ex.StatusCode,
		URL:            ex.URL,
		Headers:        ex.Headers,
		RawContent:     ex.Body,
		Record:         record,
		Classification: record.Classification(),
	}
	if err := s.store.SaveResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("saving %s response: %w", kind, err)
	}
	s.observe(ctx, p, resp)
	return resp, nil
}

// observe feeds metrics and the event stream. Failures are logged only.
func (s *PaymentService) observe(ctx context.Context, p *Payment, resp *GatewayResponse) {
	outcome := resp.Outcome()
	names := resp.Classification.Names()
	s.metrics.ObserveResponse(ctx, string(resp.Kind), string(outcome), names)

	event := OutcomeEvent{
		EventID:    uuid.New().String(),
		OccurredAt: s.now().UTC(),
		Kind:       resp.Kind,
		GatewayID:  resp.GatewayID(),
		ResultCode: resp.ResultCode(),
		Outcome:    outcome,
		Categories: names,
	}
	if p != nil {
		event.MerchantTransactionID = p.MerchantTransactionID
		event.Amount = p.Amount.StringFixed(2)
		event.Currency = p.Currency
	} else if resp.Record.MerchantTransactionID != nil {
		event.MerchantTransactionID = *resp.Record.MerchantTransactionID
	}

	key := event.MerchantTransactionID
	if key == "" {
		key = event.GatewayID
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		logger.Warn("Failed to publish outcome event", s.logContext(ctx, p, map[string]any{
			"error":  err.Error(),
			"kind":   string(resp.Kind),
			"result": resp.ResultCode(),
		}))
	}
}

func (s *PaymentService) logExchange(ctx context.Context, p *Payment, ex *Exchange, callErr error) {
	if ex != nil {
		s.metrics.ObserveGatewayCall(ctx, ex.Operation, ex.StatusCode, ex.Duration)
	}

	entry := opensearch.ExchangeLog{
		Timestamp: s.now().UTC(),
		EntityID:  s.gateway.EntityID(),
		RequestID: middleware.GetReqID(ctx),
		Sandbox:   s.gateway.Sandbox(),
	}
	if p != nil {
		entry.MerchantTransactionID = p.MerchantTransactionID
	}
	if ex != nil {
		entry.Operation = ex.Operation
		entry.Method = ex.Method
		entry.URL = ex.URL
		entry.Response = opensearch.ResponseLog{
			StatusCode:       ex.StatusCode,
			Headers:          ex.Headers,
			Body:             opensearch.SanitizeForLog(string(ex.Body)),
			ProcessingTimeMs: ex.Duration.Milliseconds(),
		}
		if record, err := normalize.Parse(ex.Body); err == nil {
			set := record.Classification()
			entry.Result = opensearch.ResultInfo{
				Code:       record.ResultCode(),
				Outcome:    string(set.Outcome()),
				Categories: set.Names(),
			}
			if record.Result != nil && record.Result.Description != nil {
				entry.Result.Description = *record.Result.Description
			}
		}
	}
	if callErr != nil {
		entry.Error = opensearch.ErrorInfo{Code: "gateway_error", Message: callErr.Error()}
	}

	if err := s.exchanges.LogExchange(ctx, entry); err != nil {
		logger.Warn("Failed to archive gateway exchange", s.logContext(ctx, p, map[string]any{
			"error": err.Error(),
		}))
	}
}

func (s *PaymentService) logContext(ctx context.Context, p *Payment, fields map[string]any) logger.LogContext {
	lc := logger.LogContext{
		EntityID:  s.gateway.EntityID(),
		RequestID: middleware.GetReqID(ctx),
		Fields:    fields,
	}
	if p != nil {
		lc.MerchantTransactionID = p.MerchantTransactionID
	}
	return lc
}
