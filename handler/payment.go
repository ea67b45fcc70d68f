package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/vrpay/infra/logger"
	"github.com/mstgnz/vrpay/infra/response"
	"github.com/mstgnz/vrpay/infra/validate"
	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/resultcode"
	"github.com/mstgnz/vrpay/provider/webhook"
)

const requestTimeout = 30 * time.Second

// webhookRetryAfter is the Retry-After value, in seconds, sent while a delivery is in flight
const webhookRetryAfter = "5"

// PaymentServiceInterface defines the payment operations the handlers use
type PaymentServiceInterface interface {
	CreateCheckout(ctx context.Context, req provider.CheckoutRequest) (*provider.Payment, *provider.GatewayResponse, error)
	CheckoutInfo(ctx context.Context, merchantTransactionID string) (*provider.CheckoutInfo, error)
	CheckoutStatusByMerchantTransactionID(ctx context.Context, merchantTransactionID string) (*provider.Payment, *provider.GatewayResponse, error)
	CompleteReturn(ctx context.Context, checkoutID, resourcePath string) (resultcode.Outcome, *provider.Payment, error)
	QueryPayment(ctx context.Context, merchantTransactionID string) (*provider.GatewayResponse, error)
	ListResponses(ctx context.Context, merchantTransactionID string, outcome resultcode.Outcome) ([]provider.GatewayResponse, error)
	HandleWebhook(ctx context.Context, env webhook.Envelope) (*provider.WebhookResult, error)
}

// RedirectURLs are where a returning shopper is sent per outcome
type RedirectURLs struct {
	Success  string
	Pending  string
	Rejected string
	Error    string
}

func (u RedirectURLs) forOutcome(o resultcode.Outcome) string {
	switch o {
	case resultcode.OutcomeSuccessful:
		return u.Success
	case resultcode.OutcomePending:
		return u.Pending
	case resultcode.OutcomeRejected:
		return u.Rejected
	default:
		return u.Error
	}
}

// PaymentHandler handles checkout, status, return and webhook requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	redirects      RedirectURLs
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface, redirects RedirectURLs) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		redirects:      redirects,
	}
}

// CheckoutResponse is returned when a checkout was prepared
type CheckoutResponse struct {
	Payment    *provider.Payment         `json:"payment"`
	CheckoutID string                    `json:"checkoutId"`
	ResultCode string                    `json:"resultCode"`
	Outcome    resultcode.Outcome        `json:"outcome"`
	Response   *provider.GatewayResponse `json:"response,omitempty"`
}

// StatusResponse summarizes a status query
type StatusResponse struct {
	MerchantTransactionID string                    `json:"merchantTransactionId"`
	ResultCode            string                    `json:"resultCode"`
	Outcome               resultcode.Outcome        `json:"outcome"`
	Categories            []string                  `json:"categories"`
	Response              *provider.GatewayResponse `json:"response"`
}

func newStatusResponse(merchantTransactionID string, resp *provider.GatewayResponse) StatusResponse {
	return StatusResponse{
		MerchantTransactionID: merchantTransactionID,
		ResultCode:            resp.ResultCode(),
		Outcome:               resp.Outcome(),
		Categories:            resp.Classification.Names(),
		Response:              resp,
	}
}

// CreateCheckout handles POST /v1/checkouts
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := validate.Validate(req); err != nil {
		if fields := validate.Errors(err); fields != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Response{
				Code:    http.StatusBadRequest,
				Message: "Validation error",
				Error:   err.Error(),
				Data:    fields,
			})
			return
		}
		response.Error(w, http.StatusInternalServerError, "Validation setup failed", err)
		return
	}

	p, resp, err := h.paymentService.CreateCheckout(ctx, req)
	if err != nil {
		if resp != nil {
			status, message := statusFor(err)
			response.WriteJSON(w, status, response.Response{
				Code:    status,
				Message: message,
				Error:   err.Error(),
				Data:    checkoutResponse(p, resp),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "Checkout created", checkoutResponse(p, resp))
}

func checkoutResponse(p *provider.Payment, resp *provider.GatewayResponse) CheckoutResponse {
	out := CheckoutResponse{Payment: p, Response: resp}
	if p != nil {
		out.CheckoutID = p.CheckoutID
	}
	if resp != nil {
		out.ResultCode = resp.ResultCode()
		out.Outcome = resp.Outcome()
	}
	return out
}

// GetCheckout handles GET /v1/checkouts/{merchantTransactionId}
func (h *PaymentHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	info, err := h.paymentService.CheckoutInfo(ctx, chi.URLParam(r, "merchantTransactionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout ready", info)
}

// GetCheckoutStatus handles GET /v1/checkouts/{merchantTransactionId}/status
func (h *PaymentHandler) GetCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	mtid := chi.URLParam(r, "merchantTransactionId")
	_, resp, err := h.paymentService.CheckoutStatusByMerchantTransactionID(ctx, mtid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout status retrieved", newStatusResponse(mtid, resp))
}

// GetPayment handles GET /v1/payments/{merchantTransactionId}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	mtid := chi.URLParam(r, "merchantTransactionId")
	resp, err := h.paymentService.QueryPayment(ctx, mtid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment retrieved", newStatusResponse(mtid, resp))
}

// ListResponses handles GET /v1/payments/{merchantTransactionId}/responses?outcome=
func (h *PaymentHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var outcome resultcode.Outcome
	if v := r.URL.Query().Get("outcome"); v != "" {
		o, ok := resultcode.ParseOutcome(v)
		if !ok {
			response.Error(w, http.StatusBadRequest, "Invalid outcome. Use successful, rejected, pending or unknown", nil)
			return
		}
		outcome = o
	}

	responses, err := h.paymentService.ListResponses(ctx, chi.URLParam(r, "merchantTransactionId"), outcome)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if responses == nil {
		responses = []provider.GatewayResponse{}
	}

	response.Success(w, http.StatusOK, "Responses retrieved", responses)
}

// Return handles GET /return, where the payment widget sends the shopper
// back with id and resourcePath.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	outcome, p, err := h.paymentService.CompleteReturn(ctx, q.Get("id"), q.Get("resourcePath"))

	switch {
	case errors.Is(err, provider.ErrMissingParameter),
		errors.Is(err, provider.ErrPaymentNotFound),
		errors.Is(err, provider.ErrResourcePathChanged):
		writeError(w, r, err)
		return
	case err != nil:
		lc := requestContext(r)
		if p != nil {
			lc.MerchantTransactionID = p.MerchantTransactionID
		}
		logger.Error("Shopper return could not be settled", err, lc)
		outcome = resultcode.OutcomeUnknown
	}

	http.Redirect(w, r, h.redirects.forOutcome(outcome), http.StatusFound)
}

// Webhook handles POST /webhooks
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	env, err := webhook.EnvelopeFromRequest(r)
	if err != nil {
		logger.Warn("Webhook envelope rejected", logger.LogContext{
			RequestID: middleware.GetReqID(r.Context()),
			Fields:    map[string]any{"error": err.Error()},
		})
		writeError(w, r, err)
		return
	}

	result, err := h.paymentService.HandleWebhook(ctx, env)
	if errors.Is(err, provider.ErrDuplicateWebhook) {
		response.Success(w, http.StatusOK, "Duplicate webhook ignored", nil)
		return
	}
	if errors.Is(err, provider.ErrWebhookInProgress) {
		w.Header().Set("Retry-After", webhookRetryAfter)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusAccepted, "Webhook accepted", map[string]any{
		"webhookId": result.Webhook.ID,
		"unowned":   result.Unowned,
	})
}

func requestContext(r *http.Request) logger.LogContext {
	return logger.LogContext{
		RequestID:             middleware.GetReqID(r.Context()),
		MerchantTransactionID: chi.URLParam(r, "merchantTransactionId"),
		Fields: map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
		},
	}
}
