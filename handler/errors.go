package handler

import (
	"errors"
	"net/http"

	"github.com/mstgnz/vrpay/infra/logger"
	"github.com/mstgnz/vrpay/infra/response"
	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/normalize"
	"github.com/mstgnz/vrpay/provider/webhook"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrPaymentNotFound):
		return http.StatusNotFound, "Payment not found"
	case errors.Is(err, provider.ErrDuplicateTransaction):
		return http.StatusConflict, "Merchant transaction id already used"
	case errors.Is(err, provider.ErrCheckoutAlreadyUsed):
		return http.StatusConflict, "Checkout already used"
	case errors.Is(err, provider.ErrResourcePathChanged):
		return http.StatusConflict, "Resource path changed"
	case errors.Is(err, provider.ErrWebhookInProgress):
		return http.StatusConflict, "Webhook is being processed"
	case errors.Is(err, provider.ErrMissingParameter):
		return http.StatusBadRequest, "Missing parameter"
	case errors.Is(err, webhook.ErrAuthentication):
		return http.StatusUnauthorized, "Webhook authentication failed"
	case errors.Is(err, webhook.ErrMalformedInput):
		return http.StatusBadRequest, "Malformed webhook"
	case errors.Is(err, provider.ErrGateway) && errors.Is(err, normalize.ErrAmbiguousResponse):
		return http.StatusBadGateway, "Ambiguous gateway response"
	case errors.Is(err, provider.ErrGateway) && errors.Is(err, normalize.ErrPayloadFormat):
		return http.StatusBadGateway, "Invalid gateway payload"
	case errors.Is(err, provider.ErrGateway):
		return http.StatusBadGateway, "Gateway request failed"
	case errors.Is(err, normalize.ErrAmbiguousResponse):
		return http.StatusBadRequest, "Ambiguous payload"
	case errors.Is(err, normalize.ErrPayloadFormat):
		return http.StatusBadRequest, "Invalid payload format"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, err, requestContext(r))
	}
	response.Error(w, status, message, err)
}
