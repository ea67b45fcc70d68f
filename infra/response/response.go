// Package response writes the JSON envelope every vrpay endpoint answers with.
//
// Handlers and middleware share one shape so a shop can check success and
// code without knowing the route:
//
//	{"code":502,"success":false,"message":"Gateway request failed","error":"gateway request failed: HTTP 503"}
//	{"code":201,"success":true,"message":"Checkout created","data":{"checkoutId":"..."}}
//
// The shopper return is the only route that redirects instead.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/mstgnz/vrpay/infra/logger"
)

// Response is the envelope. Code repeats the HTTP status; Message is the
// human readable summary and Error the wrapped Go error text, if any. Data
// carries the checkout, payment, response or health payload.
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success answers with data under a 2xx status
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, Response{
		Code:    statusCode,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error answers with a failure envelope. A nil err leaves the error key out.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{Code: statusCode, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	WriteJSON(w, statusCode, resp)
}

// WriteJSON encodes data as is. Handlers use it for envelopes that carry
// both an error and data, such as a refused checkout with the gateway answer.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode JSON response", logger.LogContext{Fields: map[string]any{
			"status": statusCode,
			"error":  err.Error(),
		}})
	}
}
