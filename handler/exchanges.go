package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/vrpay/infra/opensearch"
	"github.com/mstgnz/vrpay/infra/response"
)

// ExchangeSearcher reads archived gateway exchanges
type ExchangeSearcher interface {
	GetTransactionExchanges(ctx context.Context, sandbox bool, merchantTransactionID string) ([]opensearch.ExchangeLog, error)
	GetRecentErrorExchanges(ctx context.Context, sandbox bool, hours int) ([]opensearch.ExchangeLog, error)
	GetExchangeStats(ctx context.Context, sandbox bool, hours int) (map[string]any, error)
}

// ExchangeHandler serves the exchange archive. A nil searcher means the
// archive is disabled.
type ExchangeHandler struct {
	searcher ExchangeSearcher
	sandbox  bool
}

// NewExchangeHandler creates a new exchange handler
func NewExchangeHandler(searcher ExchangeSearcher, sandbox bool) *ExchangeHandler {
	return &ExchangeHandler{searcher: searcher, sandbox: sandbox}
}

func (h *ExchangeHandler) available(w http.ResponseWriter) bool {
	if h.searcher == nil {
		response.Error(w, http.StatusServiceUnavailable, "Exchange archive is disabled", nil)
		return false
	}
	return true
}

// TransactionExchanges handles GET /v1/payments/{merchantTransactionId}/exchanges
func (h *ExchangeHandler) TransactionExchanges(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	logs, err := h.searcher.GetTransactionExchanges(ctx, h.sandbox, chi.URLParam(r, "merchantTransactionId"))
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to search exchanges", err)
		return
	}
	if logs == nil {
		logs = []opensearch.ExchangeLog{}
	}

	response.Success(w, http.StatusOK, "Exchanges retrieved", logs)
}

// RecentErrors handles GET /v1/exchanges/errors?hours=
func (h *ExchangeHandler) RecentErrors(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	hours, ok := parseHours(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	logs, err := h.searcher.GetRecentErrorExchanges(ctx, h.sandbox, hours)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to search exchanges", err)
		return
	}
	if logs == nil {
		logs = []opensearch.ExchangeLog{}
	}

	response.Success(w, http.StatusOK, "Error exchanges retrieved", logs)
}

// Stats handles GET /v1/exchanges/stats?hours=
func (h *ExchangeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	hours, ok := parseHours(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := h.searcher.GetExchangeStats(ctx, h.sandbox, hours)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to aggregate exchanges", err)
		return
	}

	response.Success(w, http.StatusOK, "Exchange statistics", stats)
}

// parseHours reads the hours query parameter, 24 by default and at most a week
func parseHours(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("hours")
	if v == "" {
		return 24, true
	}
	hours, err := strconv.Atoi(v)
	if err != nil || hours < 1 || hours > 168 {
		response.Error(w, http.StatusBadRequest, "hours must be between 1 and 168", nil)
		return 0, false
	}
	return hours, true
}
