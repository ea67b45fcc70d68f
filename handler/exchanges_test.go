package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/vrpay/infra/opensearch"
)

type fakeSearcher struct {
	sandbox bool
	mtid    string
	hours   int
	err     error
}

func (f *fakeSearcher) GetTransactionExchanges(_ context.Context, sandbox bool, mtid string) ([]opensearch.ExchangeLog, error) {
	f.sandbox, f.mtid = sandbox, mtid
	if f.err != nil {
		return nil, f.err
	}
	return []opensearch.ExchangeLog{{Operation: "checkout", MerchantTransactionID: mtid}}, nil
}

func (f *fakeSearcher) GetRecentErrorExchanges(_ context.Context, sandbox bool, hours int) ([]opensearch.ExchangeLog, error) {
	f.sandbox, f.hours = sandbox, hours
	return nil, f.err
}

func (f *fakeSearcher) GetExchangeStats(_ context.Context, sandbox bool, hours int) (map[string]any, error) {
	f.sandbox, f.hours = sandbox, hours
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"total_exchanges": 4}, nil
}

func TestExchangeHandler_TransactionExchanges(t *testing.T) {
	s := &fakeSearcher{}
	h := NewExchangeHandler(s, true)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/v1/payments/order-1/exchanges", nil),
		map[string]string{"merchantTransactionId": "order-1"})
	w := httptest.NewRecorder()
	h.TransactionExchanges(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, s.sandbox)
	assert.Equal(t, "order-1", s.mtid)
	assert.Len(t, decodeBody(t, w)["data"], 1)
}

func TestExchangeHandler_Disabled(t *testing.T) {
	h := NewExchangeHandler(nil, false)

	for _, fn := range []http.HandlerFunc{h.TransactionExchanges, h.RecentErrors, h.Stats} {
		w := httptest.NewRecorder()
		fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	}
}

func TestExchangeHandler_Stats(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		err            error
		expectedStatus int
		expectedHours  int
	}{
		{"default window", "", nil, http.StatusOK, 24},
		{"custom window", "?hours=6", nil, http.StatusOK, 6},
		{"too large", "?hours=500", nil, http.StatusBadRequest, 0},
		{"not a number", "?hours=x", nil, http.StatusBadRequest, 0},
		{"search failed", "", errors.New("cluster red"), http.StatusBadGateway, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{err: tt.err}
			h := NewExchangeHandler(s, false)

			w := httptest.NewRecorder()
			h.Stats(w, httptest.NewRequest(http.MethodGet, "/v1/exchanges/stats"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedHours, s.hours)
		})
	}
}

func TestExchangeHandler_RecentErrors(t *testing.T) {
	s := &fakeSearcher{}
	h := NewExchangeHandler(s, true)

	w := httptest.NewRecorder()
	h.RecentErrors(w, httptest.NewRequest(http.MethodGet, "/v1/exchanges/errors?hours=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.hours)
	assert.Equal(t, []any{}, decodeBody(t, w)["data"])
}
