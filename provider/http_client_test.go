package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayHTTPClient_SendForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		assert.NoError(t, err)
		assert.Equal(t, "92.00", form.Get("amount"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"CHK-1"}`))
	}))
	defer server.Close()

	client := NewGatewayHTTPClient(CreateHTTPClientConfig(server.URL+"/", "secret-token", 0, 0))
	ex, err := client.SendForm(context.Background(), &HTTPRequest{
		Operation: "checkout",
		Method:    http.MethodPost,
		Endpoint:  "/v1/checkouts",
		FormData:  url.Values{"amount": {"92.00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ex.StatusCode)
	assert.Equal(t, `{"id":"CHK-1"}`, string(ex.Body))
	assert.Equal(t, "checkout", ex.Operation)
	assert.Equal(t, "application/json", ex.Headers["Content-Type"])
	assert.Equal(t, server.URL+"/v1/checkouts", ex.URL)
}

func TestGatewayHTTPClient_ErrorStatusKeepsExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ENTITY", r.URL.Query().Get("entityId"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"result":{"code":"200.300.404"}}`))
	}))
	defer server.Close()

	client := NewGatewayHTTPClient(CreateHTTPClientConfig(server.URL, "t", time.Second, time.Second))
	ex, err := client.Get(context.Background(), &HTTPRequest{
		Operation:   "query",
		Endpoint:    "v1/query",
		QueryParams: url.Values{"entityId": {"ENTITY"}},
	})
	assert.ErrorIs(t, err, ErrGateway)
	require.NotNil(t, ex)
	assert.Equal(t, http.StatusBadRequest, ex.StatusCode)
	assert.NotContains(t, ex.URL, "ENTITY")
}

func TestGatewayHTTPClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewGatewayHTTPClient(CreateHTTPClientConfig(server.URL, "t", 0, 0))
	ex, err := client.Get(context.Background(), &HTTPRequest{Endpoint: "/v1/query"})
	assert.ErrorIs(t, err, ErrGateway)
	assert.Nil(t, ex)
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, endpoint, want string
	}{
		{"https://a.de/", "/v1/x", "https://a.de/v1/x"},
		{"https://a.de", "v1/x", "https://a.de/v1/x"},
		{"https://a.de/", "v1/x", "https://a.de/v1/x"},
		{"https://a.de", "/v1/x", "https://a.de/v1/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinURL(tt.base, tt.endpoint))
	}
}
