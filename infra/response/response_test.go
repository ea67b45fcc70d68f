package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, "Test successful", map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"key": "value"}, resp.Data)
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadGateway, "Gateway failed", errors.New("timeout"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Gateway failed", resp.Message)
	assert.Equal(t, "timeout", resp.Error)
}

func TestErrorResponse_NilError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "Test error", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), `"error"`)
}

func TestEnvelopeKeys(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		want  []string
	}{
		{"success with data", func(w http.ResponseWriter) {
			Success(w, http.StatusCreated, "Checkout created", map[string]string{"checkoutId": "CHK-1"})
		}, []string{"code", "data", "message", "success"}},
		{"success without data", func(w http.ResponseWriter) {
			Success(w, http.StatusOK, "Duplicate webhook ignored", nil)
		}, []string{"code", "message", "success"}},
		{"error", func(w http.ResponseWriter) {
			Error(w, http.StatusConflict, "Webhook is being processed", errors.New("webhook delivery in progress"))
		}, []string{"code", "error", "message", "success"}},
		{"error with data", func(w http.ResponseWriter) {
			WriteJSON(w, http.StatusBadGateway, Response{Code: http.StatusBadGateway, Message: "Gateway request failed", Error: "HTTP 400", Data: map[string]string{"resultCode": "200.300.404"}})
		}, []string{"code", "data", "error", "message", "success"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			var raw map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
			keys := make([]string, 0, len(raw))
			for k := range raw {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.want, keys)
			assert.Equal(t, float64(w.Code), raw["code"])
		})
	}
}

func BenchmarkSuccessResponse(b *testing.B) {
	data := map[string]string{"test": "data"}

	for b.Loop() {
		w := httptest.NewRecorder()
		Success(w, http.StatusOK, "Benchmark test", data)
	}
}
