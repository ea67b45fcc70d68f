package middle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/vrpay/infra/response"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		shouldPanic    bool
	}{
		{
			name: "Normal request - no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Handler panics with string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("test panic")
			},
			expectedStatus: http.StatusInternalServerError,
			shouldPanic:    true,
		},
		{
			name: "Handler panics with error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]int
				m["x"]++
			},
			expectedStatus: http.StatusInternalServerError,
			shouldPanic:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequestID(PanicRecoveryMiddleware()(tt.handler))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)

			if !tt.shouldPanic {
				return
			}
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

			var resp response.Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			assert.Equal(t, http.StatusInternalServerError, resp.Code)
			assert.Equal(t, "Internal server error", resp.Message)
			assert.Equal(t, "an unexpected error occurred", resp.Error)
		})
	}
}

func TestPanicRecoveryWithCustomHandler(t *testing.T) {
	var capturedPanic any

	handler := PanicRecoveryWithCustomHandler(func(w http.ResponseWriter, r *http.Request, panicValue any) {
		capturedPanic = panicValue
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("custom panic handler"))
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("custom test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "custom test panic", capturedPanic)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "custom panic handler", w.Body.String())
}

func TestPanicRecovery_AbortHandlerPropagates(t *testing.T) {
	handler := PanicRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	})
}
