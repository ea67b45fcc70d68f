package middle

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/vrpay/infra/logger"
)

// RequestLoggingMiddleware writes one structured line per request
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			lc := logger.LogContext{
				RequestID:             middleware.GetReqID(r.Context()),
				MerchantTransactionID: chi.URLParam(r, "merchantTransactionId"),
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}

			msg := fmt.Sprintf("%s %s %d", r.Method, r.URL.Path, status)
			switch {
			case status >= 500:
				logger.Error(msg, nil, lc)
			case status >= 400:
				logger.Warn(msg, lc)
			default:
				logger.Info(msg, lc)
			}
		})
	}
}
