package middle

import (
	"mime"
	"net/http"
	"strings"

	"github.com/mstgnz/vrpay/infra/response"
)

const maxRequestSize = 1 << 20

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// IPWhitelistMiddleware restricts access to a comma separated list of IPs.
// An empty list allows everyone.
func IPWhitelistMiddleware(whitelist string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	for _, ip := range strings.Split(whitelist, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed[ip] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := allowed[GetClientIP(r)]; !ok {
				response.Error(w, http.StatusForbidden, "IP not whitelisted", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestValidationMiddleware checks content type and size of request bodies.
// Webhook deliveries carry a hex body and may be sent as text/plain.
func RequestValidationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				isWebhook := strings.HasPrefix(r.URL.Path, "/webhooks")
				contentType := r.Header.Get("Content-Type")

				if contentType == "" {
					if !isWebhook {
						response.Error(w, http.StatusBadRequest, "Content-Type header is required", nil)
						return
					}
				} else {
					mediaType, _, err := mime.ParseMediaType(contentType)
					if err != nil {
						response.Error(w, http.StatusUnsupportedMediaType, "Invalid Content-Type", err)
						return
					}
					if isWebhook && mediaType != "text/plain" && mediaType != "application/json" && mediaType != "application/octet-stream" {
						response.Error(w, http.StatusUnsupportedMediaType, "Content-Type must be text/plain, application/octet-stream or application/json", nil)
						return
					}
					if !isWebhook && mediaType != "application/json" {
						response.Error(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
						return
					}
				}
			}

			if r.ContentLength > maxRequestSize {
				response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
