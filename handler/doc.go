// Package handler provides the HTTP handlers of the VR Payment integration.
//
// The handlers bridge the HTTP layer with provider.PaymentService. They
// decode and validate input, map service errors to status codes and write
// the JSON envelope of the response package.
//
// # Core Handlers
//
//   - PaymentHandler: checkouts, status queries, the shopper return and webhooks
//   - ExchangeHandler: read access to the OpenSearch exchange archive
//   - HealthHandler: storage and collaborator health
//   - ClassifyResultCode and ListResultCategories: result code lookup
//
// # Routes
//
//	POST /v1/checkouts                                     create a checkout
//	GET  /v1/checkouts/{merchantTransactionId}             widget data
//	GET  /v1/checkouts/{merchantTransactionId}/status      checkout status
//	GET  /v1/payments/{merchantTransactionId}              query by transaction id
//	GET  /v1/payments/{merchantTransactionId}/responses    stored responses, ?outcome=
//	GET  /v1/payments/{merchantTransactionId}/exchanges    archived exchanges
//	GET  /v1/exchanges/stats                               exchange statistics, ?hours=
//	GET  /v1/exchanges/errors                              recent failed exchanges, ?hours=
//	GET  /v1/result-codes                                  result categories
//	GET  /v1/result-codes/{code}                           classify a result code
//	GET  /return                                           shopper return, redirects
//	POST /webhooks                                         encrypted gateway notifications
//	GET  /health                                           health check
//
// # Error Mapping
//
// Unknown payments answer 404 and reused transaction ids or checkouts 409.
// Missing or malformed input answers 400, as does a webhook whose payload
// cannot be normalized. Webhooks failing authentication answer 401. Gateway
// failures answer 502, including gateway bodies that cannot be normalized.
// A webhook whose first delivery is still running answers 409 with
// Retry-After. The shopper return never shows an error page of its own:
// unexpected failures redirect to the configured error URL.
package handler
