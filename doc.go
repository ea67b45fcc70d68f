// Package vrpay integrates a shop with the VR Payment (Open Payment Platform)
// checkout. It creates checkouts, follows the shopper back from the payment
// widget, opens encrypted webhooks and keeps every gateway answer linked to
// the payment it belongs to.
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Shop / App    │◄──►│     vrpay       │◄──►│   VR Payment    │
//	│                 │    │   (service)     │    │   gateway       │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// The service is split into:
//
//   - provider: payments, the checkout, return and webhook flows
//   - provider/vrpay: the HTTP client of the gateway
//   - provider/resultcode: result code classification
//   - provider/normalize: flattening of gateway JSON
//   - provider/webhook: AES-GCM webhook envelopes
//   - infra/storage: SQLite or PostgreSQL persistence
//   - infra/dedupe, infra/events, infra/metrics: Redis duplicate lookup,
//     Kafka or RabbitMQ outcome events and Prometheus metrics
//   - handler and router: the HTTP API
//
// # Payment Flow
//
//  1. POST /v1/checkouts registers the payment and prepares a checkout.
//  2. The shop renders the widget with the checkout id.
//  3. The shopper pays and is sent to /return with id and resourcePath.
//  4. The service queries the gateway and redirects the shopper to the
//     success, pending, rejected or error URL.
//  5. The gateway also posts an encrypted webhook to /webhooks, which is
//     decrypted, stored and linked to its payment.
//
// # Configuration
//
// Settings are read from the environment, a .env file and optionally the
// file named by CONFIG_FILE:
//
//	VR_PAYMENT_BEARER_TOKEN=OGE4Mjk0MTc0ZTczNWQwYzAxNGU3OGJlYjZjNTE1NGZ8...
//	VR_PAYMENT_ENTITY_ID=8a8294174e735d0c014e78beb6b9154b
//	VR_PAYMENT_SANDBOX=true
//	VR_PAYMENT_WEBHOOK_KEY=000102030405060708090a0b0c0d0e0f...
//	API_KEY=your-api-key
//	STORAGE_DRIVER=sqlite
//	REDIS_ADDR=localhost:6379
//	EVENT_BROKER=kafka
//
// # Security Features
//
//   - API key authentication on /v1
//   - Rate limiting
//   - IP whitelisting
//   - Request validation
//   - Authenticated webhook decryption
package vrpay
