// Package provider runs VR Payment checkouts and keeps every gateway answer
// linked to the payment it belongs to.
//
// # Core Concepts
//
//   - Gateway: the VR Payment API (see the vrpay subpackage)
//   - Store: persistence for payments, gateway responses and webhooks
//   - PaymentService: the checkout, status and webhook flows
//   - ResolveOwner: links a response that carries no payment reference
//
// Result codes are classified by the resultcode subpackage, gateway JSON is
// flattened by normalize and webhook deliveries are opened by webhook.
//
// # Checkout Flow
//
//	service := provider.NewPaymentService(store, gateway, provider.ServiceConfig{
//	    WebhookKey:       os.Getenv("VRPAY_WEBHOOK_KEY"),
//	    ShopperResultURL: "https://shop.example.com/return",
//	})
//
//	payment, _, err := service.CreateCheckout(ctx, provider.CheckoutRequest{
//	    Amount:                "92.00",
//	    PaymentType:           provider.TypeDebit,
//	    MerchantTransactionID: "order-00012345",
//	})
//
// The shopper pays on the widget and is sent back with the checkout id and
// a resource path. CompleteReturn queries the gateway and tells the caller
// whether the payment succeeded, was rejected or is still pending.
//
// # Webhooks
//
// HandleWebhook decrypts a delivery, stores it and, for payment
// notifications, links it to its payment. A notification no payment can be
// found for is stored unlinked. Deliveries already seen are reported with
// ErrDuplicateWebhook when a Deduper is configured.
package provider
