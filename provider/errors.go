package provider

import "errors"

var (
	// ErrPaymentNotFound is returned by stores when no payment matches
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrUnownedResponse means no payment could be linked to a response
	ErrUnownedResponse = errors.New("response has no owning payment")
	// ErrDuplicateTransaction means the merchant transaction id is already in use
	ErrDuplicateTransaction = errors.New("merchant transaction id already used")
	// ErrCheckoutAlreadyUsed means the checkout already has status responses
	ErrCheckoutAlreadyUsed = errors.New("checkout already used")
	// ErrResourcePathChanged means the shopper returned with a different resource path
	ErrResourcePathChanged = errors.New("resource path changed")
	// ErrMissingParameter means a required request parameter was empty
	ErrMissingParameter = errors.New("missing parameter")
	// ErrDuplicateWebhook means the same delivery was already processed
	ErrDuplicateWebhook = errors.New("duplicate webhook delivery")
	// ErrWebhookInProgress means another delivery of the same webhook holds the claim
	// and has not stored it yet
	ErrWebhookInProgress = errors.New("webhook delivery in progress")
	// ErrGateway wraps non-2xx answers and transport failures of the gateway
	ErrGateway = errors.New("gateway request failed")
)
