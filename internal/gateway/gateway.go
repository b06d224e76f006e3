package gateway

import "context"

// Intent is a provider-side payment record created before the customer is
// redirected to pay. Amount is in the gateway's minor units.
type Intent struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// Refund is the provider's acknowledgement of a refund request.
type Refund struct {
	RefundID string
	Amount   int64
}

// Gateway is the adapter contract to the external payment provider.
type Gateway interface {
	// CreateIntent creates a remote payment intent for the given amount in
	// major units. The receipt reference ties the intent back to the order.
	CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*Intent, error)

	// VerifySignature checks the callback signature over the gateway order
	// and payment ids. A mismatch returns (false, nil); only malformed
	// inputs produce an error.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) (bool, error)

	// Refund requests a refund of the given amount (major units) for a
	// captured payment.
	Refund(ctx context.Context, gatewayPaymentID string, amount float64) (*Refund, error)
}
