package billing

import "context"

// Provider is a payment provider.
type Provider interface {
	// Name identifies the provider in logs and archive keys.
	Name() string
	// SignatureHeader is the request header carrying the webhook signature.
	SignatureHeader() string
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	// ParseEvent verifies signature over the raw payload and classifies the
	// event. Verification failures match ErrInvalidSignature. A verified
	// event whose body cannot be decoded is returned with ID, Type and Kind
	// set, alongside an error matching ErrInvalidEvent.
	ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error)
	RetrieveSubscription(ctx context.Context, id string) (*ProviderSubscription, error)
}
