package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeSignatureHeader carries the Stripe webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// StripeCustomers is the part of the Stripe customers API the provider uses.
type StripeCustomers interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

// StripeSessions creates Checkout sessions.
type StripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeSubscriptions reads subscriptions.
type StripeSubscriptions interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// StripeProvider implements Provider on Stripe Checkout and Billing.
type StripeProvider struct {
	customers     StripeCustomers
	sessions      StripeSessions
	subscriptions StripeSubscriptions
	webhookSecret string
}

// StripeOption configures a StripeProvider.
type StripeOption func(*StripeProvider)

// WithStripeClients replaces the API clients built from the secret key.
func WithStripeClients(customers StripeCustomers, sessions StripeSessions, subscriptions StripeSubscriptions) StripeOption {
	return func(p *StripeProvider) {
		if customers != nil {
			p.customers = customers
		}
		if sessions != nil {
			p.sessions = sessions
		}
		if subscriptions != nil {
			p.subscriptions = subscriptions
		}
	}
}

// NewStripeProvider builds a provider from the secret key and webhook signing
// secret in cfg.
func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" || cfg.WebhookSecret == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("stripe secret key and webhook secret are required"))
	}

	api := client.New(cfg.SecretKey, nil)
	p := &StripeProvider{
		customers:     api.Customers,
		sessions:      api.CheckoutSessions,
		subscriptions: api.Subscriptions,
		webhookSecret: cfg.WebhookSecret,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *StripeProvider) Name() string            { return "stripe" }
func (p *StripeProvider) SignatureHeader() string { return StripeSignatureHeader }

// CreateCustomer registers the user as a Stripe customer tagged with the
// local user id.
func (p *StripeProvider) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	cp := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(params.Email),
	}
	cp.AddMetadata(MetadataUserID, params.UserID)

	c, err := p.customers.New(cp)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession opens a card-only subscription checkout with inline
// monthly price data.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	metadata := params.Metadata()

	sp := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:           stripe.String(params.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(params.PlanName),
				},
				UnitAmount: stripe.Int64(params.UnitAmount),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	for k, v := range metadata {
		sp.AddMetadata(k, v)
	}

	s, err := p.sessions.New(sp)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event
// object for the kinds the reconciler handles.
func (p *StripeProvider) ParseEvent(_ context.Context, payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, errors.Join(ErrInvalidSignature, webhook.ErrNotSigned)
	}

	se, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	ev := &Event{
		ID:      se.ID,
		Type:    string(se.Type),
		Kind:    stripeEventKind(se.Type),
		Payload: payload,
	}
	if !ev.Kind.Relevant() || se.Data == nil {
		return ev, nil
	}

	switch ev.Kind {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(se.Data.Raw, &s); err != nil {
			return ev, errors.Join(ErrInvalidEvent, err)
		}
		ev.UserID = s.Metadata[MetadataUserID]
		if ev.UserID == "" {
			ev.UserID = s.Metadata[legacyMetadataUserID]
		}
		ev.MealPlanID = s.Metadata[MetadataMealPlanID]
		if s.Subscription != nil {
			ev.SubscriptionID = s.Subscription.ID
		}
		if s.Customer != nil {
			ev.CustomerID = s.Customer.ID
		}

	case EventPaymentSucceeded, EventPaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(se.Data.Raw, &inv); err != nil {
			return ev, errors.Join(ErrInvalidEvent, err)
		}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(se.Data.Raw, &sub); err != nil {
			return ev, errors.Join(ErrInvalidEvent, err)
		}
		ev.Subscription = stripeSubscription(&sub)
		ev.SubscriptionID = sub.ID
		ev.CustomerID = ev.Subscription.CustomerID
	}
	return ev, nil
}

// RetrieveSubscription fetches the subscription's current billing period.
func (p *StripeProvider) RetrieveSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	sub, err := p.subscriptions.Get(id, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve subscription %s: %w", id, err)
	}
	return stripeSubscription(sub), nil
}

func stripeEventKind(t stripe.EventType) EventKind {
	switch t {
	case "checkout.session.completed":
		return EventCheckoutCompleted
	case "invoice.payment_succeeded":
		return EventPaymentSucceeded
	case "invoice.payment_failed":
		return EventPaymentFailed
	case "customer.subscription.updated":
		return EventSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventSubscriptionDeleted
	}
	return EventIgnored
}

func stripeSubscription(sub *stripe.Subscription) *ProviderSubscription {
	ps := &ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodStart > 0 {
		ps.PeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		ps.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return ps
}
