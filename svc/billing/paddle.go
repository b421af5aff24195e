package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleSignatureHeader carries the Paddle webhook signature.
const PaddleSignatureHeader = "Paddle-Signature"

// PaddleTransactions creates checkout transactions.
type PaddleTransactions interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

// PaddleCustomers creates customers.
type PaddleCustomers interface {
	CreateCustomer(ctx context.Context, req *paddle.CreateCustomerRequest) (*paddle.Customer, error)
}

// PaddleSubscriptions reads subscriptions.
type PaddleSubscriptions interface {
	GetSubscription(ctx context.Context, req *paddle.GetSubscriptionRequest) (*paddle.Subscription, error)
}

// PaddleProvider implements Provider on Paddle Billing. Plans must carry a
// Paddle price id.
type PaddleProvider struct {
	transactions  PaddleTransactions
	customers     PaddleCustomers
	subscriptions PaddleSubscriptions
	verifier      *paddle.WebhookVerifier
}

// PaddleOption configures a PaddleProvider.
type PaddleOption func(*PaddleProvider)

// WithPaddleClients replaces the API clients built from the API key.
func WithPaddleClients(tx PaddleTransactions, customers PaddleCustomers, subs PaddleSubscriptions) PaddleOption {
	return func(p *PaddleProvider) {
		if tx != nil {
			p.transactions = tx
		}
		if customers != nil {
			p.customers = customers
		}
		if subs != nil {
			p.subscriptions = subs
		}
	}
}

// NewPaddleProvider builds a provider for the production or sandbox
// environment named in cfg.
func NewPaddleProvider(cfg PaddleConfig, opts ...PaddleOption) (*PaddleProvider, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("paddle api key and webhook secret are required"))
	}

	var (
		sdk *paddle.SDK
		err error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		sdk, err = paddle.New(cfg.APIKey)
	default:
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown paddle environment %q", cfg.Environment))
	}
	if err != nil {
		return nil, fmt.Errorf("paddle: create client: %w", err)
	}

	p := &PaddleProvider{
		transactions:  sdk.TransactionsClient,
		customers:     sdk.CustomersClient,
		subscriptions: sdk.SubscriptionsClient,
		verifier:      paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *PaddleProvider) Name() string            { return "paddle" }
func (p *PaddleProvider) SignatureHeader() string { return PaddleSignatureHeader }

func (p *PaddleProvider) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	c, err := p.customers.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email:      params.Email,
		CustomData: paddle.CustomData{MetadataUserID: params.UserID},
	})
	if err != nil {
		return "", fmt.Errorf("paddle: create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a draft transaction for the plan's catalog
// price and returns its hosted checkout link.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if params.ProviderPriceID == "" {
		return nil, fmt.Errorf("paddle: meal plan %s has no paddle price id", params.MealPlanID)
	}

	custom := paddle.CustomData{}
	for k, v := range params.Metadata() {
		custom[k] = v
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  params.ProviderPriceID,
		Quantity: 1,
	})
	req := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: custom,
		Checkout:   &paddle.TransactionCheckout{URL: paddle.PtrTo(params.SuccessURL)},
	}
	if params.CustomerID != "" {
		req.CustomerID = paddle.PtrTo(params.CustomerID)
	}

	tx, err := p.transactions.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("paddle: create transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil {
		return nil, errors.New("paddle: transaction has no checkout url")
	}
	return &CheckoutSession{ID: tx.ID, URL: *tx.Checkout.URL}, nil
}

type paddleNotification struct {
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	Data      paddleData `json:"data"`
}

type paddleData struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	CustomerID     string         `json:"customer_id"`
	SubscriptionID string         `json:"subscription_id"`
	Origin         string         `json:"origin"`
	CustomData     map[string]any `json:"custom_data"`
	BillingPeriod  *struct {
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
	} `json:"current_billing_period"`
	ScheduledChange *struct {
		Action string `json:"action"`
	} `json:"scheduled_change"`
}

// paddleHead holds the fields needed to classify a notification whose body
// does not decode into paddleNotification.
type paddleHead struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		Origin         string `json:"origin"`
		SubscriptionID string `json:"subscription_id"`
	} `json:"data"`
}

// ParseEvent verifies the Paddle-Signature header and decodes the
// notification.
func (p *PaddleProvider) ParseEvent(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, errors.Join(ErrInvalidSignature, errors.New("missing paddle signature"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set(PaddleSignatureHeader, signature)

	ok, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		var head paddleHead
		_ = json.Unmarshal(payload, &head)
		return &Event{
			ID:      head.EventID,
			Type:    head.EventType,
			Kind:    paddleEventKind(head.EventType, head.Data.Origin, head.Data.SubscriptionID),
			Payload: payload,
		}, errors.Join(ErrInvalidEvent, err)
	}

	ev := &Event{
		ID:         n.EventID,
		Type:       n.EventType,
		Kind:       paddleEventKind(n.EventType, n.Data.Origin, n.Data.SubscriptionID),
		CustomerID: n.Data.CustomerID,
		Payload:    payload,
	}

	switch {
	case strings.HasPrefix(n.EventType, "transaction."):
		ev.SubscriptionID = n.Data.SubscriptionID
		ev.UserID = customString(n.Data.CustomData, MetadataUserID)
		if ev.UserID == "" {
			ev.UserID = customString(n.Data.CustomData, legacyMetadataUserID)
		}
		ev.MealPlanID = customString(n.Data.CustomData, MetadataMealPlanID)

	case strings.HasPrefix(n.EventType, "subscription."):
		ps := &ProviderSubscription{
			ID:         n.Data.ID,
			CustomerID: n.Data.CustomerID,
			Status:     n.Data.Status,
		}
		if n.Data.ScheduledChange != nil {
			ps.CancelAtPeriodEnd = n.Data.ScheduledChange.Action == "cancel"
		}
		if n.Data.BillingPeriod != nil {
			ps.PeriodStart = parsePaddleTime(n.Data.BillingPeriod.StartsAt)
			ps.PeriodEnd = parsePaddleTime(n.Data.BillingPeriod.EndsAt)
		}
		ev.Subscription = ps
		ev.SubscriptionID = ps.ID
	}
	return ev, nil
}

func (p *PaddleProvider) RetrieveSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	sub, err := p.subscriptions.GetSubscription(ctx, &paddle.GetSubscriptionRequest{SubscriptionID: id})
	if err != nil {
		return nil, fmt.Errorf("paddle: retrieve subscription %s: %w", id, err)
	}

	ps := &ProviderSubscription{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
		Status:     string(sub.Status),
	}
	if sub.ScheduledChange != nil {
		ps.CancelAtPeriodEnd = string(sub.ScheduledChange.Action) == "cancel"
	}
	if sub.CurrentBillingPeriod != nil {
		ps.PeriodStart = parsePaddleTime(sub.CurrentBillingPeriod.StartsAt)
		ps.PeriodEnd = parsePaddleTime(sub.CurrentBillingPeriod.EndsAt)
	}
	return ps, nil
}

// paddleEventKind classifies a notification. A completed transaction that
// belongs to no subscription is a one-off purchase and is ignored. Otherwise
// it is a renewal payment when Paddle created it for a recurring charge and a
// checkout completion when it did not.
func paddleEventKind(eventType, origin, subscriptionID string) EventKind {
	switch eventType {
	case "transaction.completed":
		if subscriptionID == "" {
			return EventIgnored
		}
		if origin == "subscription_recurring" {
			return EventPaymentSucceeded
		}
		return EventCheckoutCompleted
	case "transaction.payment_failed", "subscription.past_due":
		return EventPaymentFailed
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	}
	return EventIgnored
}

func parsePaddleTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func customString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
