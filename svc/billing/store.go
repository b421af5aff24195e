package billing

import "context"

// Store persists users' customer ids and subscriptions.
type Store interface {
	// GetUser fails with ErrUserNotFound when there is no such user.
	GetUser(ctx context.Context, id string) (*User, error)
	// GetMealPlan fails with ErrPlanNotFound when there is no such plan.
	GetMealPlan(ctx context.Context, id string) (*MealPlan, error)
	// SetCustomerID records customerID for the user unless one is already
	// stored.
	SetCustomerID(ctx context.Context, userID, customerID string) error
	// UpsertSubscription inserts the row or, when the external id already
	// exists, overwrites its dates and its status. A cancelled row keeps
	// its status.
	UpsertSubscription(ctx context.Context, sub Subscription) error
	// UpdateSubscription applies upd and reports whether a row matched.
	UpdateSubscription(ctx context.Context, externalID string, upd SubscriptionUpdate) (bool, error)
}

// RecipientLookup resolves the e-mail address behind a subscription.
type RecipientLookup interface {
	SubscriberEmail(ctx context.Context, externalID string) (string, error)
}

// Deduplicator claims webhook event ids. Claim reports false when the id was
// already claimed.
type Deduplicator interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

// Archive stores raw verified webhook payloads.
type Archive interface {
	Archive(ctx context.Context, provider string, ev *Event) error
}

// Notifier tells subscribers about billing changes.
type Notifier interface {
	SubscriptionStarted(ctx context.Context, sub Subscription) error
	PaymentFailed(ctx context.Context, externalID string) error
}
