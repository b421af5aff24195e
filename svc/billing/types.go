package billing

import (
	"strings"
	"time"
)

// Status is the locally stored subscription status.
type Status string

const (
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCancelled  Status = "cancelled"
	StatusTrialing   Status = "trialing"
	StatusIncomplete Status = "incomplete"
	StatusUnpaid     Status = "unpaid"
	StatusPaused     Status = "paused"
)

// NormalizeStatus maps a provider status onto the local vocabulary. Both
// "canceled" spellings and Stripe's terminal "incomplete_expired" become
// StatusCancelled; anything else is kept verbatim.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "canceled", "cancelled", "incomplete_expired":
		return StatusCancelled
	default:
		return Status(strings.ToLower(strings.TrimSpace(s)))
	}
}

// User is the subset of the users table the billing flows read.
type User struct {
	ID         string
	Email      string
	CustomerID string
}

// MealPlan is a purchasable plan. PriceMinor is the monthly price in minor
// currency units (cents); zero means the plan has no usable price.
type MealPlan struct {
	ID              string
	Name            string
	PriceMinor      int64
	ProviderPriceID string
}

// Subscription is one row of the subscriptions table.
type Subscription struct {
	UserID                 string
	MealPlanID             string
	ExternalSubscriptionID string
	Status                 Status
	StartDate              time.Time
	EndDate                time.Time
}

// SubscriptionUpdate is a blind overwrite of the mutable columns. Empty
// Status or nil EndDate leave the column unchanged.
type SubscriptionUpdate struct {
	Status  Status
	EndDate *time.Time
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
}

// ReconciledStatus is the status to store for a subscription_updated event:
// a subscription scheduled to cancel at period end is already treated as
// cancelled.
func (s ProviderSubscription) ReconciledStatus() Status {
	if s.CancelAtPeriodEnd {
		return StatusCancelled
	}
	return NormalizeStatus(s.Status)
}

// EventKind is the provider-independent classification of a webhook event.
type EventKind string

const (
	EventIgnored             EventKind = ""
	EventCheckoutCompleted   EventKind = "checkout_completed"
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventPaymentFailed       EventKind = "payment_failed"
	EventSubscriptionUpdated EventKind = "subscription_updated"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
)

// Relevant reports whether the reconciler acts on events of this kind.
func (k EventKind) Relevant() bool {
	switch k {
	case EventCheckoutCompleted, EventPaymentSucceeded, EventPaymentFailed,
		EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	}
	return false
}

// Metadata keys attached to checkout sessions.
const (
	MetadataUserID     = "user_id"
	MetadataMealPlanID = "meal_plan_id"

	// legacyMetadataUserID is the key used by sessions created before the
	// rename to user_id.
	legacyMetadataUserID = "supabase_user_id"
)

// Event is a verified, parsed webhook event.
type Event struct {
	ID             string
	Type           string
	Kind           EventKind
	SubscriptionID string
	CustomerID     string
	UserID         string
	MealPlanID     string
	// Subscription is set for subscription_updated and subscription_deleted.
	Subscription *ProviderSubscription
	Payload      []byte
}

// CustomerParams describes a provider customer to create.
type CustomerParams struct {
	UserID string
	Email  string
}

// CheckoutSessionParams describes a hosted subscription checkout for one
// plan at quantity one, billed monthly.
type CheckoutSessionParams struct {
	CustomerID      string
	UserID          string
	MealPlanID      string
	PlanName        string
	UnitAmount      int64
	Currency        string
	ProviderPriceID string
	SuccessURL      string
	CancelURL       string
}

// Metadata returns the key/value pairs attached to the session.
func (p CheckoutSessionParams) Metadata() map[string]string {
	return map[string]string{
		MetadataUserID:     p.UserID,
		MetadataMealPlanID: p.MealPlanID,
	}
}

// CheckoutSession is a created hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}
