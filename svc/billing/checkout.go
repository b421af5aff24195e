package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/mealsub/pkg/logger"
	"github.com/dmitrymomot/mealsub/svc/auth"
)

// CheckoutService opens hosted checkout sessions.
type CheckoutService struct {
	store    Store
	provider Provider
	verifier auth.Verifier
	siteURL  string
	currency string
	log      *slog.Logger
}

// CheckoutOption configures a CheckoutService.
type CheckoutOption func(*CheckoutService)

// WithCheckoutLogger sets the logger. The default discards output.
func WithCheckoutLogger(l *slog.Logger) CheckoutOption {
	return func(s *CheckoutService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCurrency overrides the default "usd" billing currency.
func WithCurrency(code string) CheckoutOption {
	return func(s *CheckoutService) {
		if code != "" {
			s.currency = strings.ToLower(code)
		}
	}
}

// NewCheckoutService panics when a required dependency is nil.
func NewCheckoutService(store Store, provider Provider, verifier auth.Verifier, siteURL string, opts ...CheckoutOption) *CheckoutService {
	if store == nil {
		panic("billing: Store is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	if verifier == nil {
		panic("billing: auth.Verifier is required")
	}

	s := &CheckoutService{
		store:    store,
		provider: provider,
		verifier: verifier,
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		currency: "usd",
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a monthly subscription checkout for the plan on behalf
// of the token's owner.
func (s *CheckoutService) CreateSession(ctx context.Context, token, mealPlanID string) (*CheckoutSession, error) {
	if strings.TrimSpace(mealPlanID) == "" {
		return nil, ErrMissingPlanID
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, errors.Join(ErrUnauthenticated, err)
	}
	log := s.log.With(logger.UserID(identity.UserID), logger.MealPlanID(mealPlanID))

	plan, err := s.store.GetMealPlan(ctx, mealPlanID)
	if err != nil {
		return nil, err
	}
	if plan.PriceMinor <= 0 {
		return nil, ErrInvalidPlanPrice
	}

	user, err := s.store.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, log, user)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionParams{
		CustomerID:      customerID,
		UserID:          user.ID,
		MealPlanID:      plan.ID,
		PlanName:        plan.Name,
		UnitAmount:      plan.PriceMinor,
		Currency:        s.currency,
		ProviderPriceID: plan.ProviderPriceID,
		SuccessURL:      s.siteURL + "/checkout-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       s.siteURL + "/checkout-cancelled",
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	log.InfoContext(ctx, "checkout session created", logger.SessionID(session.ID), logger.CustomerID(customerID))
	return session, nil
}

// ensureCustomer returns the user's provider customer id, creating the
// customer on first checkout. Persisting a new id is best effort: checkout
// continues with the in-memory value when the write fails.
func (s *CheckoutService) ensureCustomer(ctx context.Context, log *slog.Logger, user *User) (string, error) {
	if user.CustomerID != "" {
		return user.CustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, CustomerParams{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", errors.Join(ErrProviderError, fmt.Errorf("create customer: %w", err))
	}

	if err := s.store.SetCustomerID(ctx, user.ID, customerID); err != nil {
		log.WarnContext(ctx, "failed to persist provider customer id", logger.CustomerID(customerID), logger.Error(err))
	}
	return customerID, nil
}
