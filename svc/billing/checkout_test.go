package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mealsub/svc/billing"
)

const (
	testUserID = "6f1c1b5e-8f0a-4e4b-9d59-2f1f3f0b7a11"
	testToken  = "valid-token"
)

func checkoutFixture() (*memStore, *mockProvider, *billing.CheckoutService) {
	store := newMemStore()
	store.users[testUserID] = &billing.User{ID: testUserID, Email: "eater@mealsub.test"}
	store.plans["mp1"] = &billing.MealPlan{ID: "mp1", Name: "Weekday Lunch", PriceMinor: 14900}
	store.plans["free"] = &billing.MealPlan{ID: "free", Name: "Free"}

	provider := &mockProvider{}
	svc := billing.NewCheckoutService(store, provider,
		stubVerifier{tokens: map[string]string{testToken: testUserID, "ghost-token": "9d7a3a52-2b8e-4a1e-8c55-6d3e2d1c0f00"}},
		"https://mealsub.test/",
	)
	return store, provider, svc
}

func TestCheckoutService_CreateSession(t *testing.T) {
	t.Parallel()

	t.Run("creates customer and session for new user", func(t *testing.T) {
		t.Parallel()
		store, provider, svc := checkoutFixture()

		provider.On("CreateCustomer", mock.Anything, billing.CustomerParams{UserID: testUserID, Email: "eater@mealsub.test"}).
			Return("cus_1", nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p billing.CheckoutSessionParams) bool {
			return p.CustomerID == "cus_1" &&
				p.UnitAmount == 14900 &&
				p.Currency == "usd" &&
				p.PlanName == "Weekday Lunch" &&
				p.SuccessURL == "https://mealsub.test/checkout-success?session_id={CHECKOUT_SESSION_ID}" &&
				p.CancelURL == "https://mealsub.test/checkout-cancelled" &&
				p.Metadata()[billing.MetadataUserID] == testUserID &&
				p.Metadata()[billing.MetadataMealPlanID] == "mp1"
		})).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil).Once()

		session, err := svc.CreateSession(context.Background(), testToken, "mp1")
		require.NoError(t, err)
		assert.Equal(t, "cs_1", session.ID)
		assert.Equal(t, "https://checkout.test/cs_1", session.URL)
		assert.Equal(t, 1, store.setCustomerCalls)
		assert.Equal(t, "cus_1", store.users[testUserID].CustomerID)
		provider.AssertExpectations(t)
	})

	t.Run("reuses stored customer", func(t *testing.T) {
		t.Parallel()
		store, provider, svc := checkoutFixture()
		store.users[testUserID].CustomerID = "cus_existing"

		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p billing.CheckoutSessionParams) bool {
			return p.CustomerID == "cus_existing"
		})).Return(&billing.CheckoutSession{ID: "cs_2"}, nil).Once()

		_, err := svc.CreateSession(context.Background(), testToken, "mp1")
		require.NoError(t, err)
		assert.Zero(t, store.setCustomerCalls)
		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("customer id write failure does not fail checkout", func(t *testing.T) {
		t.Parallel()
		store, provider, svc := checkoutFixture()
		store.setCustomerErr = billing.ErrPersistence

		provider.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&billing.CheckoutSession{ID: "cs_3"}, nil).Once()

		session, err := svc.CreateSession(context.Background(), testToken, "mp1")
		require.NoError(t, err)
		assert.Equal(t, "cs_3", session.ID)
		assert.Equal(t, 1, store.setCustomerCalls)
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			token   string
			planID  string
			wantErr error
		}{
			{name: "missing plan id", token: testToken, planID: " ", wantErr: billing.ErrMissingPlanID},
			{name: "bad token", token: "nope", planID: "mp1", wantErr: billing.ErrUnauthenticated},
			{name: "unknown plan", token: testToken, planID: "mp404", wantErr: billing.ErrPlanNotFound},
			{name: "zero price", token: testToken, planID: "free", wantErr: billing.ErrInvalidPlanPrice},
			{name: "unknown user", token: "ghost-token", planID: "mp1", wantErr: billing.ErrUserNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, provider, svc := checkoutFixture()

				_, err := svc.CreateSession(context.Background(), tt.token, tt.planID)
				require.ErrorIs(t, err, tt.wantErr)
				provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		_, provider, svc := checkoutFixture()
		provider.On("CreateCustomer", mock.Anything, mock.Anything).Return("", errors.New("card network down")).Once()

		_, err := svc.CreateSession(context.Background(), testToken, "mp1")
		require.ErrorIs(t, err, billing.ErrProviderError)
	})

	t.Run("session failure", func(t *testing.T) {
		t.Parallel()
		store, provider, svc := checkoutFixture()
		store.users[testUserID].CustomerID = "cus_1"
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		_, err := svc.CreateSession(context.Background(), testToken, "mp1")
		require.ErrorIs(t, err, billing.ErrProviderError)
	})
}

func TestNewCheckoutService_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { billing.NewCheckoutService(nil, &mockProvider{}, stubVerifier{}, "") })
	assert.Panics(t, func() { billing.NewCheckoutService(newMemStore(), nil, stubVerifier{}, "") })
	assert.Panics(t, func() { billing.NewCheckoutService(newMemStore(), &mockProvider{}, nil, "") })
}
