package billing_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/mealsub/svc/auth"
	"github.com/dmitrymomot/mealsub/svc/billing"
)

// memStore is an in-memory billing.Store keyed like the real tables.
type memStore struct {
	mu    sync.Mutex
	users map[string]*billing.User
	plans map[string]*billing.MealPlan
	subs  map[string]billing.Subscription

	calls            int
	setCustomerCalls int
	setCustomerErr   error
	upsertErr        error
	updateErr        error
}

func newMemStore() *memStore {
	return &memStore{
		users: map[string]*billing.User{},
		plans: map[string]*billing.MealPlan{},
		subs:  map[string]billing.Subscription{},
	}
}

func (s *memStore) GetUser(_ context.Context, id string) (*billing.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	u, ok := s.users[id]
	if !ok {
		return nil, billing.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetMealPlan(_ context.Context, id string) (*billing.MealPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.plans[id]
	if !ok {
		return nil, billing.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) SetCustomerID(_ context.Context, userID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.setCustomerCalls++
	if s.setCustomerErr != nil {
		return s.setCustomerErr
	}
	if u, ok := s.users[userID]; ok && u.CustomerID == "" {
		u.CustomerID = customerID
	}
	return nil
}

func (s *memStore) UpsertSubscription(_ context.Context, sub billing.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if cur, ok := s.subs[sub.ExternalSubscriptionID]; ok {
		if cur.Status != billing.StatusCancelled {
			cur.Status = sub.Status
		}
		cur.StartDate, cur.EndDate = sub.StartDate, sub.EndDate
		s.subs[sub.ExternalSubscriptionID] = cur
		return nil
	}
	s.subs[sub.ExternalSubscriptionID] = sub
	return nil
}

func (s *memStore) UpdateSubscription(_ context.Context, externalID string, upd billing.SubscriptionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.updateErr != nil {
		return false, s.updateErr
	}
	cur, ok := s.subs[externalID]
	if !ok {
		return false, nil
	}
	if upd.Status != "" {
		cur.Status = upd.Status
	}
	if upd.EndDate != nil {
		cur.EndDate = *upd.EndDate
	}
	s.subs[externalID] = cur
	return true, nil
}

func (s *memStore) SubscriberEmail(_ context.Context, externalID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[externalID]
	if !ok {
		return "", billing.ErrUserNotFound
	}
	u, ok := s.users[sub.UserID]
	if !ok {
		return "", billing.ErrUserNotFound
	}
	return u.Email, nil
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *memStore) sub(id string) (billing.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	return sub, ok
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string            { return "mock" }
func (m *mockProvider) SignatureHeader() string { return "X-Mock-Signature" }

func (m *mockProvider) CreateCustomer(ctx context.Context, params billing.CustomerParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProvider) ParseEvent(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

func (m *mockProvider) RetrieveSubscription(ctx context.Context, id string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

type stubVerifier struct {
	tokens map[string]string
}

func (v stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return auth.Identity{UserID: id}, nil
}

type mockDedup struct {
	mock.Mock
}

func (m *mockDedup) Claim(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Archive(ctx context.Context, provider string, ev *billing.Event) error {
	return m.Called(ctx, provider, ev).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SubscriptionStarted(ctx context.Context, sub billing.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, externalID string) error {
	return m.Called(ctx, externalID).Error(0)
}
