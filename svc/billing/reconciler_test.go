package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mealsub/svc/billing"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func deliver(t *testing.T, r *billing.Reconciler, p *mockProvider, ev *billing.Event) error {
	t.Helper()
	payload := []byte(ev.ID)
	p.On("ParseEvent", mock.Anything, payload, "sig").Return(ev, nil).Once()
	return r.HandleWebhook(context.Background(), payload, "sig")
}

func checkoutEvent(id string) *billing.Event {
	return &billing.Event{
		ID:             id,
		Type:           "checkout.session.completed",
		Kind:           billing.EventCheckoutCompleted,
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		UserID:         testUserID,
		MealPlanID:     "mp1",
	}
}

func seededStore() *memStore {
	store := newMemStore()
	store.users[testUserID] = &billing.User{ID: testUserID, Email: "eater@mealsub.test"}
	return store
}

func TestReconciler_RejectsInvalidSignature(t *testing.T) {
	t.Parallel()

	store := seededStore()
	provider := &mockProvider{}
	provider.On("ParseEvent", mock.Anything, mock.Anything, "bad").Return(nil, errors.New("no valid signature")).Once()

	err := billing.NewReconciler(store, provider).HandleWebhook(context.Background(), []byte("{}"), "bad")
	require.ErrorIs(t, err, billing.ErrInvalidSignature)
	assert.Zero(t, store.callCount())
}

func TestReconciler_IgnoresIrrelevantEvents(t *testing.T) {
	t.Parallel()

	store := seededStore()
	provider := &mockProvider{}
	dedup := &mockDedup{}
	r := billing.NewReconciler(store, provider, billing.WithDeduplicator(dedup))

	err := deliver(t, r, provider, &billing.Event{ID: "evt_x", Type: "customer.created"})
	require.NoError(t, err)
	assert.Zero(t, store.callCount())
	dedup.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
}

func TestReconciler_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	t.Run("creates one row on replay", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").Return(&billing.ProviderSubscription{
			ID: "sub_1", Status: "active", PeriodStart: periodStart, PeriodEnd: periodEnd,
		}, nil)
		r := billing.NewReconciler(store, provider)

		require.NoError(t, deliver(t, r, provider, checkoutEvent("evt_1")))
		require.NoError(t, deliver(t, r, provider, checkoutEvent("evt_1")))

		assert.Len(t, store.subs, 1)
		sub, ok := store.sub("sub_1")
		require.True(t, ok)
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, "mp1", sub.MealPlanID)
		assert.Equal(t, periodStart, sub.StartDate)
		assert.Equal(t, periodEnd, sub.EndDate)
		assert.Equal(t, "cus_1", store.users[testUserID].CustomerID)
	})

	t.Run("missing metadata is rejected without writes", func(t *testing.T) {
		t.Parallel()
		for _, mutate := range []func(*billing.Event){
			func(ev *billing.Event) { ev.UserID = "" },
			func(ev *billing.Event) { ev.MealPlanID = "" },
			func(ev *billing.Event) { ev.SubscriptionID = "" },
			func(ev *billing.Event) { ev.CustomerID = "" },
		} {
			store := seededStore()
			provider := &mockProvider{}
			ev := checkoutEvent("evt_bad")
			mutate(ev)

			err := deliver(t, billing.NewReconciler(store, provider), provider, ev)
			require.ErrorIs(t, err, billing.ErrInvalidEvent)
			assert.Zero(t, store.callCount())
		}
	})

	t.Run("replay after scheduled cancellation keeps cancelled", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").Return(&billing.ProviderSubscription{
			ID: "sub_1", Status: "active", PeriodStart: periodStart, PeriodEnd: periodEnd,
		}, nil)
		r := billing.NewReconciler(store, provider)

		require.NoError(t, deliver(t, r, provider, checkoutEvent("evt_1")))
		require.NoError(t, deliver(t, r, provider, &billing.Event{
			ID: "evt_u", Kind: billing.EventSubscriptionUpdated, SubscriptionID: "sub_1",
			Subscription: &billing.ProviderSubscription{ID: "sub_1", Status: "active", CancelAtPeriodEnd: true, PeriodEnd: periodEnd},
		}))
		require.NoError(t, deliver(t, r, provider, checkoutEvent("evt_1")))

		sub, ok := store.sub("sub_1")
		require.True(t, ok)
		assert.Equal(t, billing.StatusCancelled, sub.Status)
		assert.Len(t, store.subs, 1)
	})

	t.Run("subscription scheduled to cancel is stored cancelled", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").Return(&billing.ProviderSubscription{
			ID: "sub_1", Status: "active", CancelAtPeriodEnd: true, PeriodEnd: periodEnd,
		}, nil)

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider), provider, checkoutEvent("evt_5")))
		sub, _ := store.sub("sub_1")
		assert.Equal(t, billing.StatusCancelled, sub.Status)
	})

	t.Run("store failure is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		store.upsertErr = billing.ErrPersistence
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").
			Return(&billing.ProviderSubscription{ID: "sub_1", Status: "active"}, nil)
		notifier := &mockNotifier{}

		err := deliver(t, billing.NewReconciler(store, provider, billing.WithNotifier(notifier)), provider, checkoutEvent("evt_2"))
		require.NoError(t, err)
		notifier.AssertNotCalled(t, "SubscriptionStarted", mock.Anything, mock.Anything)
	})

	t.Run("retrieval failure is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").Return(nil, errors.New("timeout"))

		err := deliver(t, billing.NewReconciler(store, provider), provider, checkoutEvent("evt_3"))
		require.NoError(t, err)
		assert.Empty(t, store.subs)
	})

	t.Run("notifies subscriber", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").
			Return(&billing.ProviderSubscription{ID: "sub_1", Status: "active", PeriodEnd: periodEnd}, nil)
		notifier := &mockNotifier{}
		notifier.On("SubscriptionStarted", mock.Anything, mock.MatchedBy(func(s billing.Subscription) bool {
			return s.ExternalSubscriptionID == "sub_1" && s.Status == billing.StatusActive
		})).Return(errors.New("smtp down")).Once()

		err := deliver(t, billing.NewReconciler(store, provider, billing.WithNotifier(notifier)), provider, checkoutEvent("evt_4"))
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})
}

func TestReconciler_PaymentEvents(t *testing.T) {
	t.Parallel()

	newActive := func() *memStore {
		store := seededStore()
		store.subs["sub_1"] = billing.Subscription{
			UserID: testUserID, MealPlanID: "mp1", ExternalSubscriptionID: "sub_1",
			Status: billing.StatusActive, StartDate: periodStart, EndDate: periodEnd,
		}
		return store
	}

	t.Run("failed then succeeded ends active", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		provider := &mockProvider{}
		renewed := periodEnd.AddDate(0, 1, 0)
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").
			Return(&billing.ProviderSubscription{ID: "sub_1", Status: "active", PeriodEnd: renewed}, nil)
		r := billing.NewReconciler(store, provider)

		require.NoError(t, deliver(t, r, provider, &billing.Event{ID: "evt_f", Kind: billing.EventPaymentFailed, SubscriptionID: "sub_1"}))
		sub, _ := store.sub("sub_1")
		assert.Equal(t, billing.StatusPastDue, sub.Status)
		assert.Equal(t, periodEnd, sub.EndDate)

		require.NoError(t, deliver(t, r, provider, &billing.Event{ID: "evt_s", Kind: billing.EventPaymentSucceeded, SubscriptionID: "sub_1"}))
		sub, _ = store.sub("sub_1")
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, renewed, sub.EndDate)
	})

	t.Run("succeeded without retrieval updates status only", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		store.subs["sub_1"] = billing.Subscription{ExternalSubscriptionID: "sub_1", Status: billing.StatusPastDue, EndDate: periodEnd}
		provider := &mockProvider{}
		provider.On("RetrieveSubscription", mock.Anything, "sub_1").Return(nil, errors.New("rate limited"))

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider), provider,
			&billing.Event{ID: "evt_s2", Kind: billing.EventPaymentSucceeded, SubscriptionID: "sub_1"}))
		sub, _ := store.sub("sub_1")
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, periodEnd, sub.EndDate)
	})

	t.Run("one-off invoice is skipped", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		provider := &mockProvider{}

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider), provider,
			&billing.Event{ID: "evt_o", Kind: billing.EventPaymentSucceeded}))
		assert.Zero(t, store.callCount())
		provider.AssertNotCalled(t, "RetrieveSubscription", mock.Anything, mock.Anything)
	})

	t.Run("unknown subscription is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		provider := &mockProvider{}
		notifier := &mockNotifier{}

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider, billing.WithNotifier(notifier)), provider,
			&billing.Event{ID: "evt_u", Kind: billing.EventPaymentFailed, SubscriptionID: "sub_404"}))
		notifier.AssertNotCalled(t, "PaymentFailed", mock.Anything, mock.Anything)
	})

	t.Run("payment failure notifies", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		provider := &mockProvider{}
		notifier := &mockNotifier{}
		notifier.On("PaymentFailed", mock.Anything, "sub_1").Return(nil).Once()

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider, billing.WithNotifier(notifier)), provider,
			&billing.Event{ID: "evt_n", Kind: billing.EventPaymentFailed, SubscriptionID: "sub_1"}))
		notifier.AssertExpectations(t)
	})

	t.Run("update failure is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := newActive()
		store.updateErr = billing.ErrPersistence
		provider := &mockProvider{}

		require.NoError(t, deliver(t, billing.NewReconciler(store, provider), provider,
			&billing.Event{ID: "evt_e", Kind: billing.EventPaymentFailed, SubscriptionID: "sub_1"}))
	})
}

func TestReconciler_SubscriptionEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prior      billing.Status
		ev         *billing.Event
		wantStatus billing.Status
		wantEnd    time.Time
	}{
		{
			name:  "updated keeps provider status",
			prior: billing.StatusPastDue,
			ev: &billing.Event{ID: "e1", Kind: billing.EventSubscriptionUpdated, SubscriptionID: "sub_1",
				Subscription: &billing.ProviderSubscription{ID: "sub_1", Status: "active", PeriodEnd: periodEnd.AddDate(0, 1, 0)}},
			wantStatus: billing.StatusActive,
			wantEnd:    periodEnd.AddDate(0, 1, 0),
		},
		{
			name:  "cancel at period end is cancelled",
			prior: billing.StatusActive,
			ev: &billing.Event{ID: "e2", Kind: billing.EventSubscriptionUpdated, SubscriptionID: "sub_1",
				Subscription: &billing.ProviderSubscription{ID: "sub_1", Status: "active", CancelAtPeriodEnd: true, PeriodEnd: periodEnd}},
			wantStatus: billing.StatusCancelled,
			wantEnd:    periodEnd,
		},
		{
			name:  "canceled spelling is normalised",
			prior: billing.StatusActive,
			ev: &billing.Event{ID: "e3", Kind: billing.EventSubscriptionUpdated, SubscriptionID: "sub_1",
				Subscription: &billing.ProviderSubscription{ID: "sub_1", Status: "canceled", PeriodEnd: periodEnd}},
			wantStatus: billing.StatusCancelled,
			wantEnd:    periodEnd,
		},
		{
			name:       "deleted from active",
			prior:      billing.StatusActive,
			ev:         &billing.Event{ID: "e4", Kind: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"},
			wantStatus: billing.StatusCancelled,
			wantEnd:    periodEnd,
		},
		{
			name:       "deleted from past due",
			prior:      billing.StatusPastDue,
			ev:         &billing.Event{ID: "e5", Kind: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"},
			wantStatus: billing.StatusCancelled,
			wantEnd:    periodEnd,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := seededStore()
			store.subs["sub_1"] = billing.Subscription{ExternalSubscriptionID: "sub_1", Status: tt.prior, EndDate: periodEnd}
			provider := &mockProvider{}

			require.NoError(t, deliver(t, billing.NewReconciler(store, provider), provider, tt.ev))
			sub, _ := store.sub("sub_1")
			assert.Equal(t, tt.wantStatus, sub.Status)
			assert.Equal(t, tt.wantEnd, sub.EndDate)
			assert.Len(t, store.subs, 1)
		})
	}
}

func TestReconciler_Deduplication(t *testing.T) {
	t.Parallel()

	t.Run("claimed event is skipped", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		store.subs["sub_1"] = billing.Subscription{ExternalSubscriptionID: "sub_1", Status: billing.StatusActive}
		provider := &mockProvider{}
		dedup := &mockDedup{}
		dedup.On("Claim", mock.Anything, "evt_dup").Return(false, nil).Once()

		r := billing.NewReconciler(store, provider, billing.WithDeduplicator(dedup))
		require.NoError(t, deliver(t, r, provider, &billing.Event{ID: "evt_dup", Kind: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"}))

		sub, _ := store.sub("sub_1")
		assert.Equal(t, billing.StatusActive, sub.Status)
		dedup.AssertExpectations(t)
	})

	t.Run("dedup outage still processes", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		store.subs["sub_1"] = billing.Subscription{ExternalSubscriptionID: "sub_1", Status: billing.StatusActive}
		provider := &mockProvider{}
		dedup := &mockDedup{}
		dedup.On("Claim", mock.Anything, "evt_d").Return(false, errors.New("redis: connection refused")).Once()

		r := billing.NewReconciler(store, provider, billing.WithDeduplicator(dedup))
		require.NoError(t, deliver(t, r, provider, &billing.Event{ID: "evt_d", Kind: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"}))

		sub, _ := store.sub("sub_1")
		assert.Equal(t, billing.StatusCancelled, sub.Status)
	})

	t.Run("malformed checkout is rejected before claiming", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		dedup := &mockDedup{}
		ev := checkoutEvent("evt_m")
		ev.UserID = ""

		err := deliver(t, billing.NewReconciler(seededStore(), provider, billing.WithDeduplicator(dedup)), provider, ev)
		require.ErrorIs(t, err, billing.ErrInvalidEvent)
		dedup.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	})
}

func TestReconciler_ArchivesRelevantEvents(t *testing.T) {
	t.Parallel()

	store := seededStore()
	provider := &mockProvider{}
	archive := &mockArchive{}
	ev := &billing.Event{ID: "evt_a", Kind: billing.EventSubscriptionDeleted, SubscriptionID: "sub_1"}
	archive.On("Archive", mock.Anything, "mock", ev).Return(errors.New("bucket missing")).Once()

	r := billing.NewReconciler(store, provider, billing.WithArchive(archive))
	require.NoError(t, deliver(t, r, provider, ev))
	archive.AssertExpectations(t)
}

func TestReconciler_UndecodableEvents(t *testing.T) {
	t.Parallel()

	decodeErr := errors.Join(billing.ErrInvalidEvent, errors.New("json: cannot unmarshal array"))

	t.Run("verified payment event is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("ParseEvent", mock.Anything, mock.Anything, "sig").Return(&billing.Event{
			ID: "evt_p", Type: "invoice.payment_succeeded", Kind: billing.EventPaymentSucceeded,
		}, decodeErr).Once()

		err := billing.NewReconciler(store, provider).HandleWebhook(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)
		assert.Zero(t, store.callCount())
	})

	t.Run("unclassified body is acknowledged", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("ParseEvent", mock.Anything, mock.Anything, "sig").Return(nil, decodeErr).Once()

		err := billing.NewReconciler(store, provider).HandleWebhook(context.Background(), []byte("{}"), "sig")
		require.NoError(t, err)
	})

	t.Run("checkout completion is rejected as malformed", func(t *testing.T) {
		t.Parallel()
		store := seededStore()
		provider := &mockProvider{}
		provider.On("ParseEvent", mock.Anything, mock.Anything, "sig").Return(&billing.Event{
			ID: "evt_c", Type: "checkout.session.completed", Kind: billing.EventCheckoutCompleted,
		}, decodeErr).Once()

		err := billing.NewReconciler(store, provider).HandleWebhook(context.Background(), []byte("{}"), "sig")
		require.ErrorIs(t, err, billing.ErrInvalidEvent)
		assert.NotErrorIs(t, err, billing.ErrInvalidSignature)
		assert.Zero(t, store.callCount())
	})
}
