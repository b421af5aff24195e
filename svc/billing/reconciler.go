package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/mealsub/pkg/logger"
)

// Reconciler applies verified payment provider events to local subscription
// state.
type Reconciler struct {
	store    Store
	provider Provider
	dedup    Deduplicator
	archive  Archive
	notifier Notifier
	log      *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger. The default discards output.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithDeduplicator skips events whose id was already claimed.
func WithDeduplicator(d Deduplicator) ReconcilerOption {
	return func(r *Reconciler) {
		if d != nil {
			r.dedup = d
		}
	}
}

// WithArchive stores every relevant verified payload.
func WithArchive(a Archive) ReconcilerOption {
	return func(r *Reconciler) {
		if a != nil {
			r.archive = a
		}
	}
}

// WithNotifier sends subscriber e-mails on checkout completion and payment
// failure.
func WithNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// NewReconciler panics when a required dependency is nil.
func NewReconciler(store Store, provider Provider, opts ...ReconcilerOption) *Reconciler {
	if store == nil {
		panic("billing: Store is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}

	r := &Reconciler{
		store:    store,
		provider: provider,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleWebhook verifies and applies one webhook delivery. Only signature
// failures and malformed checkout completions are returned; every other
// failure is logged and the event is acknowledged.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := r.provider.ParseEvent(ctx, payload, signature)
	if err != nil && errors.Is(err, ErrInvalidEvent) && !errors.Is(err, ErrInvalidSignature) {
		return r.undecodable(ctx, ev, err)
	}
	if err != nil {
		if !errors.Is(err, ErrInvalidSignature) {
			err = errors.Join(ErrInvalidSignature, err)
		}
		r.log.WarnContext(ctx, "webhook rejected", logger.Provider(r.provider.Name()), logger.Error(err))
		return err
	}

	log := r.log.With(
		logger.Provider(r.provider.Name()),
		logger.EventID(ev.ID),
		logger.EventType(ev.Type),
	)

	if !ev.Kind.Relevant() {
		log.DebugContext(ctx, "webhook event ignored")
		return nil
	}

	if ev.Kind == EventCheckoutCompleted {
		if ev.UserID == "" || ev.MealPlanID == "" || ev.SubscriptionID == "" || ev.CustomerID == "" {
			log.ErrorContext(ctx, "checkout completion is missing metadata or ids",
				logger.UserID(ev.UserID),
				logger.MealPlanID(ev.MealPlanID),
				logger.SubscriptionID(ev.SubscriptionID),
				logger.CustomerID(ev.CustomerID),
			)
			return ErrInvalidEvent
		}
	}

	if r.dedup != nil && ev.ID != "" {
		fresh, err := r.dedup.Claim(ctx, ev.ID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "event de-duplication unavailable", logger.Error(err))
		case !fresh:
			log.InfoContext(ctx, "duplicate webhook event skipped")
			return nil
		}
	}

	if r.archive != nil {
		if err := r.archive.Archive(ctx, r.provider.Name(), ev); err != nil {
			log.WarnContext(ctx, "failed to archive webhook payload", logger.Error(err))
		}
	}

	log = log.With(logger.SubscriptionID(ev.SubscriptionID))
	switch ev.Kind {
	case EventCheckoutCompleted:
		r.checkoutCompleted(ctx, log, ev)
	case EventPaymentSucceeded:
		r.paymentSucceeded(ctx, log, ev)
	case EventPaymentFailed:
		r.paymentFailed(ctx, log, ev)
	case EventSubscriptionUpdated:
		r.subscriptionUpdated(ctx, log, ev)
	case EventSubscriptionDeleted:
		r.update(ctx, log, subscriptionID(ev), SubscriptionUpdate{Status: StatusCancelled})
	}
	return nil
}

// undecodable handles a verified event whose body could not be decoded. Only
// a checkout completion is rejected; anything else is acknowledged.
func (r *Reconciler) undecodable(ctx context.Context, ev *Event, err error) error {
	log := r.log.With(logger.Provider(r.provider.Name()), logger.Error(err))
	if ev == nil {
		log.ErrorContext(ctx, "verified webhook event could not be decoded")
		return nil
	}
	log = log.With(logger.EventID(ev.ID), logger.EventType(ev.Type))
	if ev.Kind == EventCheckoutCompleted {
		log.ErrorContext(ctx, "checkout completion could not be decoded")
		return err
	}
	log.ErrorContext(ctx, "verified webhook event could not be decoded")
	return nil
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, log *slog.Logger, ev *Event) {
	log = log.With(logger.UserID(ev.UserID), logger.MealPlanID(ev.MealPlanID))

	if err := r.store.SetCustomerID(ctx, ev.UserID, ev.CustomerID); err != nil {
		log.ErrorContext(ctx, "failed to record provider customer id", logger.CustomerID(ev.CustomerID), logger.Error(err))
	}

	ps, err := r.provider.RetrieveSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		log.ErrorContext(ctx, "failed to retrieve subscription", logger.Error(err))
		return
	}

	sub := Subscription{
		UserID:                 ev.UserID,
		MealPlanID:             ev.MealPlanID,
		ExternalSubscriptionID: ev.SubscriptionID,
		Status:                 ps.ReconciledStatus(),
		StartDate:              ps.PeriodStart,
		EndDate:                ps.PeriodEnd,
	}
	if err := r.store.UpsertSubscription(ctx, sub); err != nil {
		log.ErrorContext(ctx, "failed to store subscription", logger.Error(err))
		return
	}
	log.InfoContext(ctx, "subscription created", logger.Status(string(sub.Status)))

	if r.notifier != nil {
		if err := r.notifier.SubscriptionStarted(ctx, sub); err != nil {
			log.WarnContext(ctx, "failed to send subscription confirmation", logger.Error(err))
		}
	}
}

func (r *Reconciler) paymentSucceeded(ctx context.Context, log *slog.Logger, ev *Event) {
	if ev.SubscriptionID == "" {
		log.DebugContext(ctx, "payment is not for a subscription")
		return
	}

	upd := SubscriptionUpdate{Status: StatusActive}
	ps, err := r.provider.RetrieveSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		log.WarnContext(ctx, "failed to retrieve subscription, updating status only", logger.Error(err))
	} else if !ps.PeriodEnd.IsZero() {
		end := ps.PeriodEnd
		upd.EndDate = &end
	}
	r.update(ctx, log, ev.SubscriptionID, upd)
}

func (r *Reconciler) paymentFailed(ctx context.Context, log *slog.Logger, ev *Event) {
	if ev.SubscriptionID == "" {
		log.DebugContext(ctx, "payment is not for a subscription")
		return
	}
	if !r.update(ctx, log, ev.SubscriptionID, SubscriptionUpdate{Status: StatusPastDue}) {
		return
	}
	if r.notifier != nil {
		if err := r.notifier.PaymentFailed(ctx, ev.SubscriptionID); err != nil {
			log.WarnContext(ctx, "failed to send payment failure notice", logger.Error(err))
		}
	}
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, log *slog.Logger, ev *Event) {
	if ev.Subscription == nil {
		log.WarnContext(ctx, "subscription update carries no subscription")
		return
	}
	upd := SubscriptionUpdate{Status: ev.Subscription.ReconciledStatus()}
	if !ev.Subscription.PeriodEnd.IsZero() {
		end := ev.Subscription.PeriodEnd
		upd.EndDate = &end
	}
	r.update(ctx, log, subscriptionID(ev), upd)
}

// update applies upd and reports whether a row changed.
func (r *Reconciler) update(ctx context.Context, log *slog.Logger, externalID string, upd SubscriptionUpdate) bool {
	if externalID == "" {
		log.WarnContext(ctx, "event carries no subscription id")
		return false
	}
	ok, err := r.store.UpdateSubscription(ctx, externalID, upd)
	if err != nil {
		log.ErrorContext(ctx, "failed to update subscription", logger.Error(err))
		return false
	}
	if !ok {
		log.WarnContext(ctx, "no subscription row matched")
		return false
	}
	log.InfoContext(ctx, "subscription updated", logger.Status(string(upd.Status)))
	return true
}

func subscriptionID(ev *Event) string {
	if ev.SubscriptionID != "" {
		return ev.SubscriptionID
	}
	if ev.Subscription != nil {
		return ev.Subscription.ID
	}
	return ""
}
