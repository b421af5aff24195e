// Package billing keeps meal-plan subscriptions in sync with the payment
// provider.
//
// CheckoutService opens a hosted checkout session for an authenticated user
// and a meal plan, creating the provider-side customer on first use.
// Reconciler consumes signed provider webhooks and writes the resulting
// subscription state (active, past_due, cancelled) to the store.
//
// Both depend only on the Provider and Store interfaces. StripeProvider and
// PaddleProvider implement Provider; PGStore implements Store on PostgreSQL.
// The reconciler can optionally de-duplicate deliveries in Redis
// (RedisDeduplicator), archive raw payloads to S3 (S3Archive) and e-mail
// subscribers (EmailNotifier). Failures in those collaborators are logged and
// never change the webhook response.
package billing
