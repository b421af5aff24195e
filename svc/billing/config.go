package billing

import "time"

// Config holds the provider-independent billing settings.
type Config struct {
	SiteURL      string        `env:"SITE_URL,required"`
	Currency     string        `env:"BILLING_CURRENCY" envDefault:"usd"`
	Provider     string        `env:"PAYMENT_PROVIDER" envDefault:"stripe"`
	DedupEnabled bool          `env:"EVENT_DEDUP_ENABLED" envDefault:"false"`
	DedupTTL     time.Duration `env:"EVENT_DEDUP_TTL" envDefault:"72h"`
	Notify       bool          `env:"NOTIFICATIONS_ENABLED" envDefault:"false"`
	// ArchiveEnabled stores verified payloads in the S3_BUCKET bucket.
	ArchiveEnabled bool `env:"EVENT_ARCHIVE_ENABLED" envDefault:"false"`
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// PaddleConfig holds Paddle credentials.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}
