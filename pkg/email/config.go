package email

// Config holds email service configuration. The Postmark tokens may be empty
// in development where LogSender is used instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@mealsub.local" validate:"required,email"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@mealsub.local" validate:"required,email"`
}
