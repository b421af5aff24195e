package email

import (
	"context"

	"github.com/mrz1836/postmark"
)

// PostmarkAPIFunc stands in for the Postmark client in tests.
type PostmarkAPIFunc func(email postmark.Email) (postmark.EmailResponse, error)

func (f PostmarkAPIFunc) SendEmail(_ context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	return f(email)
}

func NewPostmarkSenderWithAPI(fn PostmarkAPIFunc, cfg Config) *PostmarkSender {
	return newPostmarkSender(fn, cfg)
}
