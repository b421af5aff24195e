package email

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
)

// Sender delivers a single message.
type Sender interface {
	SendEmail(ctx context.Context, msg Message) error
}

// Message is a rendered email.
type Message struct {
	To       string `validate:"required,email"`
	Subject  string `validate:"required"`
	HTMLBody string `validate:"required_without=TextBody"`
	TextBody string `validate:"required_without=HTMLBody"`
	Tag      string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the message before it is handed to a transport.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}
