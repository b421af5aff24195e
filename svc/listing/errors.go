package listing

import (
	"errors"

	"github.com/dmitrymomot/mealsub/svc/auth"
)

var (
	ErrUnauthenticated  = auth.ErrUnauthenticated
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateListing = errors.New("a listing with this contact email already exists")
	ErrPersistence      = errors.New("persistence error")
)
