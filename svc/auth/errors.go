package auth

import "errors"

var (
	// ErrUnauthenticated is returned for any token that does not resolve to
	// an identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidConfig   = errors.New("invalid auth config")
)
