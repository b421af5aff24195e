package listing

import "context"

// Tx is the set of writes performed inside one onboarding transaction.
type Tx interface {
	// UserRole fails with ErrUserNotFound when there is no such user.
	UserRole(ctx context.Context, userID string) (string, error)
	SetUserRole(ctx context.Context, userID, role string) error
	// InsertProvider fails with ErrDuplicateListing when the contact e-mail
	// is already listed.
	InsertProvider(ctx context.Context, userID string, l Listing) (string, error)
}

// Store runs fn in a transaction that commits only when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
