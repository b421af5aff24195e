package listing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/mealsub/pkg/logger"
	"github.com/dmitrymomot/mealsub/svc/auth"
)

// Service onboards meal providers.
type Service struct {
	store    Store
	verifier auth.Verifier
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service. It panics if store or verifier is nil.
func NewService(store Store, verifier auth.Verifier, opts ...ServiceOption) *Service {
	if store == nil {
		panic("listing: Store is required")
	}
	if verifier == nil {
		panic("listing: auth.Verifier is required")
	}
	s := &Service{store: store, verifier: verifier, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create lists l on behalf of the token's owner.
func (s *Service) Create(ctx context.Context, token string, l Listing) (*Result, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, errors.Join(ErrUnauthenticated, err)
	}
	log := s.log.With(logger.UserID(identity.UserID))

	var res Result
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := tx.UserRole(ctx, identity.UserID)
		if err != nil {
			return err
		}
		if NeedsEscalation(role) {
			if err := tx.SetUserRole(ctx, identity.UserID, RoleProvider); err != nil {
				return err
			}
			res.Escalated = true
		}
		res.ProviderID, err = tx.InsertProvider(ctx, identity.UserID, l)
		return err
	})
	if err != nil {
		log.WarnContext(ctx, "listing not created", logger.Error(err))
		return nil, err
	}

	log.InfoContext(ctx, "listing created", slog.String("provider_id", res.ProviderID), slog.Bool("role_escalated", res.Escalated))
	return &res, nil
}
