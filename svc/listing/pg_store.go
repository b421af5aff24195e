package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mealsub/pkg/pg"
)

// PGStore implements Store on a pgx pool.
type PGStore struct {
	db pg.TxBeginner
}

func NewPGStore(db pg.TxBeginner) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	err := pg.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(pgTx{tx: tx})
	})
	if errors.Is(err, pg.ErrTxFailed) {
		return errors.Join(ErrPersistence, err)
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) UserRole(ctx context.Context, userID string) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrUserNotFound
	}
	var role string
	if err := t.tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, uid).Scan(&role); err != nil {
		if pg.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", errors.Join(ErrPersistence, fmt.Errorf("read role: %w", err))
	}
	return role, nil
}

func (t pgTx) SetUserRole(ctx context.Context, userID, role string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if _, err := t.tx.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, uid, role); err != nil {
		return errors.Join(ErrPersistence, fmt.Errorf("set role: %w", err))
	}
	return nil
}

const insertProviderSQL = `
INSERT INTO providers (user_id, name, address, phone_contact, email_contact, description, is_verified, latitude, longitude)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), false, $7, $8)
RETURNING provider_id::text`

func (t pgTx) InsertProvider(ctx context.Context, userID string, l Listing) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrUserNotFound
	}
	var id string
	err = t.tx.QueryRow(ctx, insertProviderSQL,
		uid, l.Name, l.Address, l.PhoneContact, l.EmailContact, l.Description, l.Latitude, l.Longitude,
	).Scan(&id)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return "", ErrDuplicateListing
		}
		return "", errors.Join(ErrPersistence, fmt.Errorf("insert provider: %w", err))
	}
	return id, nil
}
