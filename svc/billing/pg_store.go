package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/mealsub/pkg/pg"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore implements Store and RecipientLookup on Postgres.
type PGStore struct {
	db Querier
}

// NewPGStore returns a store that runs its queries on db.
func NewPGStore(db Querier) *PGStore {
	return &PGStore{db: db}
}

const getUserSQL = `
SELECT id::text, email, COALESCE(stripe_customer_id, '')
FROM users
WHERE id = $1`

func (s *PGStore) GetUser(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var u User
	if err := s.db.QueryRow(ctx, getUserSQL, uid).Scan(&u.ID, &u.Email, &u.CustomerID); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrPersistence, fmt.Errorf("get user: %w", err))
	}
	return &u, nil
}

const getMealPlanSQL = `
SELECT meal_plan_id, name,
       COALESCE(round(price_monthly * 100), 0)::bigint,
       COALESCE(paddle_price_id, '')
FROM meal_plans
WHERE meal_plan_id = $1`

func (s *PGStore) GetMealPlan(ctx context.Context, id string) (*MealPlan, error) {
	var p MealPlan
	if err := s.db.QueryRow(ctx, getMealPlanSQL, id).Scan(&p.ID, &p.Name, &p.PriceMinor, &p.ProviderPriceID); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPlanNotFound
		}
		return nil, errors.Join(ErrPersistence, fmt.Errorf("get meal plan: %w", err))
	}
	return &p, nil
}

const setCustomerIDSQL = `
UPDATE users
SET stripe_customer_id = $2
WHERE id = $1 AND stripe_customer_id IS NULL`

func (s *PGStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if _, err := s.db.Exec(ctx, setCustomerIDSQL, uid, customerID); err != nil {
		return errors.Join(ErrPersistence, fmt.Errorf("set customer id: %w", err))
	}
	return nil
}

const upsertSubscriptionSQL = `
INSERT INTO subscriptions (user_id, meal_plan_id, external_subscription_id, status, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (external_subscription_id) DO UPDATE
SET status = CASE WHEN subscriptions.status = 'cancelled' THEN subscriptions.status ELSE EXCLUDED.status END,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    updated_at = now()`

func (s *PGStore) UpsertSubscription(ctx context.Context, sub Subscription) error {
	uid, err := uuid.Parse(sub.UserID)
	if err != nil {
		return ErrUserNotFound
	}
	_, err = s.db.Exec(ctx, upsertSubscriptionSQL,
		uid, sub.MealPlanID, sub.ExternalSubscriptionID, string(sub.Status),
		nullTime(sub.StartDate), nullTime(sub.EndDate),
	)
	if err != nil {
		return errors.Join(ErrPersistence, fmt.Errorf("upsert subscription: %w", err))
	}
	return nil
}

const updateSubscriptionSQL = `
UPDATE subscriptions
SET status = COALESCE(NULLIF($2::text, ''), status),
    end_date = COALESCE($3::timestamptz, end_date),
    updated_at = now()
WHERE external_subscription_id = $1`

func (s *PGStore) UpdateSubscription(ctx context.Context, externalID string, upd SubscriptionUpdate) (bool, error) {
	var end *time.Time
	if upd.EndDate != nil && !upd.EndDate.IsZero() {
		end = upd.EndDate
	}
	tag, err := s.db.Exec(ctx, updateSubscriptionSQL, externalID, string(upd.Status), end)
	if err != nil {
		return false, errors.Join(ErrPersistence, fmt.Errorf("update subscription: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}

const subscriberEmailSQL = `
SELECT u.email
FROM subscriptions s
JOIN users u ON u.id = s.user_id
WHERE s.external_subscription_id = $1`

func (s *PGStore) SubscriberEmail(ctx context.Context, externalID string) (string, error) {
	var email string
	if err := s.db.QueryRow(ctx, subscriberEmailSQL, externalID).Scan(&email); err != nil {
		if pg.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", errors.Join(ErrPersistence, fmt.Errorf("subscriber email: %w", err))
	}
	return email, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
