package billing

import (
	"errors"

	"github.com/dmitrymomot/mealsub/svc/auth"
)

var (
	ErrUnauthenticated  = auth.ErrUnauthenticated
	ErrMissingPlanID    = errors.New("missing meal_plan_id")
	ErrPlanNotFound     = errors.New("meal plan not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidPlanPrice = errors.New("invalid meal plan price")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidEvent     = errors.New("malformed webhook event")
	ErrProviderError    = errors.New("payment provider error")
	ErrPersistence      = errors.New("persistence error")
	ErrInvalidConfig    = errors.New("invalid billing config")
)
