package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/mealsub/handler"
	"github.com/dmitrymomot/mealsub/pkg/binder"
	"github.com/dmitrymomot/mealsub/svc/billing"
)

// MapError converts billing errors to HTTP responses.
func MapError(err error) (handler.HTTPError, bool) {
	var (
		code int
		msg  string
	)
	switch {
	case errors.Is(err, binder.ErrValidation), errors.Is(err, billing.ErrMissingPlanID):
		code, msg = http.StatusBadRequest, "Missing meal_plan_id"
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrUnsupportedMediaType):
		code, msg = http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, billing.ErrUnauthenticated):
		code, msg = http.StatusUnauthorized, "Authentication failed"
	case errors.Is(err, billing.ErrPlanNotFound):
		code, msg = http.StatusNotFound, "Meal plan not found"
	case errors.Is(err, billing.ErrUserNotFound):
		code, msg = http.StatusNotFound, "User not found"
	case errors.Is(err, billing.ErrInvalidPlanPrice):
		code, msg = http.StatusBadRequest, "Meal plan has no valid price"
	case errors.Is(err, billing.ErrInvalidEvent):
		code, msg = http.StatusBadRequest, "Missing critical data in event"
	case errors.Is(err, billing.ErrInvalidSignature):
		code, msg = http.StatusBadRequest, "Webhook signature verification failed"
	case errors.Is(err, billing.ErrProviderError):
		code, msg = http.StatusInternalServerError, "Payment provider error"
	case errors.Is(err, billing.ErrPersistence):
		code, msg = http.StatusInternalServerError, "Internal server error"
	default:
		return handler.HTTPError{}, false
	}
	return handler.NewHTTPError(code, msg, err), true
}
