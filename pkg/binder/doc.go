// Package binder decodes JSON request bodies into typed structs and validates
// them with go-playground/validator `validate` tags.
//
//	type createCheckoutRequest struct {
//	    MealPlanID string `json:"meal_plan_id" validate:"required"`
//	}
//
//	h := handler.Wrap(create, handler.WithBinder[createCheckoutRequest](binder.JSON()))
//
// Decoding failures wrap ErrFailedToParseJSON or ErrUnsupportedMediaType;
// validation failures are *ValidationError values that also match
// ErrValidation.
package binder
