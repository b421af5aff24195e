// Package listing mounts the provider onboarding endpoint.
package listing

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mealsub/handler"
	"github.com/dmitrymomot/mealsub/pkg/binder"
	"github.com/dmitrymomot/mealsub/svc/auth"
	"github.com/dmitrymomot/mealsub/svc/listing"
)

type Module struct {
	svc          *listing.Service
	errorHandler handler.ErrorHandler
}

func New(svc *listing.Service, log *slog.Logger) *Module {
	return &Module{svc: svc, errorHandler: handler.DefaultErrorHandler(log, MapError)}
}

func (m *Module) Routes(r chi.Router) {
	r.Post("/list-property", handler.Wrap[listing.Listing](m.create,
		handler.WithBinder[listing.Listing](binder.JSON()),
		handler.WithErrorHandler[listing.Listing](m.errorHandler),
	))
}

type createResponse struct {
	Success    bool   `json:"success"`
	ProviderID string `json:"providerId"`
	Message    string `json:"message"`
}

func (m *Module) create(ctx handler.Context, req listing.Listing) handler.Response {
	token, err := auth.BearerToken(ctx.Request())
	if err != nil {
		return handler.Error(err)
	}

	res, err := m.svc.Create(ctx, token, req)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(http.StatusCreated, createResponse{
		Success:    true,
		ProviderID: res.ProviderID,
		Message:    "Listing submitted for review",
	})
}

// MapError converts listing errors to HTTP responses.
func MapError(err error) (handler.HTTPError, bool) {
	var verr *binder.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "Invalid listing"
		if missing := verr.MissingFields(); len(missing) > 0 {
			msg = "Missing required fields: " + strings.Join(missing, ", ")
		}
		return handler.NewHTTPError(http.StatusBadRequest, msg, err), true
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrUnsupportedMediaType):
		return handler.NewHTTPError(http.StatusBadRequest, "Invalid request body", err), true
	case errors.Is(err, listing.ErrUnauthenticated):
		return handler.NewHTTPError(http.StatusUnauthorized, "Authentication failed", err), true
	case errors.Is(err, listing.ErrUserNotFound):
		return handler.NewHTTPError(http.StatusNotFound, "User not found", err), true
	case errors.Is(err, listing.ErrDuplicateListing):
		return handler.NewHTTPError(http.StatusConflict, "A listing with this contact email already exists", err), true
	case errors.Is(err, listing.ErrPersistence):
		return handler.NewHTTPError(http.StatusInternalServerError, "Internal server error", err), true
	}
	return handler.HTTPError{}, false
}
