package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/mealsub/pkg/environment"
)

// ErrorMapper converts a domain error into an HTTPError. It reports false
// when it does not recognise err.
type ErrorMapper func(err error) (HTTPError, bool)

// DefaultErrorHandler writes {"error": message} with the status from the
// first mapper that recognises the error, or from an HTTPError in the chain.
// Unrecognised errors become 500; their text is only exposed outside
// production.
func DefaultErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(ctx Context, err error) {
		httpErr := resolve(ctx, err, mappers)
		if httpErr.Code >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "request failed", slog.Int("status", httpErr.Code), slog.Any("error", err))
		}
		_ = JSON(httpErr.Code, map[string]string{"error": httpErr.Message}).Render(ctx.ResponseWriter(), ctx.Request())
	}
}

func resolve(ctx Context, err error, mappers []ErrorMapper) HTTPError {
	for _, m := range mappers {
		if he, ok := m(err); ok {
			return he
		}
	}

	var he HTTPError
	if errors.As(err, &he) {
		return he
	}

	msg := http.StatusText(http.StatusInternalServerError)
	if !environment.IsProduction(ctx) {
		msg = err.Error()
	}
	return HTTPError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}
