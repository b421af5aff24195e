package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError carries the status code and client-facing message for an error.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e HTTPError) Unwrap() error { return e.Err }

// NewHTTPError builds an HTTPError; msg defaults to the status text.
func NewHTTPError(code int, msg string, err error) HTTPError {
	if msg == "" {
		msg = http.StatusText(code)
	}
	return HTTPError{Code: code, Message: msg, Err: err}
}
