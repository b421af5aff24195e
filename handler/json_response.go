package handler

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

// JSON renders body as-is with the given status.
func JSON(status int, body any) Response {
	return jsonResponse{status: status, body: body}
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// Text renders a plain-text body. Used for the CORS preflight reply.
func Text(status int, body string) Response {
	return textResponse{status: status, body: body}
}

type textResponse struct {
	status int
	body   string
}

func (t textResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(t.status)
	_, err := w.Write([]byte(t.body))
	return err
}

// errorResponse defers to the configured ErrorHandler.
type errorResponse struct {
	err error
}

// Error returns a Response that hands err to the wrap's ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}

func (e errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.err
}
