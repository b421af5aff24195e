package handler

import (
	"context"
	"net/http"
)

// Context is the request context enriched with the HTTP request and writer.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

type httpContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

// NewContext creates a Context from the request and writer.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{Context: r.Context(), w: w, r: r}
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }
