// Package httpserver runs an http.Handler until its context is cancelled and
// then drains in-flight requests within a bounded shutdown window. It also
// provides the liveness and readiness probe handler mounted under /health.
package httpserver
