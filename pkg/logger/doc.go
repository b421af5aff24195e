// Package logger builds the process-wide *slog.Logger.
//
// Development output goes through github.com/lmittmann/tint for colourised,
// human-readable lines; staging and production emit JSON. A decorator handler
// copies request-scoped values (request id, environment) from the context into
// every record, and attr.go holds the attribute constructors used across the
// billing code so keys stay consistent in log queries.
package logger
