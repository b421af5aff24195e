package binder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError lists the request fields that failed validation, keyed by
// their JSON name, with the failed rule as value.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, e.Fields[name]))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MissingFields returns the sorted names of fields that failed the
// "required" rule.
func (e *ValidationError) MissingFields() []string {
	var out []string
	for name, rule := range e.Fields {
		if strings.HasPrefix(rule, "required") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
