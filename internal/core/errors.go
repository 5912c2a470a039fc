package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("appointment_not_found")
	ErrAlreadyCancelled = errors.New("already_cancelled")
	ErrCancelled        = errors.New("cannot_reschedule_cancelled")
	ErrInvalidDateTime  = errors.New("invalid_date_or_time")
)

// ValidationError carries per-field messages back to the caller.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
