package apperror

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors shared by services and handlers. Callers wrap them with
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrProtectedResource = errors.New("protected resource")
	ErrConflict          = errors.New("conflict")
	ErrStorage           = errors.New("storage failure")
	ErrUnauthorized      = errors.New("unauthenticated")
)

// ValidationError carries field-level detail and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation builds a ValidationError with a single field message.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error, or nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError is a uniqueness violation on a single field. It matches ErrConflict.
type ConflictError struct {
	Field   string
	Message string
}

func NewConflict(field, msg string) *ConflictError {
	return &ConflictError{Field: field, Message: msg}
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Field + ": " + e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Fields returns the field-level detail of err when it carries any.
func Fields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return map[string]string{ce.Field: ce.Message}
	}
	return nil
}
