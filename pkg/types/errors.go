package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRegistrantNotFound   = errors.New("registrant not found")
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrFileNotFound         = errors.New("file not found")
)

type ErrorKind string

const (
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindValidationFailed ErrorKind = "validation_failed"
	KindConflict         ErrorKind = "conflict"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidID        ErrorKind = "invalid_id"
	KindUnavailable      ErrorKind = "unavailable"
)

// FieldConflict names a natural key that collided with an existing record.
type FieldConflict struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
}

// Error is the error type returned by the registration engines. The server
// maps Kind onto an HTTP status.
type Error struct {
	Kind      ErrorKind
	Message   string
	Fields    []string
	Conflicts []FieldConflict
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func NewInvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

func NewValidationFailed(message string, fields []string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message, Fields: fields}
}

// NewMissingFields lists every missing field in the message.
func NewMissingFields(fields []string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func NewConflict(conflicts ...FieldConflict) *Error {
	names := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Value != "" {
			names = append(names, fmt.Sprintf("%s %q", c.Field, c.Value))
			continue
		}
		names = append(names, c.Field)
	}

	return &Error{
		Kind:      KindConflict,
		Message:   "already registered with " + strings.Join(names, ", "),
		Conflicts: conflicts,
	}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewInvalidID(id string) *Error {
	return &Error{Kind: KindInvalidID, Message: fmt.Sprintf("invalid id %q", id)}
}

func NewUnavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}

// UniqueViolation is returned by the store when a write trips a unique index.
type UniqueViolation struct {
	Field      string
	Constraint string
	Err        error
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s (%s)", e.Field, e.Constraint)
}

func (e *UniqueViolation) Unwrap() error {
	return e.Err
}

func AsUniqueViolation(err error) (*UniqueViolation, bool) {
	var target *UniqueViolation
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
