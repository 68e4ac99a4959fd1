// Package azdo is the Azure DevOps adapter layer: credential resolution,
// the shared authenticated connection, and the error taxonomy every feature
// reports through.
//
// All upstream failures are normalized into a single *Error type carrying a
// closed Kind. Callers branch with errors.Is against the per-kind sentinels
// or with a switch on KindOf(err).
package azdo

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuthentication
	KindValidation
	KindResourceNotFound
	KindPermission
	KindRateLimit
)

// String returns the error name shown to users for this kind.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "AzureDevOpsAuthenticationError"
	case KindValidation:
		return "AzureDevOpsValidationError"
	case KindResourceNotFound:
		return "AzureDevOpsResourceNotFoundError"
	case KindPermission:
		return "AzureDevOpsPermissionError"
	case KindRateLimit:
		return "AzureDevOpsRateLimitError"
	default:
		return "AzureDevOpsError"
	}
}

// Sentinels, one per kind. errors.Is(err, ErrNotFound) matches any *Error of
// KindResourceNotFound in the chain.
var (
	ErrGeneric        = errors.New("azure devops error")
	ErrAuthentication = errors.New("azure devops authentication failed")
	ErrValidation     = errors.New("azure devops validation failed")
	ErrNotFound       = errors.New("azure devops resource not found")
	ErrPermission     = errors.New("azure devops permission denied")
	ErrRateLimit      = errors.New("azure devops rate limit exceeded")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAuthentication:
		return ErrAuthentication
	case KindValidation:
		return ErrValidation
	case KindResourceNotFound:
		return ErrNotFound
	case KindPermission:
		return ErrPermission
	case KindRateLimit:
		return ErrRateLimit
	default:
		return ErrGeneric
	}
}

// ErrorResponse is the body Azure DevOps returns alongside a failed request.
// Raw keeps the undecoded payload so nothing the server said is lost.
type ErrorResponse struct {
	Message   string          `json:"message,omitempty"`
	TypeName  string          `json:"typeName,omitempty"`
	TypeKey   string          `json:"typeKey,omitempty"`
	ErrorCode int             `json:"errorCode,omitempty"`
	EventID   int             `json:"eventId,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Error is the tagged error every feature returns.
//
// Response is only set for KindValidation and ResetAt only for
// KindRateLimit; both are zero for every other kind.
type Error struct {
	Kind     Kind
	Message  string
	Response *ErrorResponse
	ResetAt  time.Time

	cause error
}

// Error implements the error interface. Only the message is rendered so it
// is safe to show to end users as-is.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is(err, ErrNotFound) and friends work for the kind sentinels.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	clone := *e
	clone.cause = cause
	return &clone
}

// NewError creates a KindGeneric error.
func NewError(message string) *Error {
	return &Error{Kind: KindGeneric, Message: message}
}

// NewAuthenticationError creates a KindAuthentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// NewValidationError creates a KindValidation error. resp may be nil.
func NewValidationError(message string, resp *ErrorResponse) *Error {
	return &Error{Kind: KindValidation, Message: message, Response: resp}
}

// NewResourceNotFoundError creates a KindResourceNotFound error.
func NewResourceNotFoundError(message string) *Error {
	return &Error{Kind: KindResourceNotFound, Message: message}
}

// NewPermissionError creates a KindPermission error.
func NewPermissionError(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

// NewRateLimitError creates a KindRateLimit error that resets at resetAt.
func NewRateLimitError(message string, resetAt time.Time) *Error {
	return &Error{Kind: KindRateLimit, Message: message, ResetAt: resetAt}
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsError reports whether err is (or wraps) an *Error.
func IsError(err error) bool {
	_, ok := AsError(err)
	return ok
}

// KindOf returns the kind of the first *Error in err's chain. The boolean is
// false for errors that were never classified.
func KindOf(err error) (Kind, bool) {
	if e, ok := AsError(err); ok {
		return e.Kind, true
	}
	return KindGeneric, false
}

// Format renders err for display: "<Name>: <message>" plus the response
// details for validation errors and the reset time for rate-limit errors.
func Format(err error) string {
	if err == nil {
		return "null"
	}

	e, ok := AsError(err)
	if !ok {
		return "Error: " + err.Error()
	}

	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	out := fmt.Sprintf("%s: %s", e.Kind, msg)

	switch e.Kind {
	case KindValidation:
		if e.Response == nil {
			out += "\nNo response details available"
			break
		}
		raw := e.Response.Raw
		if len(raw) == 0 {
			raw, _ = json.Marshal(e.Response)
		}
		out += "\nResponse: " + string(raw)
	case KindRateLimit:
		out += "\nReset at: " + e.ResetAt.UTC().Format(time.RFC3339)
	case KindGeneric, KindAuthentication, KindResourceNotFound, KindPermission:
	}

	return out
}

func IsAuthenticationError(err error) bool { return errors.Is(err, ErrAuthentication) }
func IsValidationError(err error) bool     { return errors.Is(err, ErrValidation) }
func IsNotFoundError(err error) bool       { return errors.Is(err, ErrNotFound) }
func IsPermissionError(err error) bool     { return errors.Is(err, ErrPermission) }
func IsRateLimitError(err error) bool      { return errors.Is(err, ErrRateLimit) }
