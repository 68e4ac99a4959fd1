package azdo

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Phase tells the classifier whether a failure happened while establishing
// the connection or during a normal operation on an established one.
type Phase int

const (
	// PhaseOperation is a call made with an already verified connection.
	// 401/403 here mean "valid identity, insufficient rights".
	PhaseOperation Phase = iota
	// PhaseConnect is the first contact with the organization.
	// 401/403 here mean bad credentials.
	PhaseConnect
)

// Precondition names the write semantics an operation used, which decides
// how a 412 response is explained.
type Precondition int

const (
	PreconditionNone Precondition = iota
	// PreconditionCreate is a create that must not overwrite.
	PreconditionCreate
	// PreconditionIfMatch is an update guarded by an If-Match version token.
	PreconditionIfMatch
)

// Op is the operation context handed to Classify.
type Op struct {
	// Name is a short verb phrase, e.g. "get wiki page".
	Name string
	// Entity is the kind of resource addressed, e.g. "Pipeline".
	Entity string
	// ID identifies the resource, e.g. "7" or "/Home".
	ID string
	// NotFound overrides the generated not-found message.
	NotFound string

	Phase        Phase
	Precondition Precondition
}

func (op Op) name() string {
	if op.Name == "" {
		return "complete Azure DevOps operation"
	}
	return op.Name
}

func (op Op) notFoundMessage(upstream string) string {
	switch {
	case op.NotFound != "":
		return op.NotFound
	case op.Entity != "" && op.ID != "":
		return fmt.Sprintf("%s with ID %s not found", op.Entity, op.ID)
	case op.Entity != "":
		return op.Entity + " not found"
	default:
		return "Resource not found: " + upstream
	}
}

// Classify maps any failure onto exactly one *Error. It never fails itself
// and returns nil only for a nil err.
//
// Order matters: already-classified errors pass through untouched, then
// structured HTTP failures are mapped by status, and finally message-only
// failures go through the substring predicates below.
func Classify(err error, op Op) error {
	if err == nil {
		return nil
	}

	if e, ok := AsError(err); ok {
		return e
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return classifyHTTP(httpErr, op).WithCause(err)
	}

	return classifyMessage(err.Error(), op).WithCause(err)
}

// ClassifyRecovered classifies a value obtained from recover(). Values that
// are not errors are never formatted into the message.
func ClassifyRecovered(v any, op Op) error {
	if err, ok := v.(error); ok {
		return Classify(err, op)
	}
	return NewError(fmt.Sprintf("Failed to %s: Unknown error occurred", op.name()))
}

func classifyHTTP(e *HTTPError, op Op) *Error {
	upstream := e.Message()

	switch e.StatusCode {
	case http.StatusNotFound:
		return NewResourceNotFoundError(op.notFoundMessage(upstream))

	case http.StatusUnauthorized, http.StatusForbidden:
		if op.Phase == PhaseConnect {
			return NewAuthenticationError("Authentication failed: " + upstream)
		}
		msg := "Permission denied to " + op.name()
		if op.ID != "" {
			msg += ": " + op.ID
		}
		return NewPermissionError(msg)

	case http.StatusBadRequest:
		return NewValidationError(
			fmt.Sprintf("Invalid request to %s: %s", op.name(), upstream),
			e.ErrorBody(),
		)

	case http.StatusPreconditionFailed:
		entity := op.Entity
		if entity == "" {
			entity = "Resource"
		}
		switch op.Precondition {
		case PreconditionCreate:
			msg := entity + " already exists"
			if op.ID != "" {
				msg += ": " + op.ID
			}
			return NewValidationError(msg, e.ErrorBody())
		case PreconditionIfMatch:
			return NewValidationError(fmt.Sprintf(
				"Version conflict: The %s has been modified since you retrieved it. "+
					"Please get the latest version and try again.",
				strings.ToLower(entity),
			), e.ErrorBody())
		default:
			return NewValidationError(
				fmt.Sprintf("Precondition failed for %s: %s", op.name(), upstream),
				e.ErrorBody(),
			)
		}

	case http.StatusTooManyRequests:
		return NewRateLimitError(
			fmt.Sprintf("Rate limit exceeded while trying to %s: %s", op.name(), upstream),
			resetTime(e.Header, time.Now()),
		)

	default:
		return NewError(fmt.Sprintf("Failed to %s: HTTP %d: %s", op.name(), e.StatusCode, upstream))
	}
}

// Substring predicates for message-only failures, checked in this order.
// This is best effort: an unrelated message that happens to contain
// "not found" is still reported as a missing resource.
var (
	authMarkers       = []string{"Authentication", "Unauthorized", "401"}
	notFoundMarkers   = []string{"not found", "does not exist", "404"}
	validationMarkers = []string{"Validation"}
)

func classifyMessage(msg string, op Op) *Error {
	switch {
	case containsAny(msg, authMarkers):
		return NewAuthenticationError("Failed to authenticate: " + msg)
	case containsAny(msg, notFoundMarkers):
		if op.NotFound == "" && op.Entity == "" {
			return NewResourceNotFoundError(msg)
		}
		return NewResourceNotFoundError(op.notFoundMessage(msg) + ": " + msg)
	case containsAny(msg, validationMarkers):
		return NewValidationError(fmt.Sprintf("Failed to %s: %s", op.name(), msg), nil)
	default:
		return NewError(fmt.Sprintf("Failed to %s: %s", op.name(), msg))
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// resetTime reads Retry-After (delta seconds or HTTP date) and then
// X-RateLimit-Reset (unix seconds). It falls back to now.
func resetTime(h http.Header, now time.Time) time.Time {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
		if t, err := http.ParseTime(v); err == nil {
			return t
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(unix, 0)
		}
	}
	return now
}
