package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusNetwork marks failures where no HTTP response was received at all
// (connection refused, DNS failure, transport timeout). It lets callers
// distinguish "server rejected" from "server unreachable".
const StatusNetwork = 0

// StatusValidation is the status attached to client-side validation
// failures that are rejected before any request is issued.
const StatusValidation = http.StatusUnprocessableEntity

// ErrNoBaseURL is returned when a request is attempted without a configured
// base URL. Relative paths are not resolvable outside a browser origin, so
// this fails fast instead of producing confusing transport errors.
var ErrNoBaseURL = errors.New("api: base URL is not configured")

// Error is the single failure shape produced by the gateway. Message is the
// root-level error, Fields carries per-field validation messages already
// normalized into one canonical form, and Status classifies the error:
//
//	0                     network failure, no response received
//	401                   credential rejected (store already cleared)
//	422                   validation, from the backend or pre-flight
//	429                   rate limited
//	anything else non-2xx server error
type Error struct {
	Message string
	Status  int
	Fields  map[string][]string

	cause error
}

func (e *Error) Error() string {
	if e.Status == StatusNetwork {
		return fmt.Sprintf("api: network failure: %s", e.Message)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error { return e.cause }

// ValidationError builds a pre-flight validation failure from field
// messages. No request corresponds to it.
func ValidationError(fields map[string][]string) *Error {
	return &Error{
		Message: "validation failed",
		Status:  StatusValidation,
		Fields:  fields,
	}
}

// AsError extracts the gateway error from err, following wrap chains.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func statusIs(err error, status int) bool {
	if e, ok := AsError(err); ok {
		return e.Status == status
	}
	return false
}

// IsUnauthorized reports whether err means the stored credential is no
// longer valid.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsRateLimited reports whether err is a 429 rejection. Rate limiting never
// alters session state; it only warrants a user-visible notice.
func IsRateLimited(err error) bool { return statusIs(err, http.StatusTooManyRequests) }

// IsNetwork reports whether err means the server was unreachable.
func IsNetwork(err error) bool { return statusIs(err, StatusNetwork) }

// IsValidation reports whether err carries field-level validation messages.
func IsValidation(err error) bool { return statusIs(err, StatusValidation) }
