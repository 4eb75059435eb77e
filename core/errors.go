package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedToken is returned when a bearer token cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")

	// ErrNotAuthenticated is returned when an operation requires a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAlreadyAuthenticated is returned when login is attempted over a
	// live session.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrCsrfMismatch marks a redirect callback whose state token does not
	// match the one stored when the login was initiated. It is logged and
	// dropped, never surfaced to the redirect origin.
	ErrCsrfMismatch = errors.New("redirect state mismatch")

	// ErrMissingWrappedDek is returned when a payment is attempted before
	// the PIN flow produced a wrapped DEK.
	ErrMissingWrappedDek = errors.New("wrapped dek not set")

	// ErrEmbeddedLogoutUnsupported is returned by logout in embedded mode.
	// The embedded surface owns the session there; local logout is pending
	// a front-end change and is intentionally not implemented.
	ErrEmbeddedLogoutUnsupported = errors.New("logout is not supported in embedded mode")

	// ErrManagerExists is returned when a second Manager is constructed
	// while one is still live.
	ErrManagerExists = errors.New("a manager instance already exists")
)

// RemoteError is a non-2xx response from the backend. Message carries the
// server-provided error string when one was present.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

// ChargeCreationError wraps a failure to create a charge.
type ChargeCreationError struct {
	Err error
}

func (e *ChargeCreationError) Error() string {
	return fmt.Sprintf("charge creation failed: %v", e.Err)
}

func (e *ChargeCreationError) Unwrap() error { return e.Err }

// DekFetchError wraps a failure to fetch or decode a wrapped DEK.
type DekFetchError struct {
	Err error
}

func (e *DekFetchError) Error() string {
	return fmt.Sprintf("wrapped dek fetch failed: %v", e.Err)
}

func (e *DekFetchError) Unwrap() error { return e.Err }

// RouteEstimateError is a recoverable funds-shortfall failure during route
// estimation. OnrampLink is a URL the caller should open so the user can
// acquire funds before retrying.
type RouteEstimateError struct {
	Message    string
	OnrampLink string
}

func (e *RouteEstimateError) Error() string {
	return fmt.Sprintf("route estimation failed: %s (onramp: %s)", e.Message, e.OnrampLink)
}

// PayError is the payment-time equivalent of RouteEstimateError.
type PayError struct {
	Message    string
	OnrampLink string
}

func (e *PayError) Error() string {
	return fmt.Sprintf("payment failed: %s (onramp: %s)", e.Message, e.OnrampLink)
}

// fundsShortfallMarker appears in backend error messages when a bridge
// cannot be funded even though no structured code was set.
const fundsShortfallMarker = "Not sufficient funds to bridge"

// ErrorPayload is the structured error the backend attaches to payment and
// estimation responses.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OnrampRequired reports whether the error means the user lacks funds and
// should be redirected to an on-ramp.
func (p *ErrorPayload) OnrampRequired() bool {
	if p == nil {
		return false
	}
	if p.Code == "empty-balances" || p.Code == "insufficient-balances" {
		return true
	}
	return strings.Contains(p.Message, fundsShortfallMarker)
}

// String renders the payload preferring the code, matching what the backend
// uses as the stable identifier.
func (p *ErrorPayload) String() string {
	if p == nil {
		return ""
	}
	if p.Code != "" {
		return p.Code
	}
	return p.Message
}
