package auth

import "errors"

// Kind is the stable machine-readable classification of an auth failure.
// It is carried separately from the transport status code.
type Kind string

// Failure kinds surfaced by the auth core.
const (
	KindUnauthorized      Kind = "unauthorized"       // No or invalid credential, inactive account.
	KindForbidden         Kind = "forbidden"          // Disabled account or blocked action.
	KindElevationRequired Kind = "elevation_required" // Caller must re-authenticate for sudo mode.
	KindInvalidCredential Kind = "invalid_credential" // Wrong password on login or sudo entry.
	KindInvalidToken      Kind = "invalid_token"      // Malformed or expired MFA exchange token.
	KindInvalidCode       Kind = "invalid_code"       // Wrong TOTP code.
	KindMismatch          Kind = "mismatch"           // Wrong activation email or code.
	KindExhausted         Kind = "exhausted"          // Activation retry budget depleted.
	KindValidation        Kind = "validation"         // Malformed request fields.
	KindConflict          Kind = "conflict"           // Domain conflict, e.g. email already used.
	KindInternal          Kind = "internal"           // Unexpected failure.
)

// Error is an auth failure with a stable kind and caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// E constructs an auth error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrap constructs an auth error around a cause.
func wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind, defaulting to KindInternal.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}
