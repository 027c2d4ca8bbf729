package auth

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialMissing = errors.New("missing bearer credential")
	ErrMalformedHeader   = fmt.Errorf("%w: malformed authorization header", ErrCredentialMissing)
	ErrCredentialInvalid = errors.New("invalid or expired token")
)

// Describe returns the response code and client message for an
// authentication error, and false for anything else.
func Describe(err error) (code, message string, ok bool) {
	switch {
	case errors.Is(err, ErrMalformedHeader):
		return "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'", true
	case errors.Is(err, ErrCredentialMissing):
		return "AUTH_HEADER_MISSING", "Missing Authorization header", true
	case errors.Is(err, ErrCredentialInvalid):
		return "INVALID_TOKEN", "Invalid or expired token", true
	}
	return "", "", false
}
