package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// Verifier turns an Authorization header into a Principal. It has no side
// effects and keeps no state between calls.
type Verifier struct {
	tokens TokenValidator
}

func NewVerifier(tokens TokenValidator) *Verifier {
	return &Verifier{tokens: tokens}
}

// VerifyRequest reads the Authorization header of r.
func (v *Verifier) VerifyRequest(r *http.Request) (Principal, error) {
	return v.Verify(r.Header.Get("Authorization"))
}

func (v *Verifier) Verify(header string) (Principal, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Principal{}, ErrCredentialMissing
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return Principal{}, ErrMalformedHeader
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return Principal{}, ErrMalformedHeader
	}

	claims, err := v.tokens.ValidateToken(token)
	if err != nil {
		return Principal{}, ErrCredentialInvalid
	}
	return Principal{UserID: claims.UserID}, nil
}
