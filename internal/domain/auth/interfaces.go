package auth

import "filedrop/internal/pkg/jwt"

// TokenValidator is satisfied by *jwt.Service.
type TokenValidator interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}
