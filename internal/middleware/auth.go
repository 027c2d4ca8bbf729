package middleware

import (
	"net/http"

	"filedrop/internal/domain/auth"
	"filedrop/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// JWTAuth verifies the bearer token before anything reads the request body.
// On success the principal is attached to the request context and the
// user id to the gin context.
func JWTAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := verifier.VerifyRequest(c.Request)
		if err != nil {
			code, message, _ := auth.Describe(err)
			_ = c.Error(err)
			response.Abort(c, http.StatusUnauthorized, code, message)
			return
		}

		c.Set("user_id", p.UserID)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}
