package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Deadline bounds the wall-clock time of a request. The request context
// expires after d, and the connection read deadline is set to the same
// instant so a client that stalls mid-body cannot hold the handler.
func Deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		deadline := time.Now().Add(d)
		ctx, cancel := context.WithDeadline(c.Request.Context(), deadline)
		defer cancel()

		// Unsupported on recorders and some wrapped writers; the context
		// deadline still applies there.
		_ = http.NewResponseController(c.Writer).SetReadDeadline(deadline)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
