package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"filedrop/internal/pkg/logger"
	"filedrop/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := requestFields(c, start)
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// ErrorLogger logs detailed error information and recovers from panics.
// Panics become a 500 envelope; the stack only goes to the log.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				requestFields(c, start).
					WithField("error", err.Error()).
					WithField("stack", string(debug.Stack())).
					Error("panic")

				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			for _, err := range c.Errors {
				entry := requestFields(c, start).WithField("error", err.Error())
				if c.Writer.Status() >= http.StatusInternalServerError {
					entry.Error("request_error")
				} else {
					entry.Debug("request_error")
				}
			}
		}()

		c.Next()
	}
}

func requestFields(c *gin.Context, start time.Time) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"status":     c.Writer.Status(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
		"user_id":    c.GetInt64("user_id"),
		"request_id": requestID(c),
		"latency":    time.Since(start).String(),
	})
}

func requestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.GetHeader("X-Request-Id")
	}
	return requestID
}
