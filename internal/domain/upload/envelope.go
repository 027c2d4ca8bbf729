package upload

import (
	"errors"
	"net/http"

	"filedrop/internal/domain/auth"
	"filedrop/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type failure struct {
	err     error
	status  int
	code    string
	message string
}

var failures = []failure{
	{ErrNoFile, http.StatusBadRequest, "NO_FILE", "Please choose a file to upload"},
	{ErrTooMany, http.StatusBadRequest, "TOO_MANY_FILES", "Too many files in one request"},
	{ErrUnsupportedType, http.StatusBadRequest, "UNSUPPORTED_TYPE", "File type is not allowed"},
	{ErrMalformedBody, http.StatusBadRequest, "MALFORMED_BODY", "Request body must be multipart/form-data"},
	{ErrTooLarge, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Upload exceeds the size limit"},
	{ErrTimeout, http.StatusRequestTimeout, "UPLOAD_TIMEOUT", "Upload took too long"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{ErrFileNotFound, http.StatusNotFound, "NOT_FOUND", "File not found"},
	{ErrStorageFailure, http.StatusInternalServerError, "STORAGE_FAILURE", "Could not store the file"},
}

// Describe maps a pipeline error to its HTTP status, stable code and a
// short message safe to show to the client.
func Describe(err error) (status int, code, message string) {
	if code, message, ok := auth.Describe(err); ok {
		return http.StatusUnauthorized, code, message
	}
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f.status, f.code, f.message
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

// fail writes the envelope for err and records err on the gin context so
// the error logger sees the full cause.
func fail(c *gin.Context, err error) {
	status, code, message := Describe(err)
	_ = c.Error(err)
	response.Error(c, status, code, message)
}
