package upload

import "errors"

var (
	ErrNoFile          = errors.New("no file was uploaded")
	ErrTooMany         = errors.New("too many files")
	ErrUnsupportedType = errors.New("file type is not allowed")
	ErrMalformedBody   = errors.New("request body is not valid multipart form data")
	ErrTooLarge        = errors.New("upload exceeds the size limit")
	ErrStorageFailure  = errors.New("failed to store file")
	ErrTimeout         = errors.New("upload did not finish in time")
	ErrUserNotFound    = errors.New("user not found")
	ErrFileNotFound    = errors.New("file not found")
)
