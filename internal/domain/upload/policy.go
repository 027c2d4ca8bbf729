package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"filedrop/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

const maxNameAttempts = 5

// Engine applies a Spec to the parts of one request and writes the
// accepted files. Every check runs before the first write, and a failed
// write removes the files already written for the same request.
type Engine struct {
	storage  *Storage
	nameFunc func(originalName, mimeType string) string
}

func NewEngine(storage *Storage) *Engine {
	return &Engine{storage: storage, nameFunc: GenerateName}
}

// Accept returns one StoredFile per matching part, in input order.
// Parts under other field names are ignored.
func (e *Engine) Accept(ctx context.Context, spec Spec, parts []IncomingFile) ([]StoredFile, error) {
	matched := make([]IncomingFile, 0, len(parts))
	for _, p := range parts {
		if p.FieldName == spec.FieldName {
			matched = append(matched, p)
		}
	}

	if err := checkCount(spec, len(matched)); err != nil {
		return nil, err
	}
	for _, p := range matched {
		if err := checkPart(spec, p); err != nil {
			return nil, err
		}
	}

	stored := make([]StoredFile, 0, len(matched))
	for _, p := range matched {
		sf, err := e.write(ctx, spec, p)
		if err != nil {
			e.discard(stored)
			return nil, err
		}
		stored = append(stored, sf)
	}
	return stored, nil
}

func checkCount(spec Spec, n int) error {
	if n == 0 {
		return ErrNoFile
	}
	switch spec.Arity {
	case One:
		if n > 1 {
			return fmt.Errorf("%w: field %q accepts a single file, got %d", ErrTooMany, spec.FieldName, n)
		}
	case Many:
		if spec.MaxFiles > 0 && n > spec.MaxFiles {
			return fmt.Errorf("%w: field %q accepts at most %d files, got %d", ErrTooMany, spec.FieldName, spec.MaxFiles, n)
		}
	}
	return nil
}

func checkPart(spec Spec, p IncomingFile) error {
	if p.Size == 0 {
		return fmt.Errorf("%w: %q is empty", ErrNoFile, p.OriginalName)
	}
	if spec.MaxFileSize > 0 && p.Size > spec.MaxFileSize {
		return fmt.Errorf("%w: %q is %d bytes", ErrTooLarge, p.OriginalName, p.Size)
	}
	if !typeAllowed(spec.AllowedMimePrefixes, p.MimeType) {
		return fmt.Errorf("%w: %q has type %q", ErrUnsupportedType, p.OriginalName, p.MimeType)
	}
	return nil
}

func typeAllowed(prefixes []string, mimeType string) bool {
	if len(prefixes) == 0 {
		return true
	}
	mimeType = strings.ToLower(mimeType)
	for _, prefix := range prefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

func (e *Engine) write(ctx context.Context, spec Spec, p IncomingFile) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, interrupted(err)
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := e.nameFunc(p.OriginalName, p.MimeType)

		src, err := p.Open()
		if err != nil {
			return StoredFile{}, fmt.Errorf("%w: open part %q: %v", ErrStorageFailure, p.OriginalName, err)
		}
		n, err := e.storage.Write(ctx, spec.Dir, name, src)
		_ = src.Close()

		if errors.Is(err, os.ErrExist) {
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return StoredFile{}, interrupted(err)
		}
		if err != nil {
			return StoredFile{}, fmt.Errorf("%w: %s: %v", ErrStorageFailure, name, err)
		}

		return StoredFile{
			GeneratedName: name,
			OriginalName:  p.OriginalName,
			RelativePath:  spec.URLPrefix + "/" + url.PathEscape(name),
			MimeType:      p.MimeType,
			Size:          n,
			dir:           spec.Dir,
		}, nil
	}
	return StoredFile{}, fmt.Errorf("%w: could not allocate a unique name for %q", ErrStorageFailure, p.OriginalName)
}

// interrupted maps a done context to ErrTimeout when the deadline passed and
// to ErrStorageFailure when the client went away.
func interrupted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

// discard removes files written earlier in a request that is now failing.
func (e *Engine) discard(stored []StoredFile) {
	for _, sf := range stored {
		if err := e.storage.Remove(sf.dir, sf.GeneratedName); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"file":  sf.GeneratedName,
				"error": err,
			}).Warn("failed to remove file from aborted upload")
		}
	}
}
