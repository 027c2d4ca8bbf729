package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"filedrop/internal/domain"
	"filedrop/internal/domain/auth"
	"filedrop/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// UserStore is the part of the user repository the avatar flow needs.
type UserStore interface {
	UpdateAvatarURL(ctx context.Context, id int64, url string) (*domain.User, error)
}

// Service runs the ingestion pipeline on top of the policy Engine.
type Service struct {
	engine  *Engine
	storage *Storage
	users   UserStore
}

func NewService(storage *Storage, users UserStore) *Service {
	return &Service{engine: NewEngine(storage), storage: storage, users: users}
}

// Ingest applies spec to parts and fills in absolute URLs using baseURL
// ("scheme://host", no trailing slash).
func (s *Service) Ingest(ctx context.Context, spec Spec, parts []IncomingFile, baseURL string) ([]StoredFile, error) {
	stored, err := s.engine.Accept(ctx, spec, parts)
	if err != nil {
		return nil, err
	}

	baseURL = strings.TrimRight(baseURL, "/")
	for i := range stored {
		stored[i].AbsoluteURL = baseURL + stored[i].RelativePath
	}

	logger.Log.WithFields(logrus.Fields{
		"field": spec.FieldName,
		"arity": spec.Arity.String(),
		"count": len(stored),
		"dir":   spec.Dir,
	}).Info("files stored")
	return stored, nil
}

// UploadAvatar stores a single avatar file and records its relative URL on
// the principal's user. The stored file is removed again if the user no
// longer exists or the update fails.
func (s *Service) UploadAvatar(ctx context.Context, p auth.Principal, spec Spec, parts []IncomingFile, baseURL string) (*domain.User, StoredFile, error) {
	if spec.Arity != One {
		return nil, StoredFile{}, fmt.Errorf("avatar spec must have arity one, got %s", spec.Arity)
	}

	stored, err := s.Ingest(ctx, spec, parts, baseURL)
	if err != nil {
		return nil, StoredFile{}, err
	}
	avatar := stored[0]

	user, err := s.users.UpdateAvatarURL(ctx, p.UserID, avatar.RelativePath)
	if err != nil {
		s.engine.discard(stored)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, StoredFile{}, ErrUserNotFound
		}
		return nil, StoredFile{}, fmt.Errorf("%w: update avatar: %v", ErrStorageFailure, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": p.UserID,
		"file":    avatar.GeneratedName,
	}).Info("avatar updated")
	return user, avatar, nil
}

// Storage exposes the underlying store for static retrieval.
func (s *Service) Storage() *Storage {
	return s.storage
}
