package service

import (
	"context"
	"log/slog"

	"linkbox-backend/internal/logging"
	"linkbox-backend/internal/models"
	"linkbox-backend/internal/repository"
)

// UserService handles registration and credential checks.
type UserService struct {
	store repository.UserStore
	log   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store repository.UserStore, log *slog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Register stores a new user. passhash is an opaque digest computed by the
// caller and is stored as given.
func (s *UserService) Register(ctx context.Context, username, name, passhash string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		DisplayName:  name,
		PasswordHash: passhash,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, classify(ctx, s.log, "create user", err)
	}

	logging.FromContext(ctx, s.log).InfoContext(ctx, "user registered", "username", username)
	return user, nil
}

// Verify succeeds only when the exact username/digest pair is on record.
// Unknown users and wrong digests produce the same error.
func (s *UserService) Verify(ctx context.Context, username, passhash string) error {
	if err := s.store.VerifyUser(ctx, username, passhash); err != nil {
		return classify(ctx, s.log, "verify user", err)
	}
	return nil
}

// List returns every user except exclude, ordered by username.
func (s *UserService) List(ctx context.Context, exclude string) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx, exclude)
	if err != nil {
		return nil, classify(ctx, s.log, "list users", err)
	}
	return users, nil
}
