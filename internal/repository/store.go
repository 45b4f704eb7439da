package repository

import (
	"context"

	"linkbox-backend/internal/models"
)

// UserStore holds the credential records.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	VerifyUser(ctx context.Context, username, passhash string) error
	ListUsers(ctx context.Context, exclude string) ([]*models.User, error)
}

// MessageStore holds the messages and enforces their invariants:
// both parties exist at creation time and archived only flips false to true.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, username string, archived bool) ([]*models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	ArchiveMessage(ctx context.Context, id int64) error
	ListConversation(ctx context.Context, a, b string) ([]*models.Message, error)
}

// Store is the aggregate interface handed to the services.
// It also owns the lifecycle of the backing storage.
type Store interface {
	UserStore
	MessageStore

	// EnsureSchema provisions the relations if they are missing. Safe to call on every start.
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
