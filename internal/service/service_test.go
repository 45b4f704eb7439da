package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"linkbox-backend/internal/models"
	"linkbox-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every call with a driver-level error.
type brokenStore struct {
	repository.Store
	err error
}

func (b *brokenStore) CreateUser(context.Context, *models.User) error { return b.err }
func (b *brokenStore) VerifyUser(context.Context, string, string) error {
	return b.err
}
func (b *brokenStore) ListUsers(context.Context, string) ([]*models.User, error) {
	return nil, b.err
}
func (b *brokenStore) CreateMessage(context.Context, *models.Message) error { return b.err }
func (b *brokenStore) ListMessages(context.Context, string, bool) ([]*models.Message, error) {
	return nil, b.err
}
func (b *brokenStore) GetMessage(context.Context, int64) (*models.Message, error) {
	return nil, b.err
}
func (b *brokenStore) ArchiveMessage(context.Context, int64) error { return b.err }
func (b *brokenStore) ListConversation(context.Context, string, string) ([]*models.Message, error) {
	return nil, b.err
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func newServices(store repository.Store) (*UserService, *MessageService, *bytes.Buffer) {
	log, buf := newTestLogger()
	return NewUserService(store, log), NewMessageService(store, log), buf
}

func TestUserService_RegisterAndVerify(t *testing.T) {
	users, _, logs := newServices(repository.NewInMemoryStore())
	ctx := context.Background()

	u, err := users.Register(ctx, "alice", "Alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Contains(t, logs.String(), "msg=\"user registered\"")

	_, err = users.Register(ctx, "alice", "Alice again", "pw2")
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	require.NoError(t, users.Verify(ctx, "alice", "pw1"))
	require.ErrorIs(t, users.Verify(ctx, "alice", "nope"), repository.ErrInvalidCredentials)
	require.ErrorIs(t, users.Verify(ctx, "nobody", "pw1"), repository.ErrInvalidCredentials)

	_, err = users.Register(ctx, "bob", "Bob", "pw2")
	require.NoError(t, err)
	list, err := users.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Username)
}

func TestMessageService_Flow(t *testing.T) {
	users, messages, _ := newServices(repository.NewInMemoryStore())
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "Alice", "pw1")
	require.NoError(t, err)
	_, err = users.Register(ctx, "bob", "Bob", "pw2")
	require.NoError(t, err)

	_, err = messages.Send(ctx, "alice", "ghost", "x")
	require.ErrorIs(t, err, repository.ErrUnknownRecipient)

	msg, err := messages.Send(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	assert.Positive(t, msg.ID)

	inbox, err := messages.Inbox(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, inbox, 1)

	got, err := messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Body)

	require.NoError(t, messages.Archive(ctx, msg.ID))
	require.ErrorIs(t, messages.Archive(ctx, msg.ID), repository.ErrAlreadyArchived)

	archived, err := messages.Archived(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, archived, 1)

	conv, err := messages.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, conv, 1)
}

func TestServices_ClassifyStoreFailures(t *testing.T) {
	driverErr := errors.New("connection reset by peer")
	users, messages, logs := newServices(&brokenStore{err: driverErr})
	ctx := context.Background()

	calls := map[string]func() error{
		"register": func() error { _, err := users.Register(ctx, "a", "A", "h"); return err },
		"verify":   func() error { return users.Verify(ctx, "a", "h") },
		"users":    func() error { _, err := users.List(ctx, ""); return err },
		"send":     func() error { _, err := messages.Send(ctx, "a", "b", "x"); return err },
		"inbox":    func() error { _, err := messages.Inbox(ctx, "a"); return err },
		"archived": func() error { _, err := messages.Archived(ctx, "a"); return err },
		"get":      func() error { _, err := messages.Get(ctx, 1); return err },
		"archive":  func() error { return messages.Archive(ctx, 1) },
		"conv":     func() error { _, err := messages.Conversation(ctx, "a", "b"); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.ErrorIs(t, err, repository.ErrStoreUnavailable)
			assert.False(t, repository.IsDomainError(err))
		})
	}

	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "connection reset by peer")
}

func TestServices_DomainErrorsPassThrough(t *testing.T) {
	_, messages, logs := newServices(&brokenStore{err: repository.ErrNotFound})

	err := messages.Archive(context.Background(), 3)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.NotErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Empty(t, logs.String())
}
