package service

import (
	"context"
	"log/slog"

	"linkbox-backend/internal/logging"
	"linkbox-backend/internal/models"
	"linkbox-backend/internal/repository"
)

// MessageService handles sending, listing and archiving messages.
type MessageService struct {
	store repository.MessageStore
	log   *slog.Logger
}

func NewMessageService(store repository.MessageStore, log *slog.Logger) *MessageService {
	return &MessageService{store: store, log: log}
}

// Send delivers link from one user to another. The returned message carries
// the id and timestamp assigned by the store.
func (s *MessageService) Send(ctx context.Context, from, to, link string) (*models.Message, error) {
	msg := &models.Message{FromUser: from, ToUser: to, Body: link}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, classify(ctx, s.log, "create message", err)
	}

	logging.FromContext(ctx, s.log).InfoContext(ctx, "message sent", "id", msg.ID, "from", from, "to", to)
	return msg, nil
}

// Inbox lists the non-archived messages addressed to username, newest first.
func (s *MessageService) Inbox(ctx context.Context, username string) ([]*models.Message, error) {
	return s.list(ctx, username, false)
}

// Archived lists the archived messages addressed to username, newest first.
func (s *MessageService) Archived(ctx context.Context, username string) ([]*models.Message, error) {
	return s.list(ctx, username, true)
}

func (s *MessageService) list(ctx context.Context, username string, archived bool) ([]*models.Message, error) {
	msgs, err := s.store.ListMessages(ctx, username, archived)
	if err != nil {
		return nil, classify(ctx, s.log, "list messages", err)
	}
	return msgs, nil
}

func (s *MessageService) Get(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, classify(ctx, s.log, "get message", err)
	}
	return msg, nil
}

// Archive moves a message out of the inbox. A message can be archived once.
func (s *MessageService) Archive(ctx context.Context, id int64) error {
	if err := s.store.ArchiveMessage(ctx, id); err != nil {
		return classify(ctx, s.log, "archive message", err)
	}

	logging.FromContext(ctx, s.log).InfoContext(ctx, "message archived", "id", id)
	return nil
}

// Conversation returns the messages exchanged between a and b in either
// direction, oldest first.
func (s *MessageService) Conversation(ctx context.Context, a, b string) ([]*models.Message, error) {
	msgs, err := s.store.ListConversation(ctx, a, b)
	if err != nil {
		return nil, classify(ctx, s.log, "list conversation", err)
	}
	return msgs, nil
}
