package repository

import (
	"cmp"
	"context"
	"crypto/subtle"
	"fmt"
	"slices"
	"sync"
	"time"

	"linkbox-backend/internal/models"
)

// InMemoryStore is an in-memory implementation of Store.
// A single mutex makes every check-then-write atomic.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	messages []*models.Message // index i holds id i+1
	now      func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	o := buildOptions(opts)
	return &InMemoryStore{
		users: make(map[string]*models.User),
		now:   o.now,
	}
}

func (s *InMemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

// --- UserStore ---

func (s *InMemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, user.Username)
	}

	u := *user
	s.users[u.Username] = &u
	return nil
}

func (s *InMemoryStore) VerifyUser(ctx context.Context, username, passhash string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists || subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(passhash)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *InMemoryStore) ListUsers(ctx context.Context, exclude string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for name, u := range s.users {
		if name == exclude {
			continue
		}
		cp := *u
		users = append(users, &cp)
	}
	slices.SortFunc(users, func(a, b *models.User) int { return cmp.Compare(a.Username, b.Username) })
	return users, nil
}

// --- MessageStore ---

func (s *InMemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[msg.FromUser]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSender, msg.FromUser)
	}
	if _, ok := s.users[msg.ToUser]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecipient, msg.ToUser)
	}

	msg.ID = int64(len(s.messages)) + 1
	msg.SentAt = s.now().Unix()
	msg.Archived = false

	stored := *msg
	s.messages = append(s.messages, &stored)
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, username string, archived bool) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Message{}
	for _, m := range s.messages {
		if m.ToUser == username && m.Archived == archived {
			cp := *m
			result = append(result, &cp)
		}
	}

	// newest first; ids break ties between messages sent in the same second
	slices.SortFunc(result, func(a, b *models.Message) int {
		if a.SentAt != b.SentAt {
			return cmp.Compare(b.SentAt, a.SentAt)
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return result, nil
}

func (s *InMemoryStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	cp := *m
	return &cp, nil
}

func (s *InMemoryStore) ArchiveMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if m.Archived {
		return fmt.Errorf("%w: %d", ErrAlreadyArchived, id)
	}
	m.Archived = true
	return nil
}

func (s *InMemoryStore) ListConversation(ctx context.Context, a, b string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Message{}
	for _, m := range s.messages {
		if (m.FromUser == a && m.ToUser == b) || (m.FromUser == b && m.ToUser == a) {
			cp := *m
			result = append(result, &cp)
		}
	}

	slices.SortFunc(result, func(x, y *models.Message) int {
		if x.SentAt != y.SentAt {
			return cmp.Compare(x.SentAt, y.SentAt)
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return result, nil
}

// lookup must be called with s.mu held.
func (s *InMemoryStore) lookup(id int64) (*models.Message, bool) {
	if id < 1 || id > int64(len(s.messages)) {
		return nil, false
	}
	return s.messages[id-1], true
}
