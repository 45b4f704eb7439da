package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkbox-backend/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// driverName maps a dialect to its registered database/sql driver.
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported dialect %q", d)
}

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const messageColumns = `id, from_user, to_user, link, datetime, archived`

// SQLStore implements Store on top of a relational database.
// Queries are written with '?' placeholders and rebound per driver.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore wraps an already opened connection.
func NewSQLStore(db *sqlx.DB, dialect Dialect, opts ...Option) *SQLStore {
	o := buildOptions(opts)
	return &SQLStore{db: db, dialect: dialect, now: o.now}
}

// OpenSQLStore opens a connection pool for the dialect and checks it is reachable.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One connection serializes writers in-process and keeps ":memory:" databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not ping %s database: %w", dialect, err)
	}

	return NewSQLStore(db, dialect, opts...), nil
}

// sqliteDSN turns foreign key enforcement on, which SQLite leaves off by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.db.DB, s.dialect)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// --- UserStore ---

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx sqlx.ExtContext) error {
		var count int
		err := sqlx.GetContext(ctx, tx, &count,
			tx.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), user.Username)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count != 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, user.Username)
		}

		_, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO users (username, name, passhash) VALUES (?, ?, ?)`),
			user.Username, user.DisplayName, user.PasswordHash)
		if err != nil {
			// the primary key is the authoritative guard against concurrent registrations
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, user.Username)
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) VerifyUser(ctx context.Context, username, passhash string) error {
	var count int
	err := sqlx.GetContext(ctx, s.db, &count,
		s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ? AND passhash = ?`), username, passhash)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if count != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *SQLStore) ListUsers(ctx context.Context, exclude string) ([]*models.User, error) {
	users := []*models.User{}
	err := sqlx.SelectContext(ctx, s.db, &users,
		s.db.Rebind(`SELECT username, name, passhash FROM users WHERE username <> ? ORDER BY username`), exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// --- MessageStore ---

func (s *SQLStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx sqlx.ExtContext) error {
		ok, err := userExists(ctx, tx, msg.FromUser)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSender, msg.FromUser)
		}

		ok, err = userExists(ctx, tx, msg.ToUser)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRecipient, msg.ToUser)
		}

		sentAt := s.now().Unix()
		var id int64
		err = sqlx.GetContext(ctx, tx, &id,
			tx.Rebind(`INSERT INTO messages (from_user, to_user, link, datetime, archived)
				VALUES (?, ?, ?, ?, ?)
				RETURNING id`),
			msg.FromUser, msg.ToUser, msg.Body, sentAt, false)
		if err != nil {
			if constraint, ok := foreignKeyViolation(err); ok {
				if constraint == fkMessagesFromUser {
					return fmt.Errorf("%w: %s", ErrUnknownSender, msg.FromUser)
				}
				return fmt.Errorf("%w: %s", ErrUnknownRecipient, msg.ToUser)
			}
			return fmt.Errorf("failed to insert message: %w", err)
		}

		msg.ID = id
		msg.SentAt = sentAt
		msg.Archived = false
		return nil
	})
}

func (s *SQLStore) ListMessages(ctx context.Context, username string, archived bool) ([]*models.Message, error) {
	messages := []*models.Message{}
	err := sqlx.SelectContext(ctx, s.db, &messages,
		s.db.Rebind(`SELECT `+messageColumns+` FROM messages
			WHERE to_user = ? AND archived = ?
			ORDER BY datetime DESC, id DESC`),
		username, archived)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *SQLStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := sqlx.GetContext(ctx, s.db, msg,
		s.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (s *SQLStore) ArchiveMessage(ctx context.Context, id int64) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx sqlx.ExtContext) error {
		// The guarded update is the check: of two concurrent archives only one matches a row.
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE messages SET archived = ? WHERE id = ? AND archived = ?`), true, id, false)
		if err != nil {
			return fmt.Errorf("failed to archive message: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 1 {
			return nil
		}

		var count int
		err = sqlx.GetContext(ctx, tx, &count, tx.Rebind(`SELECT COUNT(*) FROM messages WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to count messages: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %d", ErrAlreadyArchived, id)
	})
}

func (s *SQLStore) ListConversation(ctx context.Context, a, b string) ([]*models.Message, error) {
	messages := []*models.Message{}
	err := sqlx.SelectContext(ctx, s.db, &messages,
		s.db.Rebind(`SELECT `+messageColumns+` FROM messages
			WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)
			ORDER BY datetime ASC, id ASC`),
		a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return messages, nil
}

func userExists(ctx context.Context, tx sqlx.ExtContext, username string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, tx, &count, tx.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count == 1, nil
}
