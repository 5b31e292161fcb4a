// Package postgres reads chat membership and friendships owned by the chat product.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicehub/internal/domain"
)

const (
	defaultQueryTimeout = 3 * time.Second
	friendshipAccepted  = "accepted"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements core.ChatDirectory on tables
// chat_members(chat_id, user_id) and friendships(user_id, friend_id, status).
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

type Config struct {
	QueryTimeout time.Duration
}

func New(db *sql.DB, cfg Config) *Store {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	return &Store{db: db, queryTimeout: cfg.QueryTimeout}
}

// Open connects with lib/pq and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	log.Info().Str("module", "chatdir.postgres").Msg("connected")
	return db, nil
}

func (s *Store) IsUserMemberOfChat(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query, args, err := psq.Select("1").
		From("chat_members").
		Where(sq.Eq{"chat_id": string(chatID), "user_id": string(userID)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building membership query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying chat membership: %w", err)
	}
	return true, nil
}

func (s *Store) ResolveChatMembers(ctx context.Context, chatID domain.ChatID) ([]domain.UserID, error) {
	qb := psq.Select("user_id").
		From("chat_members").
		Where(sq.Eq{"chat_id": string(chatID)}).
		OrderBy("user_id")
	return s.userIDs(ctx, qb, "chat members")
}

// ResolveContacts lists users who have userID as an accepted friend.
func (s *Store) ResolveContacts(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	qb := psq.Select("user_id").
		From("friendships").
		Where(sq.Eq{"friend_id": string(userID), "status": friendshipAccepted}).
		OrderBy("user_id")
	return s.userIDs(ctx, qb, "contacts")
}

func (s *Store) userIDs(ctx context.Context, qb sq.SelectBuilder, what string) ([]domain.UserID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building %s query: %w", what, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", what, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", what, err)
		}
		out = append(out, domain.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", what, err)
	}
	log.Debug().Str("module", "chatdir.postgres").Str("what", what).Int("rows", len(out)).Msg("resolved")
	return out, nil
}
