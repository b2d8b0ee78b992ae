package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"smartbudget/internal/cache"
	"smartbudget/internal/ledger"
)

const maxUsernameLength = 100

var ErrUsernameTooLong = fmt.Errorf("username must be at most %d characters", maxUsernameLength)

// Session is an authenticated login, keyed by its bearer token.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountService handles signup, login and the session tokens handed out on login.
type AccountService struct {
	users    ledger.UserStore
	sessions cache.Cache[Session]
}

func NewAccountService(users ledger.UserStore, sessions cache.Cache[Session]) *AccountService {
	return &AccountService{users: users, sessions: sessions}
}

func (s *AccountService) Signup(ctx context.Context, username, password string) (int64, error) {
	username = ledger.NormalizeUsername(username)
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return 0, ErrUsernameTooLong
	}
	id, err := s.users.CreateUser(ctx, username, password)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateUser) || errors.Is(err, ledger.ErrInvalidCredentials) {
			return 0, err
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "user_id", id)
	return id, nil
}

// Login checks the credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, username, password string) (Session, error) {
	id, err := s.users.ValidateLogin(ctx, username, password)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidCredentials) {
			slog.WarnContext(ctx, "Login rejected")
			return Session{}, err
		}
		return Session{}, fmt.Errorf("validate login: %w", err)
	}
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    id,
		Username:  ledger.NormalizeUsername(username),
		CreatedAt: time.Now().UTC(),
	}
	s.sessions.Set(sess.Token, sess)
	slog.InfoContext(ctx, "Session opened", "user_id", id, "active_sessions", s.sessions.Size())
	return sess, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AccountService) Authenticate(token string) (Session, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, false
	}
	return s.sessions.Get(token)
}

func (s *AccountService) Logout(token string) {
	s.sessions.Delete(strings.TrimSpace(token))
}
