// Package ledger defines the persistence ports used by the budget service.
package ledger

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"smartbudget/internal/core"
)

var (
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Ports for outbound adapters.
type (
	// LedgerStore holds each user's income, expenses and profile.
	// Replace operations swap the whole set atomically; readers never see a
	// partially written ledger.
	LedgerStore interface {
		// Budget reads income, expenses and profile as one consistent view.
		Budget(ctx context.Context, userID int64) (core.Budget, error)
		Income(ctx context.Context, userID int64) (core.Income, error)
		Expenses(ctx context.Context, userID int64) (core.Expenses, error)
		ReplaceIncome(ctx context.Context, userID int64, in core.Income) error
		ReplaceExpenses(ctx context.Context, userID int64, ex core.Expenses) error
		// ReplaceBudget replaces income, expenses and profile in one step.
		ReplaceBudget(ctx context.Context, userID int64, in core.Income, ex core.Expenses, p core.Profile) error
		// Profile returns the default profile when none was saved.
		Profile(ctx context.Context, userID int64) (core.Profile, error)
		UpsertProfile(ctx context.Context, userID int64, p core.Profile) error
		HasSetup(ctx context.Context, userID int64) (bool, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, username, password string) (int64, error)
		ValidateLogin(ctx context.Context, username, password string) (int64, error)
	}

	// Store is what a backend has to provide.
	Store interface {
		LedgerStore
		UserStore
		Close() error
	}
)

// NormalizeUsername trims the username; both stores key users on the result.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// HashPassword returns the bcrypt hash stored instead of the password.
func HashPassword(password string) (string, error) {
	// bcrypt only looks at the first 72 bytes.
	if password == "" || len(password) > 72 {
		return "", ErrInvalidCredentials
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
