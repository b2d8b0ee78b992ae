package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
	"smartbudget/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// dsn enables foreign keys and waits on a locked database instead of failing.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser implements ledger.UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, password string) (int64, error) {
	username = ledger.NormalizeUsername(username)
	if username == "" {
		return 0, ledger.ErrInvalidCredentials
	}
	hash, err := ledger.HashPassword(password)
	if err != nil {
		return 0, err
	}
	id, err := r.queries.CreateUser(ctx, username, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ledger.ErrDuplicateUser
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

// ValidateLogin implements ledger.UserStore
func (r *SQLiteRepository) ValidateLogin(ctx context.Context, username, password string) (int64, error) {
	u, err := r.queries.GetUserByUsername(ctx, ledger.NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrInvalidCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if !ledger.CheckPassword(u.PasswordHash, password) {
		return 0, ledger.ErrInvalidCredentials
	}
	return u.ID, nil
}

// Budget reads the whole ledger in one transaction so a concurrent
// ReplaceBudget is seen either fully or not at all.
func (r *SQLiteRepository) Budget(ctx context.Context, userID int64) (core.Budget, error) {
	var b core.Budget
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		if b.Income, err = loadIncome(ctx, q, userID); err != nil {
			return err
		}
		if b.Expenses, err = loadExpenses(ctx, q, userID); err != nil {
			return err
		}
		b.Profile, err = loadProfile(ctx, q, userID)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) Income(ctx context.Context, userID int64) (core.Income, error) {
	return loadIncome(ctx, r.queries, userID)
}

func (r *SQLiteRepository) Expenses(ctx context.Context, userID int64) (core.Expenses, error) {
	return loadExpenses(ctx, r.queries, userID)
}

func (r *SQLiteRepository) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	return loadProfile(ctx, r.queries, userID)
}

func (r *SQLiteRepository) ReplaceIncome(ctx context.Context, userID int64, in core.Income) error {
	return r.inTx(ctx, func(q *Queries) error {
		return replaceIncome(ctx, q, userID, in)
	})
}

func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, userID int64, ex core.Expenses) error {
	return r.inTx(ctx, func(q *Queries) error {
		return replaceExpenses(ctx, q, userID, ex)
	})
}

// ReplaceBudget swaps income, expenses and profile in a single transaction.
func (r *SQLiteRepository) ReplaceBudget(ctx context.Context, userID int64, in core.Income, ex core.Expenses, p core.Profile) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := replaceIncome(ctx, q, userID, in); err != nil {
			return err
		}
		if err := replaceExpenses(ctx, q, userID, ex); err != nil {
			return err
		}
		if err := q.UpsertProfile(ctx, userID, int64(p.Dependents), p.SavingsPercent.String()); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget saved to SQLite",
		"user_id", userID,
		"income_streams", len(in),
		"expense_categories", len(ex))
	return nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, userID int64, p core.Profile) error {
	if err := r.queries.UpsertProfile(ctx, userID, int64(p.Dependents), p.SavingsPercent.String()); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HasSetup(ctx context.Context, userID int64) (bool, error) {
	n, err := r.queries.CountRecords(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count records: %w", err)
	}
	return n > 0, nil
}

// SetUpUserIDs lists the users with at least one income stream or expense.
func (r *SQLiteRepository) SetUpUserIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.queries.ListSetUpUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list set up users: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func replaceIncome(ctx context.Context, q *Queries, userID int64, in core.Income) error {
	if err := q.DeleteIncome(ctx, userID); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	for name, amt := range in {
		if err := q.InsertIncome(ctx, userID, name, amt.String()); err != nil {
			return fmt.Errorf("insert income %q: %w", name, err)
		}
	}
	return nil
}

func replaceExpenses(ctx context.Context, q *Queries, userID int64, ex core.Expenses) error {
	if err := q.DeleteExpenses(ctx, userID); err != nil {
		return fmt.Errorf("delete expenses: %w", err)
	}
	for cat, amt := range ex {
		if err := q.InsertExpense(ctx, userID, cat, amt.String()); err != nil {
			return fmt.Errorf("insert expense %q: %w", cat, err)
		}
	}
	return nil
}

func toAmounts(rows []AmountRow) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		v, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", row.Name, err)
		}
		out[row.Name] = v
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func loadIncome(ctx context.Context, q *Queries, userID int64) (core.Income, error) {
	rows, err := q.ListIncome(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	m, err := toAmounts(rows)
	if err != nil {
		return nil, fmt.Errorf("decode income: %w", err)
	}
	return core.Income(m), nil
}

func loadExpenses(ctx context.Context, q *Queries, userID int64) (core.Expenses, error) {
	rows, err := q.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	m, err := toAmounts(rows)
	if err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	return core.Expenses(m), nil
}

func loadProfile(ctx context.Context, q *Queries, userID int64) (core.Profile, error) {
	row, err := q.GetProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultProfile(), nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	pct, err := decimal.NewFromString(row.SavingsPercent)
	if err != nil {
		return core.Profile{}, fmt.Errorf("decode savings percent: %w", err)
	}
	return core.Profile{Dependents: int(row.Dependents), SavingsPercent: pct}, nil
}
