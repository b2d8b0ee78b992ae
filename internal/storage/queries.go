package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// AmountRow is one income stream or expense category with its decimal amount.
type AmountRow struct {
	Name   string
	Amount string
}

type ProfileRow struct {
	Dependents     int64
	SavingsPercent string
}

const createUser = `INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createUser, username, passwordHash).Scan(&id)
	return id, err
}

const getUserByUsername = `SELECT id, username, password_hash FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUserByUsername, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	return u, err
}

const listIncome = `SELECT stream_name, amount FROM income WHERE user_id = ? ORDER BY stream_name`

func (q *Queries) ListIncome(ctx context.Context, userID int64) ([]AmountRow, error) {
	return q.listAmounts(ctx, listIncome, userID)
}

const listExpenses = `SELECT category, amount FROM expenses WHERE user_id = ? ORDER BY category`

func (q *Queries) ListExpenses(ctx context.Context, userID int64) ([]AmountRow, error) {
	return q.listAmounts(ctx, listExpenses, userID)
}

func (q *Queries) listAmounts(ctx context.Context, query string, userID int64) ([]AmountRow, error) {
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AmountRow
	for rows.Next() {
		var i AmountRow
		if err := rows.Scan(&i.Name, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteIncome = `DELETE FROM income WHERE user_id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteIncome, userID)
	return err
}

const insertIncome = `INSERT INTO income (user_id, stream_name, amount) VALUES (?, ?, ?)`

func (q *Queries) InsertIncome(ctx context.Context, userID int64, name, amount string) error {
	_, err := q.db.ExecContext(ctx, insertIncome, userID, name, amount)
	return err
}

const deleteExpenses = `DELETE FROM expenses WHERE user_id = ?`

func (q *Queries) DeleteExpenses(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpenses, userID)
	return err
}

const insertExpense = `INSERT INTO expenses (user_id, category, amount) VALUES (?, ?, ?)`

func (q *Queries) InsertExpense(ctx context.Context, userID int64, category, amount string) error {
	_, err := q.db.ExecContext(ctx, insertExpense, userID, category, amount)
	return err
}

const getProfile = `SELECT dependents, savings_percent FROM profile WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID int64) (ProfileRow, error) {
	var p ProfileRow
	err := q.db.QueryRowContext(ctx, getProfile, userID).Scan(&p.Dependents, &p.SavingsPercent)
	return p, err
}

const upsertProfile = `INSERT INTO profile (user_id, dependents, savings_percent, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
    dependents = excluded.dependents,
    savings_percent = excluded.savings_percent,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertProfile(ctx context.Context, userID, dependents int64, savingsPercent string) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, userID, dependents, savingsPercent)
	return err
}

const countRecords = `SELECT
    (SELECT COUNT(*) FROM income WHERE user_id = ?) +
    (SELECT COUNT(*) FROM expenses WHERE user_id = ?)`

func (q *Queries) CountRecords(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRecords, userID, userID).Scan(&n)
	return n, err
}

const listSetUpUserIDs = `SELECT id FROM users
WHERE EXISTS (SELECT 1 FROM income WHERE income.user_id = users.id)
   OR EXISTS (SELECT 1 FROM expenses WHERE expenses.user_id = users.id)
ORDER BY id`

func (q *Queries) ListSetUpUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listSetUpUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
