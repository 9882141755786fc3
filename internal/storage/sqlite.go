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

	"housetab/internal/books"
	"housetab/internal/core"

	_ "modernc.org/sqlite"
)

const (
	sqliteInsertExpenseID = `INSERT INTO expense_ids (id) VALUES (?)`

	sqliteInsertExpense = `
INSERT INTO expenses (id, household, tx_date, category, amount, payer, split_with, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteSelectExpense = `
SELECT id, household, tx_date, category, amount, payer, split_with, notes
FROM expenses
WHERE household = ? AND id = ?`

	sqliteListExpenses = `
SELECT id, household, tx_date, category, amount, payer, split_with, notes
FROM expenses
WHERE household = ? AND tx_date >= ? AND tx_date < ?
ORDER BY tx_date, id`

	sqliteUpdateExpense = `
UPDATE expenses
SET tx_date = ?, category = ?, amount = ?, payer = ?, split_with = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
WHERE household = ? AND id = ?`

	sqliteDeleteExpense = `DELETE FROM expenses WHERE household = ? AND id = ?`

	sqliteSelectBudgets = `
SELECT category, monthly_limit
FROM budgets
WHERE household = ? AND person = ?`

	sqliteUpsertBudget = `
INSERT INTO budgets (household, person, category, monthly_limit)
VALUES (?, ?, ?, ?)
ON CONFLICT (household, person, category)
DO UPDATE SET monthly_limit = excluded.monthly_limit, updated_at = CURRENT_TIMESTAMP`

	sqliteListBudgets = `
SELECT person, category, monthly_limit
FROM budgets
WHERE household = ?
ORDER BY person, category`

	sqliteSelectMembers = `
SELECT payer FROM expenses WHERE household = ?
UNION
SELECT split_with FROM expenses WHERE household = ? AND split_with != ''
UNION
SELECT person FROM budgets WHERE household = ?
ORDER BY 1`
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append implements books.ExpenseWriter. The id is reserved in expense_ids
// inside the same transaction, which makes re-use of removed ids impossible.
func (s *SQLiteStore) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqliteInsertExpenseID, e.ID); err != nil {
		if isSQLiteUniqueViolation(err) {
			return books.ErrDuplicateID
		}
		return fmt.Errorf("reserve expense id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqliteInsertExpense,
		e.ID, e.Household, e.Date.String(), e.Category, e.Amount.String(), e.Payer, e.SplitWith, e.Notes,
	); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"household", e.Household,
		"category", e.Category,
		"amount", e.Amount.String())

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, household, id string) (core.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx, sqliteSelectExpense, household, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, books.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) List(ctx context.Context, household string, start, end core.Date) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListExpenses, household, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, sqliteUpdateExpense,
		e.Date.String(), e.Category, e.Amount.String(), e.Payer, e.SplitWith, e.Notes, e.Household, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if affected == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, household, id string) error {
	res, err := s.db.ExecContext(ctx, sqliteDeleteExpense, household, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Budgets(ctx context.Context, household, person string) (core.BudgetConfig, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectBudgets, household, person)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	defer rows.Close()

	out := make(core.BudgetConfig)
	for rows.Next() {
		var category, limit string
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("parse stored limit %q: %w", limit, err)
		}
		out[category] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SetBudget(ctx context.Context, household string, line core.BudgetLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertBudget,
		household, line.Person, line.Category, line.Limit.String()); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, household string) ([]core.BudgetLine, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListBudgets, household)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.BudgetLine, 0)
	for rows.Next() {
		var line core.BudgetLine
		var limit string
		if err := rows.Scan(&line.Person, &line.Category, &limit); err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("parse stored limit %q: %w", limit, err)
		}
		line.Limit = d
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget lines: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Members(ctx context.Context, household string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectMembers, household, household, household)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var person string
		if err := rows.Scan(&person); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e      core.Expense
		txDate string
		amount string
	)
	if err := row.Scan(&e.ID, &e.Household, &txDate, &e.Category, &amount, &e.Payer, &e.SplitWith, &e.Notes); err != nil {
		return core.Expense{}, err
	}

	date, err := core.ParseDate(txDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", txDate, err)
	}
	e.Date = date

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Amount = amt

	return e, nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ books.Store = (*SQLiteStore)(nil)
