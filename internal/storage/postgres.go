package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"housetab/internal/books"
	"housetab/internal/core"
)

const (
	pgInsertExpenseID = `INSERT INTO expense_ids (id) VALUES ($1)`

	pgInsertExpense = `
INSERT INTO expenses (id, household, tx_date, category, amount, payer, split_with, notes)
VALUES ($1, $2, $3::date, $4, $5::numeric, $6, $7, $8)`

	pgSelectExpense = `
SELECT id, household, tx_date::text, category, amount::text, payer, split_with, notes
FROM expenses
WHERE household = $1 AND id = $2`

	pgListExpenses = `
SELECT id, household, tx_date::text, category, amount::text, payer, split_with, notes
FROM expenses
WHERE household = $1 AND tx_date >= $2::date AND tx_date < $3::date
ORDER BY tx_date, id`

	pgUpdateExpense = `
UPDATE expenses
SET tx_date = $1::date, category = $2, amount = $3::numeric, payer = $4, split_with = $5, notes = $6, updated_at = now()
WHERE household = $7 AND id = $8`

	pgDeleteExpense = `DELETE FROM expenses WHERE household = $1 AND id = $2`

	pgSelectBudgets = `
SELECT category, monthly_limit::text
FROM budgets
WHERE household = $1 AND person = $2`

	pgUpsertBudget = `
INSERT INTO budgets (household, person, category, monthly_limit)
VALUES ($1, $2, $3, $4::numeric)
ON CONFLICT (household, person, category)
DO UPDATE SET monthly_limit = excluded.monthly_limit, updated_at = now()`

	pgListBudgets = `
SELECT person, category, monthly_limit::text
FROM budgets
WHERE household = $1
ORDER BY person, category`

	pgSelectMembers = `
SELECT payer FROM expenses WHERE household = $1
UNION
SELECT split_with FROM expenses WHERE household = $1 AND split_with != ''
UNION
SELECT person FROM budgets WHERE household = $1
ORDER BY 1`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Run migrations
	if err := RunPostgresMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Append implements books.ExpenseWriter. Same id-reservation scheme as the
// SQLite store: expense_ids only ever grows.
func (s *PostgresStore) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, pgInsertExpenseID, e.ID); err != nil {
		if isPGUniqueViolation(err) {
			return books.ErrDuplicateID
		}
		return fmt.Errorf("reserve expense id: %w", err)
	}

	if _, err := tx.Exec(ctx, pgInsertExpense,
		e.ID, e.Household, e.Date.String(), e.Category, e.Amount.String(), e.Payer, e.SplitWith, e.Notes,
	); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to Postgres",
		"id", e.ID,
		"household", e.Household,
		"category", e.Category,
		"amount", e.Amount.String())

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, household, id string) (core.Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx, pgSelectExpense, household, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, books.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, household string, start, end core.Date) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx, pgListExpenses, household, start.String(), end.String())
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

func (s *PostgresStore) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	ct, err := s.pool.Exec(ctx, pgUpdateExpense,
		e.Date.String(), e.Category, e.Amount.String(), e.Payer, e.SplitWith, e.Notes, e.Household, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, household, id string) error {
	ct, err := s.pool.Exec(ctx, pgDeleteExpense, household, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Budgets(ctx context.Context, household, person string) (core.BudgetConfig, error) {
	rows, err := s.pool.Query(ctx, pgSelectBudgets, household, person)
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

func (s *PostgresStore) SetBudget(ctx context.Context, household string, line core.BudgetLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, pgUpsertBudget,
		household, line.Person, line.Category, line.Limit.String()); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBudgets(ctx context.Context, household string) ([]core.BudgetLine, error) {
	rows, err := s.pool.Query(ctx, pgListBudgets, household)
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

func (s *PostgresStore) Members(ctx context.Context, household string) ([]string, error) {
	rows, err := s.pool.Query(ctx, pgSelectMembers, household)
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

func isPGUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ books.Store = (*PostgresStore)(nil)
