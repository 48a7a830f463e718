package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

const transactionColumns = `id, user_id, account_id, category_id, type, amount_cents, transaction_date, description, created_at`

// CreateTransaction inserts a transaction and assigns its ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, account_id, category_id, type, amount_cents, transaction_date, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID,
		t.AccountID,
		nullableID(t.CategoryID),
		string(t.Type),
		t.Amount.Cents,
		t.Date.String(),
		t.Description)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", string(t.Type),
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return nil
}

// GetTransaction fetches a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction overwrites the mutable fields of an existing transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, type = ?, amount_cents = ?, transaction_date = ?, description = ?
		WHERE id = ?`,
		t.AccountID,
		nullableID(t.CategoryID),
		string(t.Type),
		t.Amount.Cents,
		t.Date.String(),
		t.Description,
		t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListTransactions returns a user's transactions for a specific month, newest
// first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := core.DateOf(from.AddDate(0, 1, -1))

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND transaction_date BETWEEN ? AND ?
		ORDER BY transaction_date DESC, id DESC`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SumExpenses returns the total expense amount for one (user, category) pair
// within the inclusive [from, to] window. An empty match set sums to zero.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = ?
		  AND category_id = ?
		  AND type = 'expense'
		  AND transaction_date BETWEEN ? AND ?`,
		userID, categoryID, from.String(), to.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// MonthOverview aggregates a user's income, expenses, and per-category expense
// totals for one month.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, userID int64, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}

	from := core.NewDate(year, month, 1)
	to := core.DateOf(from.AddDate(0, 1, -1))

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND transaction_date BETWEEN ? AND ?`,
		userID, from.String(), to.String()).Scan(&overview.Income.Cents, &overview.Expenses.Cents)
	if err != nil {
		return overview, fmt.Errorf("month totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(SUM(t.amount_cents), 0) AS total
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'expense' AND t.transaction_date BETWEEN ? AND ?
		GROUP BY c.name
		ORDER BY total DESC`,
		userID, from.String(), to.String())
	if err != nil {
		return overview, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	if err := rows.Err(); err != nil {
		return overview, fmt.Errorf("iterate category sums: %w", err)
	}
	return overview, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t          core.Transaction
		categoryID sql.NullInt64
		txType     string
		date       string
		createdAt  time.Time
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &categoryID, &txType,
		&t.Amount.Cents, &date, &t.Description, &createdAt)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	t.Type = core.TransactionType(txType)
	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	t.CreatedAt = createdAt
	return &t, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
