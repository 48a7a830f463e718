package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

const budgetColumns = `id, user_id, category_id, limit_cents, spent_cents, start_date, end_date, is_active`

// CreateBudget inserts a budget and assigns its ID. The spent amount always
// starts at zero; the recalculator fills it in.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category_id, limit_cents, start_date, end_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID,
		b.CategoryID,
		b.LimitAmount.Cents,
		b.StartDate.String(),
		b.EndDate.String(),
		boolToInt(b.Active))
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("budget insert id: %w", err)
	}
	b.ID = id
	b.SpentAmount = core.Money{}
	return nil
}

// GetBudget fetches a single budget by ID.
func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("budget %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// UpdateBudget overwrites a budget's user-editable fields. The spent amount
// is deliberately excluded; only UpdateBudgetSpent touches it.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET category_id = ?, limit_cents = ?, start_date = ?, end_date = ?, is_active = ?
		WHERE id = ?`,
		b.CategoryID,
		b.LimitAmount.Cents,
		b.StartDate.String(),
		b.EndDate.String(),
		boolToInt(b.Active),
		b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// DeleteBudget removes a budget by ID.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListBudgets returns all budgets of one user, newest window first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = ?
		ORDER BY start_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return collectBudgets(rows)
}

// ListActiveBudgetsByCategory returns the active budgets of one
// (user, category) pair, the set a transaction mutation can invalidate.
func (r *SQLiteRepository) ListActiveBudgetsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = ? AND category_id = ? AND is_active = 1
		ORDER BY id`, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list active budgets by category: %w", err)
	}
	return collectBudgets(rows)
}

// ListActiveBudgets returns every active budget, for the reconciliation sweep.
func (r *SQLiteRepository) ListActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE is_active = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	return collectBudgets(rows)
}

// UpdateBudgetSpent persists a freshly derived spent amount. Full overwrite;
// no other field is touched.
func (r *SQLiteRepository) UpdateBudgetSpent(ctx context.Context, budgetID int64, spent core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = ? WHERE id = ?`, spent.Cents, budgetID)
	if err != nil {
		return fmt.Errorf("update budget spent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget spent rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %d: %w", budgetID, ErrNotFound)
	}

	slog.DebugContext(ctx, "Budget spent amount persisted",
		"budget_id", budgetID,
		"spent_cents", spent.Cents)
	return nil
}

func collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func scanBudget(row rowScanner) (*core.Budget, error) {
	var (
		b          core.Budget
		start, end string
		active     int
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.LimitAmount.Cents,
		&b.SpentAmount.Cents, &start, &end, &active)
	if err != nil {
		return nil, err
	}
	startDate, err := core.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("parse stored start date %q: %w", start, err)
	}
	endDate, err := core.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("parse stored end date %q: %w", end, err)
	}
	b.StartDate = startDate
	b.EndDate = endDate
	b.Active = active != 0
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
