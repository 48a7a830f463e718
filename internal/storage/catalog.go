package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// CreateCategory inserts a category and assigns its ID.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type) VALUES (?, ?, ?)`,
		c.UserID, c.Name, string(c.Type))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetCategory fetches a category by ID.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	var (
		c      core.Category
		cType  string
		created time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &cType, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.TransactionType(cType)
	c.CreatedAt = created
	return &c, nil
}

// ListCategories returns a user's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, created_at FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c       core.Category
			cType   string
			created time.Time
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &cType, &created); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(cType)
		c.CreatedAt = created
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// CreateAccount inserts an account and assigns its ID.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, kind, currency) VALUES (?, ?, ?, ?)`,
		a.UserID, a.Name, a.Kind, a.Currency)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account insert id: %w", err)
	}
	a.ID = id
	return nil
}

// ListAccounts returns a user's accounts ordered by name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, kind, currency, created_at FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &a.Currency, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// CreateGoal inserts a savings goal and assigns its ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.Goal) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (user_id, name, target_cents, saved_cents, due_date) VALUES (?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount.Cents, g.SavedAmount.Cents, g.DueDate.String())
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("goal insert id: %w", err)
	}
	g.ID = id
	return nil
}

// ListGoals returns a user's goals ordered by due date.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_cents, saved_cents, due_date FROM goals WHERE user_id = ? ORDER BY due_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g   core.Goal
			due string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &g.SavedAmount.Cents, &due); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		d, err := core.ParseDate(due)
		if err != nil {
			return nil, fmt.Errorf("parse stored due date %q: %w", due, err)
		}
		g.DueDate = d
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// UpdateGoalSaved persists the saved-so-far amount of a goal.
func (r *SQLiteRepository) UpdateGoalSaved(ctx context.Context, goalID int64, saved core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET saved_cents = ? WHERE id = ?`, saved.Cents, goalID)
	if err != nil {
		return fmt.Errorf("update goal saved: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal saved rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", goalID, ErrNotFound)
	}
	return nil
}

// CreateRecurringTransaction inserts a recurring template and assigns its ID.
func (r *SQLiteRepository) CreateRecurringTransaction(ctx context.Context, rt *core.RecurringTransaction) error {
	var endDate any
	if !rt.EndDate.IsZero() {
		endDate = rt.EndDate.String()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (user_id, account_id, category_id, type, amount_cents, description, frequency, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID,
		rt.AccountID,
		nullableID(rt.CategoryID),
		string(rt.Type),
		rt.Amount.Cents,
		rt.Description,
		string(rt.Every),
		rt.StartDate.String(),
		endDate)
	if err != nil {
		return fmt.Errorf("create recurring transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recurring transaction insert id: %w", err)
	}
	rt.ID = id
	return nil
}

// ListActiveRecurringTransactions returns templates whose window contains the
// given date, i.e. candidates for materialization.
func (r *SQLiteRepository) ListActiveRecurringTransactions(ctx context.Context, asOf core.Date) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, category_id, type, amount_cents, description, frequency, start_date, end_date, last_run_at
		FROM recurring_transactions
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`,
		asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			rt         core.RecurringTransaction
			categoryID sql.NullInt64
			rtType     string
			frequency  string
			start      string
			end        sql.NullString
			lastRun    sql.NullTime
		)
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.AccountID, &categoryID, &rtType,
			&rt.Amount.Cents, &rt.Description, &frequency, &start, &end, &lastRun); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.Int64
			rt.CategoryID = &id
		}
		rt.Type = core.TransactionType(rtType)
		rt.Every = core.RepetitionType(frequency)
		startDate, err := core.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("parse stored start date %q: %w", start, err)
		}
		rt.StartDate = startDate
		if end.Valid {
			endDate, err := core.ParseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("parse stored end date %q: %w", end.String, err)
			}
			rt.EndDate = endDate
		}
		if lastRun.Valid {
			rt.LastRunAt = lastRun.Time
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring transactions: %w", err)
	}
	return out, nil
}

// UpdateRecurringLastRun records when a template last produced a transaction.
func (r *SQLiteRepository) UpdateRecurringLastRun(ctx context.Context, id int64, ranAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_run_at = ? WHERE id = ?`, ranAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("update recurring last run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recurring last run rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateAsset registers a tradeable asset.
func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *core.Asset) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (symbol, name, kind, currency) VALUES (?, ?, ?, ?)`,
		a.Symbol, a.Name, string(a.Kind), a.Currency)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("asset insert id: %w", err)
	}
	a.ID = id
	return nil
}

// ListAssets returns all supported tradeable assets ordered by symbol.
func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]core.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, symbol, name, kind, currency FROM assets ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []core.Asset
	for rows.Next() {
		var (
			a    core.Asset
			kind string
		)
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &kind, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Kind = core.AssetKind(kind)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}
