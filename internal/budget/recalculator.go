// Package budget keeps every budget's cached spent amount consistent with
// the transactions that feed it.
//
// The Recalculator subscribes to the transaction lifecycle: whoever mutates a
// transaction calls exactly one of TransactionCreated, TransactionUpdated, or
// TransactionDeleted after the mutation is durably persisted and before the
// triggering operation returns. Recomputation is a full idempotent overwrite
// of one budget's spent amount from a fresh aggregate query, never an
// incremental delta, so re-running it is always safe.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bilancio/internal/core"
)

// Recalculator recomputes the spent amount of every active budget affected by
// a transaction mutation. It is stateless between invocations; all state
// lives in the two stores.
type Recalculator struct {
	transactions TransactionSummer
	budgets      Store

	// Serializes read-then-write recomputes per (user, category) pair so two
	// concurrent mutations touching the same budgets cannot lose an update.
	// Distinct pairs proceed in parallel.
	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

type pairKey struct {
	userID     int64
	categoryID int64
}

// NewRecalculator creates a recalculator over the two store ports.
func NewRecalculator(transactions TransactionSummer, budgets Store) *Recalculator {
	return &Recalculator{
		transactions: transactions,
		budgets:      budgets,
		locks:        make(map[pairKey]*sync.Mutex),
	}
}

// TransactionCreated reacts to a newly persisted transaction. Only expenses
// with a category affect budgets; anything else is a no-op.
func (r *Recalculator) TransactionCreated(ctx context.Context, t core.Transaction) error {
	if !t.Qualifies() {
		return nil
	}
	return r.RecalculateCategory(ctx, t.UserID, *t.CategoryID)
}

// TransactionUpdated reacts to an update. prev is the transaction exactly as
// it was persisted before the update; curr is the new persisted state.
//
// When the category, amount, or type changed and the previous state had a
// category, the budgets of the category the transaction left (or whose
// contribution changed) are refreshed first. The current state then gets the
// same treatment as a freshly created transaction, so a move from category A
// to B refreshes both sides. When old and new category are identical the
// first pass is skipped: the second pass recomputes the same pair and the
// observable result is unchanged.
func (r *Recalculator) TransactionUpdated(ctx context.Context, prev, curr core.Transaction) error {
	changed := !categoryEqual(prev.CategoryID, curr.CategoryID) ||
		prev.Amount != curr.Amount ||
		prev.Type != curr.Type

	if changed && prev.CategoryID != nil && !categoryEqual(prev.CategoryID, curr.CategoryID) {
		if err := r.RecalculateCategory(ctx, prev.UserID, *prev.CategoryID); err != nil {
			return fmt.Errorf("recalculate previous category %d: %w", *prev.CategoryID, err)
		}
	} else if changed && prev.CategoryID != nil && !curr.Qualifies() {
		// Same category but the new state no longer contributes (e.g. the
		// type flipped to income): the pair still has to be refreshed here
		// because the pass below will not run.
		if err := r.RecalculateCategory(ctx, prev.UserID, *prev.CategoryID); err != nil {
			return fmt.Errorf("recalculate previous category %d: %w", *prev.CategoryID, err)
		}
	}

	return r.TransactionCreated(ctx, curr)
}

// TransactionDeleted reacts to a deletion. t is the transaction's last known
// state, captured before removal, so the recompute sees the store without its
// contribution.
func (r *Recalculator) TransactionDeleted(ctx context.Context, t core.Transaction) error {
	if !t.Qualifies() {
		return nil
	}
	return r.RecalculateCategory(ctx, t.UserID, *t.CategoryID)
}

// RecalculateCategory recomputes every active budget for one (user, category)
// pair. Budgets are recomputed independently; overlapping windows for the
// same pair each get their own aggregate.
func (r *Recalculator) RecalculateCategory(ctx context.Context, userID, categoryID int64) error {
	lock := r.pairLock(userID, categoryID)
	lock.Lock()
	defer lock.Unlock()

	budgets, err := r.budgets.ListActiveBudgetsByCategory(ctx, userID, categoryID)
	if err != nil {
		return fmt.Errorf("list active budgets for user %d category %d: %w", userID, categoryID, err)
	}

	for _, b := range budgets {
		if err := r.recalculate(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateBudget recomputes a single budget under the pair lock. Used by
// the reconciliation sweep, which walks budgets rather than categories.
func (r *Recalculator) RecalculateBudget(ctx context.Context, b core.Budget) error {
	lock := r.pairLock(b.UserID, b.CategoryID)
	lock.Lock()
	defer lock.Unlock()
	return r.recalculate(ctx, b)
}

func (r *Recalculator) recalculate(ctx context.Context, b core.Budget) error {
	sum, err := r.transactions.SumExpenses(ctx, b.UserID, b.CategoryID, b.StartDate, b.EndDate)
	if err != nil {
		return fmt.Errorf("sum expenses for budget %d: %w", b.ID, err)
	}

	if err := r.budgets.UpdateBudgetSpent(ctx, b.ID, sum); err != nil {
		return fmt.Errorf("update spent amount for budget %d: %w", b.ID, err)
	}

	slog.DebugContext(ctx, "Budget spent amount recalculated",
		"budget_id", b.ID,
		"user_id", b.UserID,
		"category_id", b.CategoryID,
		"window_start", b.StartDate.String(),
		"window_end", b.EndDate.String(),
		"spent_cents", sum.Cents)
	return nil
}

func (r *Recalculator) pairLock(userID, categoryID int64) *sync.Mutex {
	key := pairKey{userID: userID, categoryID: categoryID}
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

func categoryEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
