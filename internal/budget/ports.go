package budget

import (
	"context"

	"bilancio/internal/core"
)

// Ports the recalculator needs from the two stores. The transaction store is
// the source of truth; budgets only ever receive derived values.
type (
	// TransactionSummer answers the filtered aggregate query: total expense
	// amount for one (user, category) pair inside an inclusive date window.
	// An empty match set yields zero, never an absent value.
	TransactionSummer interface {
		SumExpenses(ctx context.Context, userID, categoryID int64, from, to core.Date) (core.Money, error)
	}

	// Store is the budget-side surface: active budgets for a pair, and a
	// partial update that persists only the derived spent amount.
	Store interface {
		ListActiveBudgetsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Budget, error)
		UpdateBudgetSpent(ctx context.Context, budgetID int64, spent core.Money) error
	}
)
