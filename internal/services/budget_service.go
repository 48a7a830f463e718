package services

import (
	"context"
	"fmt"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// BudgetService orchestrates budget CRUD. Every create or edit ends with an
// immediate recompute so a budget never shows a stale spent amount, not even
// right after its window or category changed.
type BudgetService struct {
	storage      *storage.SQLiteRepository
	recalculator *budget.Recalculator
}

func NewBudgetService(storage *storage.SQLiteRepository, recalculator *budget.Recalculator) *BudgetService {
	return &BudgetService{
		storage:      storage,
		recalculator: recalculator,
	}
}

// CreateBudget validates and saves a budget, then computes its initial spent
// amount from the transactions already in its window.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validate budget: %w", err)
	}

	if err := s.storage.CreateBudget(ctx, &b); err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	if err := s.recalculator.RecalculateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("recalculate budget: %w", err)
	}
	return s.storage.GetBudget(ctx, b.ID)
}

// UpdateBudget overwrites a budget's editable fields and recomputes it. When
// the budget moved to another category, the old pair's remaining budgets are
// refreshed too.
func (s *BudgetService) UpdateBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validate budget: %w", err)
	}

	prev, err := s.storage.GetBudget(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("load budget %d: %w", b.ID, err)
	}
	b.UserID = prev.UserID

	if err := s.storage.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}

	if prev.CategoryID != b.CategoryID {
		if err := s.recalculator.RecalculateCategory(ctx, prev.UserID, prev.CategoryID); err != nil {
			return nil, fmt.Errorf("recalculate previous category: %w", err)
		}
	}
	if err := s.recalculator.RecalculateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("recalculate budget: %w", err)
	}
	return s.storage.GetBudget(ctx, b.ID)
}

// DeleteBudget removes a budget.
func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	if err := s.storage.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// GetBudget fetches a single budget.
func (s *BudgetService) GetBudget(ctx context.Context, id int64) (*core.Budget, error) {
	return s.storage.GetBudget(ctx, id)
}

// ListBudgets returns all budgets of one user, newest window first.
func (s *BudgetService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx, userID)
}
