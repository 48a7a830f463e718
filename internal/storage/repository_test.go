package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedUser creates a user with one account and one expense category and
// returns their IDs.
func seedUser(t *testing.T, repo *SQLiteRepository) (userID, accountID, categoryID int64) {
	t.Helper()
	ctx := context.Background()

	userID, err := repo.CreateUser(ctx, "Test User", "test-"+t.Name()+"@example.com")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	account := &core.Account{UserID: userID, Name: "Checking", Kind: "checking", Currency: "EUR"}
	if err := repo.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	category := &core.Category{UserID: userID, Name: "Groceries", Type: core.Expense}
	if err := repo.CreateCategory(ctx, category); err != nil {
		t.Fatalf("CreateCategory() error: %v", err)
	}

	return userID, account.ID, category.ID
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, accountID, categoryID := seedUser(t, repo)

	tx := &core.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		CategoryID:  &categoryID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 5000},
		Date:        core.NewDate(2024, 1, 15),
		Description: "weekly shop",
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}
	if tx.ID == 0 {
		t.Fatal("CreateTransaction() did not assign an ID")
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error: %v", err)
	}
	if got.Amount.Cents != 5000 || got.Date.String() != "2024-01-15" || got.Type != core.Expense {
		t.Errorf("GetTransaction() = %+v, want amount 5000 on 2024-01-15", got)
	}
	if got.CategoryID == nil || *got.CategoryID != categoryID {
		t.Errorf("GetTransaction() category = %v, want %d", got.CategoryID, categoryID)
	}

	got.Amount = core.Money{Cents: 7500}
	got.Description = "bigger shop"
	if err := repo.UpdateTransaction(ctx, *got); err != nil {
		t.Fatalf("UpdateTransaction() error: %v", err)
	}

	updated, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() after update error: %v", err)
	}
	if updated.Amount.Cents != 7500 || updated.Description != "bigger shop" {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction() after delete = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTransaction() twice = %v, want ErrNotFound", err)
	}
}

func TestTransactionNullCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, accountID, _ := seedUser(t, repo)

	tx := &core.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		Type:        core.Income,
		Amount:      core.Money{Cents: 200000},
		Date:        core.NewDate(2024, 1, 1),
		Description: "salary",
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("CategoryID = %v, want nil", got.CategoryID)
	}
}

func TestSumExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, accountID, categoryID := seedUser(t, repo)

	other := &core.Category{UserID: userID, Name: "Transport", Type: core.Expense}
	if err := repo.CreateCategory(ctx, other); err != nil {
		t.Fatalf("CreateCategory() error: %v", err)
	}

	add := func(cat *int64, txType core.TransactionType, cents int64, date core.Date) {
		t.Helper()
		tx := &core.Transaction{
			UserID: userID, AccountID: accountID, CategoryID: cat,
			Type: txType, Amount: core.Money{Cents: cents}, Date: date,
			Description: "tx",
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error: %v", err)
		}
	}

	from := core.NewDate(2024, 1, 1)
	to := core.NewDate(2024, 1, 31)

	add(&categoryID, core.Expense, 1000, core.NewDate(2024, 1, 1))   // first day, inclusive
	add(&categoryID, core.Expense, 2000, core.NewDate(2024, 1, 31))  // last day, inclusive
	add(&categoryID, core.Expense, 4000, core.NewDate(2023, 12, 31)) // outside window
	add(&categoryID, core.Expense, 8000, core.NewDate(2024, 2, 1))   // outside window
	add(&categoryID, core.Income, 16000, core.NewDate(2024, 1, 10))  // wrong type
	add(&other.ID, core.Expense, 32000, core.NewDate(2024, 1, 10))   // wrong category
	add(nil, core.Expense, 64000, core.NewDate(2024, 1, 10))         // no category

	sum, err := repo.SumExpenses(ctx, userID, categoryID, from, to)
	if err != nil {
		t.Fatalf("SumExpenses() error: %v", err)
	}
	if sum.Cents != 3000 {
		t.Errorf("SumExpenses() = %d, want 3000", sum.Cents)
	}
}

func TestSumExpenses_EmptyIsZero(t *testing.T) {
	repo := newTestRepo(t)
	userID, _, categoryID := seedUser(t, repo)

	sum, err := repo.SumExpenses(context.Background(), userID, categoryID,
		core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("SumExpenses() error: %v", err)
	}
	if sum.Cents != 0 {
		t.Errorf("SumExpenses() on empty set = %d, want 0", sum.Cents)
	}
}

func TestBudgetSpentUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, _, categoryID := seedUser(t, repo)

	b := &core.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		LimitAmount: core.Money{Cents: 30000},
		StartDate:   core.NewDate(2024, 1, 1),
		EndDate:     core.NewDate(2024, 1, 31),
		Active:      true,
	}
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget() error: %v", err)
	}

	if err := repo.UpdateBudgetSpent(ctx, b.ID, core.Money{Cents: 12345}); err != nil {
		t.Fatalf("UpdateBudgetSpent() error: %v", err)
	}

	got, err := repo.GetBudget(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBudget() error: %v", err)
	}
	if got.SpentAmount.Cents != 12345 {
		t.Errorf("SpentAmount = %d, want 12345", got.SpentAmount.Cents)
	}
	if got.LimitAmount.Cents != 30000 || got.StartDate.String() != "2024-01-01" {
		t.Errorf("UpdateBudgetSpent() touched other fields: %+v", got)
	}

	if err := repo.UpdateBudgetSpent(ctx, 9999, core.Money{Cents: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBudgetSpent() missing budget = %v, want ErrNotFound", err)
	}
}

func TestListActiveBudgetsByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, _, categoryID := seedUser(t, repo)

	other := &core.Category{UserID: userID, Name: "Transport", Type: core.Expense}
	if err := repo.CreateCategory(ctx, other); err != nil {
		t.Fatalf("CreateCategory() error: %v", err)
	}

	mk := func(catID int64, active bool) *core.Budget {
		b := &core.Budget{
			UserID: userID, CategoryID: catID,
			LimitAmount: core.Money{Cents: 10000},
			StartDate:   core.NewDate(2024, 1, 1),
			EndDate:     core.NewDate(2024, 12, 31),
			Active:      active,
		}
		if err := repo.CreateBudget(ctx, b); err != nil {
			t.Fatalf("CreateBudget() error: %v", err)
		}
		return b
	}

	active := mk(categoryID, true)
	mk(categoryID, false)
	mk(other.ID, true)

	got, err := repo.ListActiveBudgetsByCategory(ctx, userID, categoryID)
	if err != nil {
		t.Fatalf("ListActiveBudgetsByCategory() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("ListActiveBudgetsByCategory() = %+v, want only budget %d", got, active.ID)
	}

	all, err := repo.ListActiveBudgets(ctx)
	if err != nil {
		t.Fatalf("ListActiveBudgets() error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListActiveBudgets() returned %d budgets, want 2", len(all))
	}
}

func TestMonthOverview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, accountID, categoryID := seedUser(t, repo)

	txs := []core.Transaction{
		{Type: core.Income, Amount: core.Money{Cents: 200000}, Date: core.NewDate(2024, 3, 1), Description: "salary"},
		{Type: core.Expense, CategoryID: &categoryID, Amount: core.Money{Cents: 4500}, Date: core.NewDate(2024, 3, 10), Description: "shop"},
		{Type: core.Expense, CategoryID: &categoryID, Amount: core.Money{Cents: 1500}, Date: core.NewDate(2024, 3, 20), Description: "shop"},
		{Type: core.Expense, CategoryID: &categoryID, Amount: core.Money{Cents: 9999}, Date: core.NewDate(2024, 4, 1), Description: "next month"},
	}
	for i := range txs {
		txs[i].UserID = userID
		txs[i].AccountID = accountID
		if err := repo.CreateTransaction(ctx, &txs[i]); err != nil {
			t.Fatalf("CreateTransaction() error: %v", err)
		}
	}

	overview, err := repo.MonthOverview(ctx, userID, 2024, 3)
	if err != nil {
		t.Fatalf("MonthOverview() error: %v", err)
	}
	if overview.Income.Cents != 200000 {
		t.Errorf("Income = %d, want 200000", overview.Income.Cents)
	}
	if overview.Expenses.Cents != 6000 {
		t.Errorf("Expenses = %d, want 6000", overview.Expenses.Cents)
	}
	if len(overview.ByCategory) != 1 || overview.ByCategory[0].Name != "Groceries" || overview.ByCategory[0].Amount.Cents != 6000 {
		t.Errorf("ByCategory = %+v, want Groceries 6000", overview.ByCategory)
	}
	if overview.Net().Cents != 194000 {
		t.Errorf("Net() = %d, want 194000", overview.Net().Cents)
	}
}

func TestRecurringTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID, accountID, categoryID := seedUser(t, repo)

	rt := &core.RecurringTransaction{
		UserID:      userID,
		AccountID:   accountID,
		CategoryID:  &categoryID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 1299},
		Description: "streaming subscription",
		Every:       core.Monthly,
		StartDate:   core.NewDate(2024, 1, 5),
	}
	if err := repo.CreateRecurringTransaction(ctx, rt); err != nil {
		t.Fatalf("CreateRecurringTransaction() error: %v", err)
	}

	active, err := repo.ListActiveRecurringTransactions(ctx, core.NewDate(2024, 2, 5))
	if err != nil {
		t.Fatalf("ListActiveRecurringTransactions() error: %v", err)
	}
	if len(active) != 1 || active[0].ID != rt.ID {
		t.Fatalf("ListActiveRecurringTransactions() = %+v, want the created template", active)
	}
	if !active[0].LastRunAt.IsZero() {
		t.Errorf("LastRunAt = %v, want zero before first run", active[0].LastRunAt)
	}

	ranAt := time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)
	if err := repo.UpdateRecurringLastRun(ctx, rt.ID, ranAt); err != nil {
		t.Fatalf("UpdateRecurringLastRun() error: %v", err)
	}

	active, err = repo.ListActiveRecurringTransactions(ctx, core.NewDate(2024, 2, 6))
	if err != nil {
		t.Fatalf("ListActiveRecurringTransactions() error: %v", err)
	}
	if len(active) != 1 || !active[0].LastRunAt.Equal(ranAt) {
		t.Errorf("LastRunAt = %v, want %v", active[0].LastRunAt, ranAt)
	}

	// Templates outside their window are excluded.
	none, err := repo.ListActiveRecurringTransactions(ctx, core.NewDate(2023, 12, 1))
	if err != nil {
		t.Fatalf("ListActiveRecurringTransactions() error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no templates before start date, got %+v", none)
	}
}

func TestAssets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assets := []core.Asset{
		{Symbol: "VWCE", Name: "Vanguard FTSE All-World", Kind: core.AssetFund, Currency: "EUR"},
		{Symbol: "BTC", Name: "Bitcoin", Kind: core.AssetCrypto, Currency: "EUR"},
	}
	for i := range assets {
		if err := repo.CreateAsset(ctx, &assets[i]); err != nil {
			t.Fatalf("CreateAsset() error: %v", err)
		}
	}

	got, err := repo.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets() error: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "BTC" || got[1].Symbol != "VWCE" {
		t.Errorf("ListAssets() = %+v, want BTC then VWCE", got)
	}
}
