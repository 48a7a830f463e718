package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// recordingPublisher captures reconcile hints instead of talking to a broker.
type recordingPublisher struct {
	published []pair
}

type pair struct {
	userID     int64
	categoryID int64
}

func (p *recordingPublisher) PublishBudgetReconcile(_ context.Context, userID, categoryID int64) error {
	p.published = append(p.published, pair{userID, categoryID})
	return nil
}

type fixture struct {
	repo         *storage.SQLiteRepository
	transactions *TransactionService
	budgets      *BudgetService
	publisher    *recordingPublisher

	userID       int64
	accountID    int64
	groceriesID  int64
	transportID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	userID, err := repo.CreateUser(ctx, "Test User", "svc-"+t.Name()+"@example.com")
	require.NoError(t, err)

	account := &core.Account{UserID: userID, Name: "Checking", Kind: "checking", Currency: "EUR"}
	require.NoError(t, repo.CreateAccount(ctx, account))

	groceries := &core.Category{UserID: userID, Name: "Groceries", Type: core.Expense}
	require.NoError(t, repo.CreateCategory(ctx, groceries))
	transport := &core.Category{UserID: userID, Name: "Transport", Type: core.Expense}
	require.NoError(t, repo.CreateCategory(ctx, transport))

	recalc := budget.NewRecalculator(repo, repo)
	publisher := &recordingPublisher{}

	return &fixture{
		repo:         repo,
		transactions: NewTransactionService(repo, recalc, publisher),
		budgets:      NewBudgetService(repo, recalc),
		publisher:    publisher,
		userID:       userID,
		accountID:    account.ID,
		groceriesID:  groceries.ID,
		transportID:  transport.ID,
	}
}

func (f *fixture) createBudget(t *testing.T, categoryID int64, limitCents int64) *core.Budget {
	t.Helper()
	b, err := f.budgets.CreateBudget(context.Background(), core.Budget{
		UserID:      f.userID,
		CategoryID:  categoryID,
		LimitAmount: core.Money{Cents: limitCents},
		StartDate:   core.NewDate(2024, 1, 1),
		EndDate:     core.NewDate(2024, 1, 31),
		Active:      true,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) spentCents(t *testing.T, budgetID int64) int64 {
	t.Helper()
	b, err := f.repo.GetBudget(context.Background(), budgetID)
	require.NoError(t, err)
	return b.SpentAmount.Cents
}

func (f *fixture) expense(categoryID *int64, cents int64, day int) core.Transaction {
	return core.Transaction{
		UserID:      f.userID,
		AccountID:   f.accountID,
		CategoryID:  categoryID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Date:        core.NewDate(2024, 1, day),
		Description: "test expense",
	}
}

// TestTransactionLifecycle walks a transaction through create, category move,
// and delete, checking the cached spent amounts after every step.
func TestTransactionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groceriesBudget := f.createBudget(t, f.groceriesID, 30000)
	transportBudget := f.createBudget(t, f.transportID, 10000)

	// Two expenses land in Groceries.
	first, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 5000, 10))
	require.NoError(t, err)
	second, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 3000, 12))
	require.NoError(t, err)

	require.EqualValues(t, 8000, f.spentCents(t, groceriesBudget.ID))
	require.EqualValues(t, 0, f.spentCents(t, transportBudget.ID))

	// Move the second expense to Transport: both sides refresh.
	moved := *second
	moved.CategoryID = &f.transportID
	_, err = f.transactions.UpdateTransaction(ctx, moved)
	require.NoError(t, err)

	require.EqualValues(t, 5000, f.spentCents(t, groceriesBudget.ID))
	require.EqualValues(t, 3000, f.spentCents(t, transportBudget.ID))

	// Delete the first expense: its contribution disappears.
	require.NoError(t, f.transactions.DeleteTransaction(ctx, first.ID))

	require.EqualValues(t, 0, f.spentCents(t, groceriesBudget.ID))
	require.EqualValues(t, 3000, f.spentCents(t, transportBudget.ID))
}

func TestCreateTransaction_IncomeLeavesBudgetsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBudget(t, f.groceriesID, 30000)

	tx := f.expense(nil, 200000, 5)
	tx.Type = core.Income
	tx.Description = "salary"
	_, err := f.transactions.CreateTransaction(ctx, tx)
	require.NoError(t, err)

	require.EqualValues(t, 0, f.spentCents(t, b.ID))
	require.Empty(t, f.publisher.published, "income must not publish reconcile hints")
}

func TestCreateTransaction_UncategorizedExpenseLeavesBudgetsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBudget(t, f.groceriesID, 30000)

	_, err := f.transactions.CreateTransaction(ctx, f.expense(nil, 5000, 10))
	require.NoError(t, err)

	require.EqualValues(t, 0, f.spentCents(t, b.ID))
	require.Empty(t, f.publisher.published)
}

func TestCreateTransaction_ValidationRejected(t *testing.T) {
	f := newFixture(t)

	tx := f.expense(&f.groceriesID, 0, 10)
	_, err := f.transactions.CreateTransaction(context.Background(), tx)
	require.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestUpdateTransaction_AmountChangeSameCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBudget(t, f.groceriesID, 30000)

	tx, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 5000, 10))
	require.NoError(t, err)
	require.EqualValues(t, 5000, f.spentCents(t, b.ID))

	changed := *tx
	changed.Amount = core.Money{Cents: 7500}
	_, err = f.transactions.UpdateTransaction(ctx, changed)
	require.NoError(t, err)

	require.EqualValues(t, 7500, f.spentCents(t, b.ID))
}

func TestUpdateTransaction_TypeFlipDropsContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBudget(t, f.groceriesID, 30000)

	tx, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 5000, 10))
	require.NoError(t, err)
	require.EqualValues(t, 5000, f.spentCents(t, b.ID))

	flipped := *tx
	flipped.Type = core.Income
	_, err = f.transactions.UpdateTransaction(ctx, flipped)
	require.NoError(t, err)

	require.EqualValues(t, 0, f.spentCents(t, b.ID))
}

func TestPublishesReconcileHints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createBudget(t, f.groceriesID, 30000)

	tx, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 5000, 10))
	require.NoError(t, err)
	require.Equal(t, []pair{{f.userID, f.groceriesID}}, f.publisher.published)

	moved := *tx
	moved.CategoryID = &f.transportID
	_, err = f.transactions.UpdateTransaction(ctx, moved)
	require.NoError(t, err)
	require.Equal(t, []pair{
		{f.userID, f.groceriesID},
		{f.userID, f.groceriesID},
		{f.userID, f.transportID},
	}, f.publisher.published)
}

func TestBudgetService_CreateBackfillsSpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Transactions exist before the budget does.
	_, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 4000, 5))
	require.NoError(t, err)
	_, err = f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 2500, 20))
	require.NoError(t, err)

	b := f.createBudget(t, f.groceriesID, 30000)
	require.EqualValues(t, 6500, b.SpentAmount.Cents)
}

func TestBudgetService_UpdateRecomputesAfterWindowChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.transactions.CreateTransaction(ctx, f.expense(&f.groceriesID, 4000, 5))
	require.NoError(t, err)

	b := f.createBudget(t, f.groceriesID, 30000)
	require.EqualValues(t, 4000, b.SpentAmount.Cents)

	// Shrink the window past the transaction; the spent amount follows.
	edited := *b
	edited.StartDate = core.NewDate(2024, 1, 10)
	updated, err := f.budgets.UpdateBudget(ctx, edited)
	require.NoError(t, err)
	require.EqualValues(t, 0, updated.SpentAmount.Cents)
}

func TestRecurringProcessor_MaterializesAndRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBudget(t, f.groceriesID, 30000)

	rt := &core.RecurringTransaction{
		UserID:      f.userID,
		AccountID:   f.accountID,
		CategoryID:  &f.groceriesID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 1299},
		Description: "veggie box subscription",
		Every:       core.Weekly,
		StartDate:   core.NewDate(2024, 1, 1),
	}
	require.NoError(t, f.repo.CreateRecurringTransaction(ctx, rt))

	processor := NewRecurringProcessor(f.repo, f.transactions)
	now := time.Date(2024, 1, 8, 6, 0, 0, 0, time.UTC)

	n, err := processor.ProcessDue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, 1299, f.spentCents(t, b.ID))

	// Running again the same day is a no-op.
	n, err = processor.ProcessDue(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.EqualValues(t, 1299, f.spentCents(t, b.ID))
}
