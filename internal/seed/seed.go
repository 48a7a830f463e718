// Package seed fills a fresh database with plausible demo data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/bxcodec/faker/v3"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

// Seeder populates a database with one demo user and a few months of
// transactions. Transactions are routed through the TransactionService, so
// the seeded budgets end up with correct spent amounts without any extra
// bookkeeping here.
type Seeder struct {
	storage      *storage.SQLiteRepository
	transactions *services.TransactionService
	budgets      *services.BudgetService
	rng          *rand.Rand
}

func NewSeeder(storage *storage.SQLiteRepository, transactions *services.TransactionService, budgets *services.BudgetService) *Seeder {
	return &Seeder{
		storage:      storage,
		transactions: transactions,
		budgets:      budgets,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var expenseCategories = []string{"Groceries", "Transport", "Dining", "Utilities", "Entertainment"}

var demoAssets = []core.Asset{
	{Symbol: "VWCE", Name: "Vanguard FTSE All-World", Kind: core.AssetFund, Currency: "EUR"},
	{Symbol: "AAPL", Name: "Apple Inc.", Kind: core.AssetStock, Currency: "USD"},
	{Symbol: "BTC", Name: "Bitcoin", Kind: core.AssetCrypto, Currency: "EUR"},
}

// Run seeds everything and returns the demo user's ID.
func (s *Seeder) Run(ctx context.Context, months int) (int64, error) {
	if months < 1 {
		months = 3
	}

	name := faker.Name()
	email := strings.ToLower(faker.Email())

	userID, err := s.storage.CreateUser(ctx, name, email)
	if err != nil {
		return 0, fmt.Errorf("seed user: %w", err)
	}
	slog.InfoContext(ctx, "Seeded demo user", "user_id", userID, "name", name, "email", email)

	account := &core.Account{UserID: userID, Name: "Checking", Kind: "checking", Currency: "EUR"}
	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return 0, fmt.Errorf("seed account: %w", err)
	}
	savings := &core.Account{UserID: userID, Name: "Savings", Kind: "savings", Currency: "EUR"}
	if err := s.storage.CreateAccount(ctx, savings); err != nil {
		return 0, fmt.Errorf("seed account: %w", err)
	}

	categoryIDs := make([]int64, 0, len(expenseCategories))
	for _, categoryName := range expenseCategories {
		c := &core.Category{UserID: userID, Name: categoryName, Type: core.Expense}
		if err := s.storage.CreateCategory(ctx, c); err != nil {
			return 0, fmt.Errorf("seed category %s: %w", categoryName, err)
		}
		categoryIDs = append(categoryIDs, c.ID)
	}
	salaryCategory := &core.Category{UserID: userID, Name: "Salary", Type: core.Income}
	if err := s.storage.CreateCategory(ctx, salaryCategory); err != nil {
		return 0, fmt.Errorf("seed category Salary: %w", err)
	}

	for i := range demoAssets {
		asset := demoAssets[i]
		if err := s.storage.CreateAsset(ctx, &asset); err != nil {
			return 0, fmt.Errorf("seed asset %s: %w", asset.Symbol, err)
		}
	}

	goal := &core.Goal{
		UserID:       userID,
		Name:         "Emergency fund",
		TargetAmount: core.Money{Cents: 1000000},
		SavedAmount:  core.Money{Cents: 250000},
		DueDate:      core.DateOf(time.Now().AddDate(1, 0, 0)),
	}
	if err := s.storage.CreateGoal(ctx, goal); err != nil {
		return 0, fmt.Errorf("seed goal: %w", err)
	}

	now := time.Now()
	if err := s.seedBudgets(ctx, userID, categoryIDs, now); err != nil {
		return 0, err
	}
	if err := s.seedTransactions(ctx, userID, account.ID, categoryIDs, months, now); err != nil {
		return 0, err
	}

	rt := &core.RecurringTransaction{
		UserID:      userID,
		AccountID:   account.ID,
		CategoryID:  &categoryIDs[3], // Utilities
		Type:        core.Expense,
		Amount:      core.Money{Cents: 4500},
		Description: "Internet subscription",
		Every:       core.Monthly,
		StartDate:   core.DateOf(now.AddDate(0, -months, 0)),
	}
	if err := s.storage.CreateRecurringTransaction(ctx, rt); err != nil {
		return 0, fmt.Errorf("seed recurring transaction: %w", err)
	}

	slog.InfoContext(ctx, "Seeding complete", "user_id", userID, "months", months)
	return userID, nil
}

// seedBudgets creates a current-month budget for each expense category.
// Budgets go in before transactions on purpose: the service recomputes them
// as expenses arrive, exercising the same path the web handlers use.
func (s *Seeder) seedBudgets(ctx context.Context, userID int64, categoryIDs []int64, now time.Time) error {
	start := core.NewDate(now.Year(), int(now.Month()), 1)
	end := core.DateOf(start.AddDate(0, 1, -1))

	for _, categoryID := range categoryIDs {
		limit := core.Money{Cents: int64(10000 + s.rng.Intn(40)*1000)}
		_, err := s.budgets.CreateBudget(ctx, core.Budget{
			UserID:      userID,
			CategoryID:  categoryID,
			LimitAmount: limit,
			StartDate:   start,
			EndDate:     end,
			Active:      true,
		})
		if err != nil {
			return fmt.Errorf("seed budget for category %d: %w", categoryID, err)
		}
	}
	return nil
}

func (s *Seeder) seedTransactions(ctx context.Context, userID, accountID int64, categoryIDs []int64, months int, now time.Time) error {
	created := 0

	for m := 0; m < months; m++ {
		monthStart := now.AddDate(0, -m, 0)

		// One salary per month.
		salary := core.Transaction{
			UserID:      userID,
			AccountID:   accountID,
			Type:        core.Income,
			Amount:      core.Money{Cents: 250000 + int64(s.rng.Intn(500))*100},
			Date:        core.NewDate(monthStart.Year(), int(monthStart.Month()), 1),
			Description: "Monthly salary",
		}
		if _, err := s.transactions.CreateTransaction(ctx, salary); err != nil {
			return fmt.Errorf("seed salary: %w", err)
		}
		created++

		// A couple dozen expenses spread over the month.
		count := 15 + s.rng.Intn(10)
		for i := 0; i < count; i++ {
			categoryID := categoryIDs[s.rng.Intn(len(categoryIDs))]
			day := 1 + s.rng.Intn(28)

			tx := core.Transaction{
				UserID:      userID,
				AccountID:   accountID,
				CategoryID:  &categoryID,
				Type:        core.Expense,
				Amount:      core.Money{Cents: int64(300 + s.rng.Intn(9700))},
				Date:        core.NewDate(monthStart.Year(), int(monthStart.Month()), day),
				Description: faker.Sentence(),
			}
			if _, err := s.transactions.CreateTransaction(ctx, tx); err != nil {
				return fmt.Errorf("seed expense: %w", err)
			}
			created++
		}
	}

	slog.InfoContext(ctx, "Seeded transactions", "count", created)
	return nil
}
