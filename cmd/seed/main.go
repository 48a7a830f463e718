package main

import (
	"context"
	"flag"
	"os"

	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/seed"
	"bilancio/internal/services"
)

func main() {
	months := flag.Int("months", 3, "number of months of history to generate")
	flag.Parse()

	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	recalculator := budget.NewRecalculator(repo, repo)
	transactions := services.NewTransactionService(repo, recalculator, nil)
	budgets := services.NewBudgetService(repo, recalculator)

	seeder := seed.NewSeeder(repo, transactions, budgets)

	userID, err := seeder.Run(context.Background(), *months)
	if err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Seeding complete", "user_id", userID, "months", *months)
	logger.Info("Set DEFAULT_USER_ID to use the seeded account", "user_id", userID)
}
