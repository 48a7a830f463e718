package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/export"
	apphttp "bilancio/internal/http"
	"bilancio/internal/services"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	recalculator := budget.NewRecalculator(repo, repo)

	// AMQP is optional: without a broker the server still recalculates
	// budgets synchronously, it just cannot hand hints to the worker.
	var publisher services.ReconcilePublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, reconcile hints disabled", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	transactions := services.NewTransactionService(repo, recalculator, publisher)
	budgets := services.NewBudgetService(repo, recalculator)

	var exporter *export.SheetsExporter
	if cfg.SheetsExportEnabled() {
		exporter, err = export.NewSheetsExporter(context.Background(), export.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions: transactions,
		Budgets:      budgets,
		Storage:      repo,
		Exporter:     exporter,
		UserID:       cfg.DefaultUserID,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting bilancio server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
