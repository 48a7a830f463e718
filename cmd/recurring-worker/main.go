package main

import (
	"context"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

const checkInterval = 1 * time.Hour

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	recalculator := budget.NewRecalculator(repo, repo)

	var publisher services.ReconcilePublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, reconcile hints disabled", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	transactions := services.NewTransactionService(repo, recalculator, publisher)
	processor := services.NewRecurringProcessor(repo, transactions)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Recurring worker started", "check_interval", checkInterval.String())

	runOnce(ctx, logger, processor)

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runOnce(ctx, logger, processor)
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Recurring worker stopped gracefully")
			return
		}
	}
}

func runOnce(ctx context.Context, logger *log.Logger, processor *services.RecurringProcessor) {
	created, err := processor.ProcessDue(ctx, time.Now())
	if err != nil {
		logger.Error("Recurring processing error", "error", err)
		return
	}
	if created > 0 {
		logger.Info("Recurring transactions materialized", "count", created)
	}
}
