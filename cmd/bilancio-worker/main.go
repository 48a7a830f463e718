package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/worker"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	recalculator := budget.NewRecalculator(repo, repo)
	reconciler := worker.NewReconcileWorker(repo, recalculator, cfg.SweepConcurrency)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	// Broker hints give low latency; the sweep catches anything they miss.
	g.Go(func() error {
		return amqpClient.ConsumeBudgetReconcile(gctx, func(msg *amqp.BudgetReconcileMessage) error {
			return reconciler.HandleReconcileMessage(gctx, msg)
		})
	})
	g.Go(func() error {
		return reconciler.RunSweepLoop(gctx, cfg.SweepInterval)
	})

	logger.Info("Reconcile worker started",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SweepInterval.String(),
		"concurrency", cfg.SweepConcurrency)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
