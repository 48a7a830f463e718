package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/storage"
)

// ReconcileWorker converges cached budget spent amounts in the background.
// It has two inputs: reconcile hints from AMQP, and a periodic sweep over
// every active budget. Both funnel into the same idempotent recompute, so a
// lost message only delays convergence until the next sweep.
type ReconcileWorker struct {
	storage      *storage.SQLiteRepository
	recalculator *budget.Recalculator
	concurrency  int
}

func NewReconcileWorker(storage *storage.SQLiteRepository, recalculator *budget.Recalculator, concurrency int) *ReconcileWorker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ReconcileWorker{
		storage:      storage,
		recalculator: recalculator,
		concurrency:  concurrency,
	}
}

// HandleReconcileMessage processes one reconcile hint from AMQP. Returning an
// error nacks the delivery back onto the queue.
func (w *ReconcileWorker) HandleReconcileMessage(ctx context.Context, msg *amqp.BudgetReconcileMessage) error {
	slog.InfoContext(ctx, "Processing reconcile message",
		"user_id", msg.UserID,
		"category_id", msg.CategoryID)

	if err := w.recalculator.RecalculateCategory(ctx, msg.UserID, msg.CategoryID); err != nil {
		return fmt.Errorf("recalculate category %d for user %d: %w", msg.CategoryID, msg.UserID, err)
	}
	return nil
}

// Sweep recomputes every active budget. Budgets are independent, so they run
// concurrently with a bounded fan-out.
func (w *ReconcileWorker) Sweep(ctx context.Context) error {
	budgets, err := w.storage.ListActiveBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list active budgets: %w", err)
	}

	if len(budgets) == 0 {
		slog.InfoContext(ctx, "No active budgets to sweep")
		return nil
	}

	slog.InfoContext(ctx, "Sweeping active budgets", "count", len(budgets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, b := range budgets {
		g.Go(func() error {
			if err := w.recalculator.RecalculateBudget(ctx, b); err != nil {
				return fmt.Errorf("sweep budget %d: %w", b.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget sweep complete", "count", len(budgets))
	return nil
}

// RunSweepLoop sweeps once at startup and then on every tick until the
// context ends. A failed sweep is logged and retried at the next tick.
func (w *ReconcileWorker) RunSweepLoop(ctx context.Context, interval time.Duration) error {
	if err := w.Sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup budget sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping budget sweep loop", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "Budget sweep failed", "error", err)
			}
		}
	}
}
