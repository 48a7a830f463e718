package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// RecurringProcessor materializes real transactions from recurring templates.
// Created transactions go through the TransactionService, so they trigger the
// same budget recompute as a manual entry.
type RecurringProcessor struct {
	storage      *storage.SQLiteRepository
	transactions *TransactionService
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, transactions *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		transactions: transactions,
	}
}

// ProcessDue materializes every recurring template that is due at the given
// instant and returns how many transactions were created. A single failing
// template is logged and skipped; the rest still run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.storage.ListActiveRecurringTransactions(ctx, core.DateOf(now))
	if err != nil {
		return 0, fmt.Errorf("list active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, rt := range templates {
		checker, err := GetDuenessChecker(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unknown frequency on recurring template",
				"recurring_id", rt.ID,
				"frequency", string(rt.Every),
				"error", err)
			continue
		}

		if !checker.IsDue(rt.LastRunAt, now, rt.StartDate) {
			continue
		}

		tx := core.Transaction{
			UserID:      rt.UserID,
			AccountID:   rt.AccountID,
			CategoryID:  rt.CategoryID,
			Type:        rt.Type,
			Amount:      rt.Amount,
			Date:        core.DateOf(now),
			Description: rt.Description,
		}

		if _, err := p.transactions.CreateTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"recurring_id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}

		if err := p.storage.UpdateRecurringLastRun(ctx, rt.ID, now); err != nil {
			// Continue anyway - the transaction was created successfully.
			slog.ErrorContext(ctx, "Failed to update last run date",
				"recurring_id", rt.ID,
				"error", err)
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"recurring_id", rt.ID,
			"description", rt.Description,
			"amount_cents", rt.Amount.Cents,
			"frequency", string(rt.Every))
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}
