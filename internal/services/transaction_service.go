package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// ReconcilePublisher publishes best-effort reconcile hints for the background
// worker. A nil publisher disables publishing.
type ReconcilePublisher interface {
	PublishBudgetReconcile(ctx context.Context, userID, categoryID int64) error
}

// TransactionService orchestrates transaction mutations: persist to SQLite,
// recompute affected budgets synchronously, then publish a reconcile hint
// over AMQP.
//
// The recompute is part of the mutation: if it fails, the error propagates to
// the caller. The AMQP publish is not; a failed publish is logged and the
// mutation still succeeds, because the periodic sweep will converge the
// budgets anyway.
type TransactionService struct {
	storage      *storage.SQLiteRepository
	recalculator *budget.Recalculator
	publisher    ReconcilePublisher
}

func NewTransactionService(storage *storage.SQLiteRepository, recalculator *budget.Recalculator, publisher ReconcilePublisher) *TransactionService {
	return &TransactionService{
		storage:      storage,
		recalculator: recalculator,
		publisher:    publisher,
	}
}

// CreateTransaction validates and saves a transaction, then refreshes the
// budgets it contributes to.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.storage.CreateTransaction(ctx, &t); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.recalculator.TransactionCreated(ctx, t); err != nil {
		return nil, fmt.Errorf("recalculate budgets: %w", err)
	}

	if t.Qualifies() {
		s.publishReconcile(ctx, t.UserID, *t.CategoryID)
	}
	return &t, nil
}

// UpdateTransaction overwrites an existing transaction and refreshes every
// budget pair the change touches, including the category the transaction
// moved away from.
func (s *TransactionService) UpdateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	// Snapshot the persisted state before touching it; the recalculator needs
	// both sides of the update to know which pairs to refresh.
	prev, err := s.storage.GetTransaction(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", t.ID, err)
	}
	t.UserID = prev.UserID
	t.CreatedAt = prev.CreatedAt

	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if err := s.recalculator.TransactionUpdated(ctx, *prev, t); err != nil {
		return nil, fmt.Errorf("recalculate budgets: %w", err)
	}

	if prev.Qualifies() {
		s.publishReconcile(ctx, prev.UserID, *prev.CategoryID)
	}
	if t.Qualifies() && (!prev.Qualifies() || *prev.CategoryID != *t.CategoryID) {
		s.publishReconcile(ctx, t.UserID, *t.CategoryID)
	}
	return &t, nil
}

// DeleteTransaction removes a transaction and drops its contribution from the
// budgets it fed.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	// Capture the last persisted state first; after the delete there is
	// nothing left to tell us which pair to refresh.
	prev, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.recalculator.TransactionDeleted(ctx, *prev); err != nil {
		return fmt.Errorf("recalculate budgets: %w", err)
	}

	if prev.Qualifies() {
		s.publishReconcile(ctx, prev.UserID, *prev.CategoryID)
	}
	return nil
}

// GetTransaction fetches a single transaction.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// ListTransactions returns a user's transactions for one month.
func (s *TransactionService) ListTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, year, month)
}

// MonthOverview aggregates income, expenses and per-category totals for one
// month.
func (s *TransactionService) MonthOverview(ctx context.Context, userID int64, year, month int) (core.MonthOverview, error) {
	return s.storage.MonthOverview(ctx, userID, year, month)
}

func (s *TransactionService) publishReconcile(ctx context.Context, userID, categoryID int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping reconcile message")
		return
	}
	if err := s.publisher.PublishBudgetReconcile(ctx, userID, categoryID); err != nil {
		// Don't fail the request - budgets were already recomputed in-line.
		slog.ErrorContext(ctx, "Failed to publish reconcile message",
			"user_id", userID,
			"category_id", categoryID,
			"error", err)
	}
}
