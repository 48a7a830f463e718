package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// parseTransactionForm reads the shared transaction form fields. The date
// defaults to today when omitted.
func (s *Server) parseTransactionForm(r *http.Request) (core.Transaction, error) {
	t := core.Transaction{UserID: s.userID}

	t.Description = sanitizeInput(r.Form.Get("description"))

	txType := strings.TrimSpace(r.Form.Get("type"))
	if txType == "" {
		txType = string(core.Expense)
	}
	t.Type = core.TransactionType(txType)

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		return t, fmt.Errorf("invalid amount: %w", err)
	}
	t.Amount = core.Money{Cents: cents}

	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return t, fmt.Errorf("invalid date: %w", err)
		}
		t.Date = d
	} else {
		t.Date = core.DateOf(time.Now())
	}

	accountID, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("account_id")), 10, 64)
	if err != nil {
		return t, fmt.Errorf("invalid account: %w", err)
	}
	t.AccountID = accountID

	if v := strings.TrimSpace(r.Form.Get("category_id")); v != "" {
		categoryID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return t, fmt.Errorf("invalid category: %w", err)
		}
		t.CategoryID = &categoryID
	}

	return t, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	t, err := s.parseTransactionForm(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	created, err := s.transactions.CreateTransaction(r.Context(), t)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrEmptyDescription) ||
			errors.Is(err, core.ErrInvalidType) || errors.Is(err, core.ErrInvalidDate) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Transaction create error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the transaction</div>`))
		return
	}

	s.invalidateOverview(created.Date.Year(), int(created.Date.Month()))
	w.Header().Set("HX-Trigger", hxTransactionChanged(created.Date))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Saved: ` +
		template.HTMLEscapeString(created.Description) +
		` (` + formatEuros(created.Amount.Cents) + `)</div>`))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	t, err := s.parseTransactionForm(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}
	t.ID = id

	updated, err := s.transactions.UpdateTransaction(r.Context(), t)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction update error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not update the transaction</div>`))
		return
	}

	s.invalidateOverview(updated.Date.Year(), int(updated.Date.Month()))
	w.Header().Set("HX-Trigger", hxTransactionChanged(updated.Date))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Updated: ` +
		template.HTMLEscapeString(updated.Description) + `</div>`))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	prev, err := s.transactions.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction load error", "error", err, "id", id)
		http.Error(w, "could not load the transaction", http.StatusInternalServerError)
		return
	}

	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Transaction delete error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not delete the transaction</div>`))
		return
	}

	s.invalidateOverview(prev.Date.Year(), int(prev.Date.Month()))
	w.Header().Set("HX-Trigger", hxTransactionChanged(prev.Date))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Transaction deleted</div>`))
}

// handleTransactionList renders the monthly transaction table partial.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	year, month := yearMonth(r)

	items, err := s.transactions.ListTransactions(r.Context(), s.userID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list error", "error", err, "year", year, "month", month)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading transactions</div>`))
		return
	}

	categories, err := s.storage.ListCategories(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	type row struct {
		ID       int64
		Date     string
		Desc     string
		Type     string
		Amount   string
		Category string
	}
	data := struct {
		Year  int
		Month int
		Rows  []row
	}{Year: year, Month: month}

	for _, t := range items {
		categoryName := ""
		if t.CategoryID != nil {
			categoryName = categoryNames[*t.CategoryID]
		}
		data.Rows = append(data.Rows, row{
			ID:       t.ID,
			Date:     t.Date.String(),
			Desc:     t.Description,
			Type:     string(t.Type),
			Amount:   formatEuros(t.Amount.Cents),
			Category: categoryName,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "transactions.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "transactions.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering transactions</div>`))
	}
}

func hxTransactionChanged(d core.Date) string {
	return `{"transaction:changed": {"year": ` + strconv.Itoa(d.Year()) +
		`, "month": ` + strconv.Itoa(int(d.Month())) + `}}`
}
