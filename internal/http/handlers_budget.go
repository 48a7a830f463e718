package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func (s *Server) parseBudgetForm(r *http.Request) (core.Budget, error) {
	b := core.Budget{UserID: s.userID, Active: true}

	categoryID, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("category_id")), 10, 64)
	if err != nil {
		return b, fmt.Errorf("invalid category: %w", err)
	}
	b.CategoryID = categoryID

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(r.Form.Get("limit")))
	if err != nil {
		return b, fmt.Errorf("invalid limit: %w", err)
	}
	b.LimitAmount = core.Money{Cents: cents}

	start, err := core.ParseDate(r.Form.Get("start_date"))
	if err != nil {
		return b, fmt.Errorf("invalid start date: %w", err)
	}
	b.StartDate = start

	end, err := core.ParseDate(r.Form.Get("end_date"))
	if err != nil {
		return b, fmt.Errorf("invalid end date: %w", err)
	}
	b.EndDate = end

	if v := strings.TrimSpace(r.Form.Get("active")); v != "" {
		b.Active = v == "1" || v == "true" || v == "on"
	}
	return b, nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	b, err := s.parseBudgetForm(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	created, err := s.budgets.CreateBudget(r.Context(), b)
	if err != nil {
		if errors.Is(err, core.ErrInvalidWindow) || errors.Is(err, core.ErrInvalidAmount) ||
			errors.Is(err, core.ErrMissingCategory) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Budget create error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the budget</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Budget saved: ` +
		formatEuros(created.SpentAmount.Cents) + ` of ` +
		formatEuros(created.LimitAmount.Cents) + ` already spent</div>`))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid budget id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	b, err := s.parseBudgetForm(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}
	b.ID = id

	if _, err := s.budgets.UpdateBudget(r.Context(), b); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "budget not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Budget update error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not update the budget</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Budget updated</div>`))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid budget id", http.StatusBadRequest)
		return
	}

	if err := s.budgets.DeleteBudget(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "budget not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Budget delete error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not delete the budget</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"budget:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Budget deleted</div>`))
}

// handleBudgetList renders the budget table partial with progress bars.
func (s *Server) handleBudgetList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	budgets, err := s.budgets.ListBudgets(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget list error", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading budgets</div>`))
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
		Category string
		Window   string
		Spent    string
		Limit    string
		Width    int
		Over     bool
		Active   bool
	}
	data := struct{ Rows []row }{}

	for _, b := range budgets {
		width := 0
		if b.LimitAmount.Cents > 0 {
			width = int((b.SpentAmount.Cents * 100) / b.LimitAmount.Cents)
			if width > 100 {
				width = 100
			}
		}
		data.Rows = append(data.Rows, row{
			ID:       b.ID,
			Category: categoryNames[b.CategoryID],
			Window:   b.StartDate.String() + " to " + b.EndDate.String(),
			Spent:    formatEuros(b.SpentAmount.Cents),
			Limit:    formatEuros(b.LimitAmount.Cents),
			Width:    width,
			Over:     b.SpentAmount.Cents > b.LimitAmount.Cents,
			Active:   b.Active,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "budgets.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "budgets.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering budgets</div>`))
	}
}
