package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	applog "bilancio/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list categories"})
		return
	}

	type item struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	}
	out := make([]item, 0, len(categories))
	for _, c := range categories {
		out = append(out, item{ID: c.ID, Name: c.Name, Type: string(c.Type)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.storage.ListAccounts(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list accounts"})
		return
	}

	type item struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Currency string `json:"currency"`
	}
	out := make([]item, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, item{ID: a.ID, Name: a.Name, Kind: a.Kind, Currency: a.Currency})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.storage.ListGoals(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Goal list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list goals"})
		return
	}

	type item struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		TargetCents int64  `json:"target_cents"`
		SavedCents  int64  `json:"saved_cents"`
		DueDate     string `json:"due_date"`
	}
	out := make([]item, 0, len(goals))
	for _, g := range goals {
		out = append(out, item{
			ID:          g.ID,
			Name:        g.Name,
			TargetCents: g.TargetAmount.Cents,
			SavedCents:  g.SavedAmount.Cents,
			DueDate:     g.DueDate.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.storage.ListAssets(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Asset list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list assets"})
		return
	}

	type item struct {
		ID       int64  `json:"id"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Currency string `json:"currency"`
	}
	out := make([]item, 0, len(assets))
	for _, a := range assets {
		out = append(out, item{ID: a.ID, Symbol: a.Symbol, Name: a.Name, Kind: string(a.Kind), Currency: a.Currency})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListBudgetsJSON(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list budgets"})
		return
	}

	type item struct {
		ID         int64  `json:"id"`
		CategoryID int64  `json:"category_id"`
		LimitCents int64  `json:"limit_cents"`
		SpentCents int64  `json:"spent_cents"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		Active     bool   `json:"active"`
	}
	out := make([]item, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, item{
			ID:         b.ID,
			CategoryID: b.CategoryID,
			LimitCents: b.LimitAmount.Cents,
			SpentCents: b.SpentAmount.Cents,
			StartDate:  b.StartDate.String(),
			EndDate:    b.EndDate.String(),
			Active:     b.Active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport appends one month of transactions to the configured spreadsheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentExport)

	if s.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "export is not configured"})
		return
	}

	year, month := yearMonth(r)

	transactions, err := s.transactions.ListTransactions(r.Context(), s.userID, year, month)
	if err != nil {
		logger.ErrorContext(r.Context(), "Export list error", "error", err, "year", year, "month", month)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load transactions"})
		return
	}

	categories, err := s.storage.ListCategories(r.Context(), s.userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Category list error", "error", err)
	}

	rows, err := s.exporter.ExportTransactions(r.Context(), transactions, categories)
	if err != nil {
		logger.ErrorContext(r.Context(), "Sheet export error", "error", err, "year", year, "month", month)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "export failed"})
		return
	}

	logger.InfoContext(r.Context(), "Export completed", "year", year, "month", month, "rows", rows)
	writeJSON(w, http.StatusOK, map[string]int{"exported_rows": rows})
}
