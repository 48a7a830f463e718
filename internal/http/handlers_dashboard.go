package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()

	categories, err := s.storage.ListCategories(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
	}
	accounts, err := s.storage.ListAccounts(r.Context(), s.userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Account list error", "error", err)
	}

	data := struct {
		Year       int
		Month      int
		Today      string
		Categories []core.Category
		Accounts   []core.Account
	}{
		Year:       now.Year(),
		Month:      int(now.Month()),
		Today:      core.DateOf(now).String(),
		Categories: categories,
		Accounts:   accounts,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) cacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateOverview(year, month int) {
	s.overviewCache.Delete(s.cacheKey(year, month))
}

func (s *Server) getOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	key := s.cacheKey(year, month)

	if data, found := s.overviewCache.Get(key); found {
		slog.DebugContext(ctx, "Overview cache hit", "year", year, "month", month)
		return data, nil
	}

	// Small timeout so a slow query cannot hang the partial.
	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	data, err := s.transactions.MonthOverview(cctx, s.userID, year, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read month overview (year=%d, month=%d): %w", year, month, err)
	}

	s.overviewCache.Set(key, data)
	slog.DebugContext(ctx, "Overview cached",
		"year", year,
		"month", month,
		"expenses_cents", data.Expenses.Cents,
		"categories", len(data.ByCategory))
	return data, nil
}

// handleMonthOverview renders the monthly overview partial.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	year, month := yearMonth(r)

	ov, err := s.getOverview(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month overview error", "error", err, "year", year, "month", month)
		_, _ = w.Write([]byte(`<section id="month-overview" class="month-overview"><div class="placeholder">Error loading overview</div></section>`))
		return
	}

	// Scale the per-category bars against the largest category.
	var maxCents int64
	for _, row := range ov.ByCategory {
		if row.Amount.Cents > maxCents {
			maxCents = row.Amount.Cents
		}
	}

	type row struct {
		Name, Amount string
		Width        int
	}
	data := struct {
		Year     int
		Month    int
		Income   string
		Expenses string
		Net      string
		Rows     []row
	}{
		Year:     ov.Year,
		Month:    ov.Month,
		Income:   formatEuros(ov.Income.Cents),
		Expenses: formatEuros(ov.Expenses.Cents),
		Net:      formatEuros(ov.Net().Cents),
	}

	for _, cat := range ov.ByCategory {
		width := 0
		if maxCents > 0 && cat.Amount.Cents > 0 {
			width = int((cat.Amount.Cents*100 + maxCents/2) / maxCents) // rounded percent
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Rows = append(data.Rows, row{Name: cat.Name, Amount: formatEuros(cat.Amount.Cents), Width: width})
	}

	if err := s.templates.ExecuteTemplate(w, "month_overview.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "month_overview.html")
		_, _ = w.Write([]byte(`<section id="month-overview" class="month-overview"><div class="placeholder">Error rendering overview</div></section>`))
	}
}
