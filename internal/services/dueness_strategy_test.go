package services

import (
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestDailyChecker(t *testing.T) {
	checker := DailyChecker{}
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lastRun time.Time
		want    bool
	}{
		{"never run", time.Time{}, true},
		{"ran yesterday", time.Date(2024, 6, 14, 23, 0, 0, 0, time.UTC), true},
		{"ran earlier today", time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, now, core.Date{}); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyChecker(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lastRun time.Time
		want    bool
	}{
		{"never run", time.Time{}, true},
		{"ran 8 days ago", now.AddDate(0, 0, -8), true},
		{"ran exactly 7 days ago", now.AddDate(0, 0, -7), true},
		{"ran 3 days ago", now.AddDate(0, 0, -3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, now, core.Date{}); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name      string
		lastRun   time.Time
		now       time.Time
		startDate core.Date
		want      bool
	}{
		{
			name:      "never run",
			now:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      true,
		},
		{
			name:      "already ran this month",
			lastRun:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      false,
		},
		{
			name:      "new month, target day reached",
			lastRun:   time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      true,
		},
		{
			name:      "new month, target day not yet reached",
			lastRun:   time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      false,
		},
		{
			name:      "target day 31 clamped in short month",
			lastRun:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 31),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, tt.now, tt.startDate); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyChecker(t *testing.T) {
	checker := YearlyChecker{}

	tests := []struct {
		name      string
		lastRun   time.Time
		now       time.Time
		startDate core.Date
		want      bool
	}{
		{
			name:      "never run",
			now:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2020, 6, 15),
			want:      true,
		},
		{
			name:      "already ran this year",
			lastRun:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2020, 6, 15),
			want:      false,
		},
		{
			name:      "new year, past target month",
			lastRun:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2020, 6, 15),
			want:      true,
		},
		{
			name:      "new year, before target month",
			lastRun:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2020, 6, 15),
			want:      false,
		},
		{
			name:      "target month, target day reached",
			lastRun:   time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2020, 6, 15),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, tt.now, tt.startDate); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, freq := range []core.RepetitionType{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetDuenessChecker(freq); err != nil {
			t.Errorf("GetDuenessChecker(%s) error: %v", freq, err)
		}
	}
	if _, err := GetDuenessChecker("fortnightly"); err == nil {
		t.Error("GetDuenessChecker(fortnightly) expected error, got nil")
	}
}
