// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring transaction dueness
// checking. Each frequency type (daily, weekly, monthly, yearly) has its own
// strategy that encapsulates the logic for determining if a template is due.

package services

import (
	"fmt"
	"time"

	"bilancio/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring
// transaction is due. Each implementation encapsulates the algorithm for a
// specific frequency type.
type DuenessChecker interface {
	// IsDue returns true if the recurring transaction should be materialized
	// based on the last run time and the current time.
	IsDue(lastRun, now time.Time, startDate core.Date) bool
}

// DailyChecker implements DuenessChecker for daily recurring transactions.
type DailyChecker struct{}

// IsDue returns true if the last run was before today.
func (DailyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker implements DuenessChecker for weekly recurring transactions.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since the last run.
func (WeeklyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	daysSince := now.Sub(lastRun).Hours() / 24
	return daysSince >= 7
}

// MonthlyChecker implements DuenessChecker for monthly recurring transactions.
type MonthlyChecker struct{}

// IsDue returns true if we're in a new month and have reached the target day.
func (MonthlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}

	// Already processed this month?
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}

	// Clamp the target day when it doesn't exist in this month (e.g. Feb 31)
	targetDay := startDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}

	return now.Day() >= targetDay
}

// YearlyChecker implements DuenessChecker for yearly recurring transactions.
type YearlyChecker struct{}

// IsDue returns true if we're in a new year and have reached the target month
// and day.
func (YearlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}

	// Already processed this year?
	if lastRun.Year() == now.Year() {
		return false
	}

	targetMonth := startDate.Month()
	targetDay := startDate.Day()

	if now.Month() < targetMonth {
		return false
	}

	if now.Month() == targetMonth {
		lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if targetDay > lastDayOfMonth {
			targetDay = lastDayOfMonth
		}
		return now.Day() >= targetDay
	}

	// We're past the target month
	return true
}

// duenessStrategies maps repetition types to their corresponding checkers.
var duenessStrategies = map[core.RepetitionType]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the appropriate dueness checker for a repetition
// type. Returns an error if the repetition type is not supported.
func GetDuenessChecker(frequency core.RepetitionType) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
