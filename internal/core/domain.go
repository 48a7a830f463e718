package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Daily   RepetitionType = "daily"
	Weekly  RepetitionType = "weekly"
	Monthly RepetitionType = "monthly"
	Yearly  RepetitionType = "yearly"
)

const (
	AssetStock  AssetKind = "stock"
	AssetCrypto AssetKind = "crypto"
	AssetFund   AssetKind = "fund"
)

type (
	TransactionType string

	RepetitionType string

	AssetKind string

	// Date is a calendar date normalized to UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  *int64 // nil for uncategorized transactions
		Type        TransactionType
		Amount      Money
		Date        Date
		Description string
		CreatedAt   time.Time
	}

	// Budget caps spending for one (user, category) pair over an inclusive
	// date window. SpentAmount is a derived cache rebuilt from transactions;
	// it is never a source of truth.
	Budget struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		LimitAmount Money
		SpentAmount Money
		StartDate   Date
		EndDate     Date
		Active      bool
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      TransactionType
		CreatedAt time.Time
	}

	Account struct {
		ID        int64
		UserID    int64
		Name      string
		Kind      string // checking, savings, cash, card
		Currency  string
		CreatedAt time.Time
	}

	Goal struct {
		ID           int64
		UserID       int64
		Name         string
		TargetAmount Money
		SavedAmount  Money
		DueDate      Date
	}

	// RecurringTransaction is a template that materializes real transactions
	// on a schedule.
	RecurringTransaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  *int64
		Type        TransactionType
		Amount      Money
		Description string
		Every       RepetitionType
		StartDate   Date
		EndDate     Date // zero value means open-ended
		LastRunAt   time.Time
	}

	// Asset is a tradeable instrument the application knows how to track.
	Asset struct {
		ID       int64
		Symbol   string
		Name     string
		Kind     AssetKind
		Currency string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidWindow     = errors.New("end date before start date")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyDescription  = errors.New("empty description")
	ErrMissingUser       = errors.New("missing user reference")
	ErrMissingCategory   = errors.New("missing category reference")
	ErrInvalidRepetition = errors.New("invalid repetition type")
	ErrEmptySymbol       = errors.New("empty asset symbol")
	ErrInvalidAssetKind  = errors.New("invalid asset kind")
)

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO date string (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String returns the ISO form used for storage and display.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Qualifies reports whether the transaction contributes to budgets: only
// expenses with a category ever do.
func (t Transaction) Qualifies() bool {
	return t.Type == Expense && t.CategoryID != nil
}

func (t Transaction) Validate() error {
	if t.UserID <= 0 {
		return ErrMissingUser
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Contains reports whether a date falls inside the budget window, both ends
// inclusive.
func (b Budget) Contains(d Date) bool {
	return !d.Before(b.StartDate) && !d.After(b.EndDate)
}

func (b Budget) Validate() error {
	if b.UserID <= 0 {
		return ErrMissingUser
	}
	if b.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if err := b.LimitAmount.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

func (c Category) Validate() error {
	if c.UserID <= 0 {
		return ErrMissingUser
	}
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	return c.Type.Validate()
}

func (a Account) Validate() error {
	if a.UserID <= 0 {
		return ErrMissingUser
	}
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (g Goal) Validate() error {
	if g.UserID <= 0 {
		return ErrMissingUser
	}
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.SavedAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r RepetitionType) Validate() error {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidRepetition
}

func (rt RecurringTransaction) Validate() error {
	if rt.UserID <= 0 {
		return ErrMissingUser
	}
	if err := rt.Type.Validate(); err != nil {
		return err
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if err := rt.StartDate.Validate(); err != nil {
		return err
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return ErrInvalidWindow
	}
	if err := rt.Every.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	return nil
}

func (a Asset) Validate() error {
	if len(strings.TrimSpace(a.Symbol)) == 0 {
		return ErrEmptySymbol
	}
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	switch a.Kind {
	case AssetStock, AssetCrypto, AssetFund:
		return nil
	}
	return ErrInvalidAssetKind
}
