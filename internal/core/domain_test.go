package core

import (
	"errors"
	"testing"
	"time"
)

func catID(id int64) *int64 { return &id }

func TestTransaction_Qualifies(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{
			name: "expense with category qualifies",
			tx:   Transaction{Type: Expense, CategoryID: catID(3)},
			want: true,
		},
		{
			name: "expense without category does not qualify",
			tx:   Transaction{Type: Expense},
			want: false,
		},
		{
			name: "income with category does not qualify",
			tx:   Transaction{Type: Income, CategoryID: catID(3)},
			want: false,
		},
		{
			name: "income without category does not qualify",
			tx:   Transaction{Type: Income},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Qualifies(); got != tt.want {
				t.Errorf("Qualifies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		UserID:      1,
		AccountID:   1,
		Type:        Expense,
		Amount:      Money{Cents: 5000},
		Date:        NewDate(2024, 1, 15),
		Description: "groceries",
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"missing user", func(tx *Transaction) { tx.UserID = 0 }, ErrMissingUser},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudget_Validate(t *testing.T) {
	valid := Budget{
		UserID:      1,
		CategoryID:  2,
		LimitAmount: Money{Cents: 30000},
		StartDate:   NewDate(2024, 1, 1),
		EndDate:     NewDate(2024, 1, 31),
		Active:      true,
	}

	tests := []struct {
		name    string
		mutate  func(*Budget)
		wantErr error
	}{
		{"valid", func(*Budget) {}, nil},
		{"missing user", func(b *Budget) { b.UserID = 0 }, ErrMissingUser},
		{"missing category", func(b *Budget) { b.CategoryID = 0 }, ErrMissingCategory},
		{"zero limit", func(b *Budget) { b.LimitAmount = Money{} }, ErrInvalidAmount},
		{"inverted window", func(b *Budget) { b.EndDate = NewDate(2023, 12, 31) }, ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudget_Contains(t *testing.T) {
	b := Budget{
		StartDate: NewDate(2024, 1, 1),
		EndDate:   NewDate(2024, 1, 31),
	}

	tests := []struct {
		name string
		date Date
		want bool
	}{
		{"before window", NewDate(2023, 12, 31), false},
		{"first day inclusive", NewDate(2024, 1, 1), true},
		{"middle", NewDate(2024, 1, 15), true},
		{"last day inclusive", NewDate(2024, 1, 31), true},
		{"after window", NewDate(2024, 2, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Contains(tt.date); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestDateOf(t *testing.T) {
	instant := time.Date(2024, 6, 15, 23, 45, 12, 0, time.UTC)
	d := DateOf(instant)
	if d.String() != "2024-06-15" {
		t.Errorf("DateOf() = %s, want 2024-06-15", d)
	}
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Errorf("DateOf() should normalize to midnight, got %v", d.Time)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("ParseDate() unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("ParseDate() = %s, want 2024-02-29", d)
	}

	if _, err := ParseDate("29/02/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ParseDate() with bad format = %v, want ErrInvalidDate", err)
	}
}

func TestRecurringTransaction_Validate(t *testing.T) {
	valid := RecurringTransaction{
		UserID:      1,
		AccountID:   1,
		Type:        Expense,
		Amount:      Money{Cents: 1200},
		Description: "streaming subscription",
		Every:       Monthly,
		StartDate:   NewDate(2024, 1, 5),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	bad := valid
	bad.Every = "fortnightly"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidRepetition) {
		t.Errorf("Validate() = %v, want ErrInvalidRepetition", err)
	}

	bad = valid
	bad.EndDate = NewDate(2023, 12, 1)
	if err := bad.Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Validate() = %v, want ErrInvalidWindow", err)
	}
}

func TestAsset_Validate(t *testing.T) {
	valid := Asset{Symbol: "VWCE", Name: "Vanguard FTSE All-World", Kind: AssetFund, Currency: "EUR"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	bad := valid
	bad.Kind = "bond"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAssetKind) {
		t.Errorf("Validate() = %v, want ErrInvalidAssetKind", err)
	}
}
