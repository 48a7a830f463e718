package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expenses   Money
	ByCategory []CategoryAmount
}

// Net returns income minus expenses for the month.
func (o MonthOverview) Net() Money {
	return Money{Cents: o.Income.Cents - o.Expenses.Cents}
}
