package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// CategorySums holds one running total per expense category.
type CategorySums [core.CategoryCount]decimal.Decimal

// Add returns s with amount added to c. Unknown categories are ignored.
func (s CategorySums) Add(c core.ExpenseCategory, amount decimal.Decimal) CategorySums {
	if !c.Valid() {
		return s
	}
	s[c] = s[c].Add(amount)
	return s
}

// Get returns the total of c, zero for unknown categories.
func (s CategorySums) Get(c core.ExpenseCategory) decimal.Decimal {
	if !c.Valid() {
		return decimal.Zero
	}
	return s[c]
}

// Sum totals the given categories.
func (s CategorySums) Sum(cats ...core.ExpenseCategory) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cats {
		total = total.Add(s.Get(c))
	}
	return total
}

// Bucket accumulates the records sharing one group key. Descriptive fields
// come from the first record seen for the key.
type Bucket struct {
	Key   GroupKey
	Date  core.Date
	Site  string
	Shift string
	Role  string
	Rate  decimal.Decimal

	Count           int
	RateSum         decimal.Decimal
	LateHours       decimal.Decimal
	EarlyLeaveHours decimal.Decimal
	OvertimeHours   decimal.Decimal
	EarlyStartHours decimal.Decimal
	LaborCount      decimal.Decimal
	RateAdjustment  decimal.Decimal
	Expenses        CategorySums
}

// NewBucket starts an empty bucket described by r.
func NewBucket(key GroupKey, r core.WorkRecord) Bucket {
	return Bucket{
		Key:   key,
		Date:  r.Date,
		Site:  r.Site,
		Shift: r.Shift,
		Role:  r.Role,
		Rate:  r.Rate,
	}
}

// Fold returns b with r accumulated into it.
func Fold(b Bucket, r core.WorkRecord) Bucket {
	b.Count++
	b.RateSum = b.RateSum.Add(r.Rate)
	b.LateHours = b.LateHours.Add(r.LateHours)
	b.EarlyLeaveHours = b.EarlyLeaveHours.Add(r.EarlyLeaveHours)
	b.OvertimeHours = b.OvertimeHours.Add(r.OvertimeHours)
	b.EarlyStartHours = b.EarlyStartHours.Add(r.EarlyStartHours)
	b.LaborCount = b.LaborCount.Add(r.LaborCount)
	b.RateAdjustment = b.RateAdjustment.Add(r.RateAdjustment)
	for _, e := range r.Expenses {
		b.Expenses = b.Expenses.Add(e.Category, e.Amount)
	}
	return b
}

// ExtraHours is early-start plus overtime hours.
func (b Bucket) ExtraHours() decimal.Decimal {
	return b.EarlyStartHours.Add(b.OvertimeHours)
}
