package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ExpenseCategory is one of the fixed expense buckets of a report.
type ExpenseCategory int

const (
	Transit ExpenseCategory = iota
	Flight
	Taxi
	Vehicle
	Supplies
	ToolCarryIn
	Lease
	Other

	UnknownCategory ExpenseCategory = -1
)

// CategoryCount is the number of known expense categories.
const CategoryCount = 8

var (
	categoryKeys = [CategoryCount]string{
		"transit", "flight", "taxi", "vehicle",
		"supplies", "tool-carry-in", "lease", "other",
	}
	categoryLabels = [CategoryCount]string{
		"電車・バス", "飛行機", "タクシー", "車両",
		"消耗品", "道具持込", "リース代", "その他",
	}
)

// Categories lists the known categories in column order.
func Categories() []ExpenseCategory {
	out := make([]ExpenseCategory, CategoryCount)
	for i := range out {
		out[i] = ExpenseCategory(i)
	}
	return out
}

// ParseExpenseCategory matches a category by its Japanese label or its
// key. Labels are NFKC-normalized first, so half-width variants match.
func ParseExpenseCategory(s string) ExpenseCategory {
	s = normalizeLabel(s)
	if s == "" {
		return UnknownCategory
	}
	for i := range CategoryCount {
		if s == normalizeLabel(categoryLabels[i]) || s == categoryKeys[i] {
			return ExpenseCategory(i)
		}
	}
	return UnknownCategory
}

func (c ExpenseCategory) Valid() bool {
	return c >= 0 && int(c) < CategoryCount
}

// Label returns the label used in sheet headers.
func (c ExpenseCategory) Label() string {
	if !c.Valid() {
		return ""
	}
	return categoryLabels[c]
}

func (c ExpenseCategory) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryKeys[c]
}

// TransactionFilter restricts a report query to one transaction type.
type TransactionFilter string

const (
	FilterRegular       TransactionFilter = "常用"
	FilterContractOwn   TransactionFilter = "請負(自)"
	FilterContractOther TransactionFilter = "請負(他)"
	FilterAll           TransactionFilter = "すべて"
)

// ParseTransactionFilter maps a query category to a filter. Unknown and
// empty values select every transaction type.
func ParseTransactionFilter(s string) TransactionFilter {
	switch f := TransactionFilter(normalizeLabel(s)); f {
	case FilterRegular, FilterContractOwn, FilterContractOther:
		return f
	default:
		return FilterAll
	}
}

// Restricts reports whether the filter adds a transaction-type condition.
func (f TransactionFilter) Restricts() bool {
	return f != "" && f != FilterAll
}

func normalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
