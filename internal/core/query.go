package core

import (
	"fmt"
	"strings"
)

// Query selects the work records of one report: one party, an inclusive
// date range, a non-zero labor count and optionally one transaction type.
type Query struct {
	App              int
	PartyField       string
	Party            string
	DateField        string
	From             Date
	To               Date
	LaborField       string
	TransactionField string
	Filter           TransactionFilter
	Fields           []string
}

// Condition renders the query in the kintone query language.
func (q Query) Condition() string {
	parts := []string{
		fmt.Sprintf("%s = %s", q.PartyField, quote(q.Party)),
		fmt.Sprintf("%s >= %s", q.DateField, quote(q.From.String())),
		fmt.Sprintf("%s <= %s", q.DateField, quote(q.To.String())),
		fmt.Sprintf("%s != 0", q.LaborField),
	}
	if q.Filter.Restricts() {
		parts = append(parts, fmt.Sprintf("%s in (%s)", q.TransactionField, quote(string(q.Filter))))
	}
	return strings.Join(parts, " and ")
}

// Matches evaluates the query against a raw record, for stores that
// cannot run the condition themselves.
func (q Query) Matches(raw RawRecord) bool {
	if strings.TrimSpace(raw.Value(q.PartyField)) != q.Party {
		return false
	}
	d, err := ParseDate(raw.Value(q.DateField))
	if err != nil {
		return false
	}
	if d.Before(q.From.Time) || d.After(q.To.Time) {
		return false
	}
	if Number(raw.Value(q.LaborField)).IsZero() {
		return false
	}
	if q.Filter.Restricts() && ParseTransactionFilter(raw.Value(q.TransactionField)) != q.Filter {
		return false
	}
	return true
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
