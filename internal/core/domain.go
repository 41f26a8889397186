package core

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Date struct {
		time.Time
	}

	// ExpenseEntry is one row of a work record's expense sub-table.
	ExpenseEntry struct {
		Category  ExpenseCategory
		Label     string // label as entered, kept for the flat dump
		UnitPrice decimal.Decimal
		Amount    decimal.Decimal
	}

	// WorkRecord is the typed view of one record of the work-record app.
	// Descriptive fields are strings as stored remotely; every numeric
	// field is zero when absent.
	WorkRecord struct {
		RecordNumber    string
		Date            Date
		Site            string
		Customer        string
		Party           string // identity the report is issued for
		Role            string
		PostalCode      string
		Address         string
		Tel             string
		Attendance      string
		TransactionType string
		Shift           string

		Rate            decimal.Decimal
		LateHours       decimal.Decimal
		EarlyLeaveHours decimal.Decimal
		OvertimeHours   decimal.Decimal
		EarlyStartHours decimal.Decimal
		LaborCount      decimal.Decimal
		RateAdjustment  decimal.Decimal

		Expenses []ExpenseEntry
	}

	// RecordView is a read-only sequence of work records shared by all
	// projectors of one report.
	RecordView struct {
		records []WorkRecord
	}
)

var ErrInvalidDate = errors.New("invalid date")

const dateLayout = "2006-01-02"

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts 2006-01-02 and 2006/01/02. Any time part of an
// RFC 3339 timestamp is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	s = strings.ReplaceAll(s, "/", "-")
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as 2006-01-02, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// NewRecordView copies records once; the view never hands out its
// backing slice.
func NewRecordView(records []WorkRecord) RecordView {
	cp := slices.Clone(records)
	for i := range cp {
		cp[i].Expenses = slices.Clone(cp[i].Expenses)
	}
	return RecordView{records: cp}
}

func (v RecordView) Len() int {
	return len(v.records)
}

// All yields the records in fetch order.
func (v RecordView) All() iter.Seq[WorkRecord] {
	return func(yield func(WorkRecord) bool) {
		for _, r := range v.records {
			r.Expenses = slices.Clone(r.Expenses)
			if !yield(r) {
				return
			}
		}
	}
}
