package core

import (
	"errors"
	"strings"
)

var ErrFieldMissing = errors.New("field missing")

// RawRecord is a record as returned by a record store: flat field values
// plus sub-tables of rows.
type RawRecord struct {
	Fields map[string]string              `json:"fields"`
	Tables map[string][]map[string]string `json:"tables,omitempty"`
}

// Get returns the value of a field and whether the record has it.
func (r RawRecord) Get(code string) (string, bool) {
	v, ok := r.Fields[code]
	return v, ok
}

// Value returns the value of a field, or "" when absent.
func (r RawRecord) Value(code string) string {
	return r.Fields[code]
}

// FieldMap names the field codes one report family reads a work record
// from. Invoice and payment reports differ only in this table.
type FieldMap struct {
	RecordNumber    string
	Date            string
	Site            string
	Customer        string
	Party           string
	Role            string
	PostalCode      string
	Address         string
	Tel             string
	Attendance      string
	TransactionType string
	Shift           string

	Rate            string
	LateHours       string
	EarlyLeaveHours string
	OvertimeHours   string
	EarlyStartHours string
	LaborCount      string
	RateAdjustment  string

	ExpenseTable     string
	ExpenseCategory  string
	ExpenseUnitPrice string
	ExpenseAmount    string
}

// Codes lists the top-level field codes a fetch must return.
func (m FieldMap) Codes() []string {
	codes := []string{
		m.RecordNumber, m.Date, m.Site, m.Customer, m.Party, m.Role,
		m.PostalCode, m.Address, m.Tel, m.Attendance, m.TransactionType,
		m.Shift, m.Rate, m.LateHours, m.EarlyLeaveHours, m.OvertimeHours,
		m.EarlyStartHours, m.LaborCount, m.RateAdjustment, m.ExpenseTable,
	}
	out := codes[:0]
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Decode builds a WorkRecord. Identity fields (record number, date, site,
// customer, party, role) must be present; the other descriptive fields
// default to "" and every numeric field defaults to zero.
func (m FieldMap) Decode(raw RawRecord) (WorkRecord, error) {
	id := raw.Value(m.RecordNumber)
	required := func(code string) (string, error) {
		if code == "" {
			return "", nil
		}
		v, ok := raw.Get(code)
		if !ok {
			return "", &FieldError{Record: id, Field: code, Err: ErrFieldMissing}
		}
		return strings.TrimSpace(v), nil
	}

	var (
		rec WorkRecord
		err error
	)
	if rec.RecordNumber, err = required(m.RecordNumber); err != nil {
		return WorkRecord{}, err
	}
	dateValue, err := required(m.Date)
	if err != nil {
		return WorkRecord{}, err
	}
	if m.Date != "" {
		if dateValue != "" {
			rec.Date, err = ParseDate(dateValue)
		}
		if err == nil {
			err = rec.Date.Validate()
		}
		if err != nil {
			return WorkRecord{}, &FieldError{Record: id, Field: m.Date, Err: err}
		}
	}
	for _, f := range []struct {
		code string
		dst  *string
	}{
		{m.Site, &rec.Site},
		{m.Customer, &rec.Customer},
		{m.Party, &rec.Party},
		{m.Role, &rec.Role},
	} {
		if *f.dst, err = required(f.code); err != nil {
			return WorkRecord{}, err
		}
	}

	rec.PostalCode = raw.Value(m.PostalCode)
	rec.Address = raw.Value(m.Address)
	rec.Tel = raw.Value(m.Tel)
	rec.Attendance = raw.Value(m.Attendance)
	rec.TransactionType = raw.Value(m.TransactionType)
	rec.Shift = raw.Value(m.Shift)

	rec.Rate = Number(raw.Value(m.Rate))
	rec.LateHours = Number(raw.Value(m.LateHours))
	rec.EarlyLeaveHours = Number(raw.Value(m.EarlyLeaveHours))
	rec.OvertimeHours = Number(raw.Value(m.OvertimeHours))
	rec.EarlyStartHours = Number(raw.Value(m.EarlyStartHours))
	rec.LaborCount = Number(raw.Value(m.LaborCount))
	rec.RateAdjustment = Number(raw.Value(m.RateAdjustment))

	rows := raw.Tables[m.ExpenseTable]
	if len(rows) > 0 {
		rec.Expenses = make([]ExpenseEntry, 0, len(rows))
	}
	for _, row := range rows {
		label := row[m.ExpenseCategory]
		rec.Expenses = append(rec.Expenses, ExpenseEntry{
			Category:  ParseExpenseCategory(label),
			Label:     label,
			UnitPrice: Number(row[m.ExpenseUnitPrice]),
			Amount:    Number(row[m.ExpenseAmount]),
		})
	}
	return rec, nil
}

// DecodeAll decodes every record, stopping at the first failure.
func (m FieldMap) DecodeAll(raws []RawRecord) ([]WorkRecord, error) {
	out := make([]WorkRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := m.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
