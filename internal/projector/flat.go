package projector

import (
	"github.com/shopspring/decimal"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// field is one column of a flat dump. e is nil on the row of a record
// without expenses. A field with neither value nor formula is a gap.
type field struct {
	title   string
	value   func(r core.WorkRecord, e *core.ExpenseEntry) any
	formula string
	numFmt  string
}

// flatSheet appends rows after the last used row: one per record, or one
// per expense entry when perExpense is set.
type flatSheet struct {
	name       string
	perExpense bool
	fields     []field
}

var _ Projector = flatSheet{}

func (f flatSheet) Sheet() string { return f.name }

func (f flatSheet) Project(wb sheets.Workbook, in Input) error {
	sh, created, err := wb.Sheet(f.name)
	if err != nil {
		return projectError(f.name, err)
	}
	if created {
		titles := make([]string, len(f.fields))
		for i, fd := range f.fields {
			titles[i] = fd.title
		}
		if err := writeTitles(sh, titles, nil); err != nil {
			return projectError(f.name, err)
		}
	}
	row, err := sh.NextRow()
	if err != nil {
		return projectError(f.name, err)
	}
	for r := range in.Records.All() {
		if !f.perExpense || len(r.Expenses) == 0 {
			if err := f.writeRow(sh, row, r, nil); err != nil {
				return projectError(f.name, err)
			}
			row++
			continue
		}
		for i := range r.Expenses {
			if err := f.writeRow(sh, row, r, &r.Expenses[i]); err != nil {
				return projectError(f.name, err)
			}
			row++
		}
	}
	return nil
}

func (f flatSheet) writeRow(sh sheets.Sheet, row int, r core.WorkRecord, e *core.ExpenseEntry) error {
	for i, fd := range f.fields {
		cell := sheets.Cell(i+1, row)
		if fd.formula != "" {
			if err := sh.SetFormula(cell, rowFormula(fd.formula, row)); err != nil {
				return err
			}
			continue
		}
		if fd.value == nil {
			continue
		}
		if err := sh.SetValue(cell, fd.value(r, e)); err != nil {
			return err
		}
		if fd.numFmt != "" {
			if err := sh.Style(cell, sheets.Style{NumFmt: fd.numFmt}); err != nil {
				return err
			}
		}
	}
	return nil
}

func recordField(title string, get func(core.WorkRecord) any) field {
	return field{title: title, value: func(r core.WorkRecord, _ *core.ExpenseEntry) any { return get(r) }}
}

// dateField writes the work date as a date serial with a full date format.
func dateField(title string) field {
	fd := recordField(title, func(r core.WorkRecord) any { return r.Date })
	fd.numFmt = sheets.FormatDate
	return fd
}

func expenseField(title string, get func(core.ExpenseEntry) any, blank any) field {
	return field{title: title, value: func(_ core.WorkRecord, e *core.ExpenseEntry) any {
		if e == nil {
			return blank
		}
		return get(*e)
	}}
}

// recordFields are the leading columns shared by every dump: identity,
// contact, attendance, rate, hours, labor count and transaction type.
func recordFields(fm core.FieldMap) []field {
	return []field{
		recordField(fm.RecordNumber, func(r core.WorkRecord) any { return r.RecordNumber }),
		dateField(fm.Date),
		recordField(fm.Site, func(r core.WorkRecord) any { return r.Site }),
		recordField(fm.Customer, func(r core.WorkRecord) any { return r.Customer }),
		recordField(fm.Role, func(r core.WorkRecord) any { return r.Role }),
		recordField(fm.PostalCode, func(r core.WorkRecord) any { return r.PostalCode }),
		recordField(fm.Address, func(r core.WorkRecord) any { return r.Address }),
		recordField(fm.Tel, func(r core.WorkRecord) any { return r.Tel }),
		recordField(fm.Attendance, func(r core.WorkRecord) any { return r.Attendance }),
		recordField(fm.Rate, func(r core.WorkRecord) any { return r.Rate }),
		recordField(fm.LateHours, func(r core.WorkRecord) any { return r.LateHours }),
		recordField(fm.EarlyLeaveHours, func(r core.WorkRecord) any { return r.EarlyLeaveHours }),
		recordField(fm.OvertimeHours, func(r core.WorkRecord) any { return r.OvertimeHours }),
		recordField(fm.EarlyStartHours, func(r core.WorkRecord) any { return r.EarlyStartHours }),
		recordField(fm.LaborCount, func(r core.WorkRecord) any { return r.LaborCount }),
		recordField(fm.TransactionType, func(r core.WorkRecord) any { return r.TransactionType }),
	}
}

func shiftField(fm core.FieldMap) field {
	return recordField(fm.Shift, func(r core.WorkRecord) any { return r.Shift })
}

func adjustmentField(fm core.FieldMap) field {
	return recordField(fm.RateAdjustment, func(r core.WorkRecord) any { return r.RateAdjustment })
}

// NewInvoiceExpenseDump writes one row per expense entry with its label,
// unit price and amount (columns Q to S).
func NewInvoiceExpenseDump(fm core.FieldMap) Projector {
	fields := recordFields(fm)
	fields = append(fields,
		expenseField(fm.ExpenseCategory, func(e core.ExpenseEntry) any { return e.Label }, ""),
		expenseField("請求経費", func(e core.ExpenseEntry) any { return e.UnitPrice }, decimal.Zero),
		expenseField(fm.ExpenseAmount, func(e core.ExpenseEntry) any { return e.Amount }, decimal.Zero),
		shiftField(fm),
		adjustmentField(fm),
	)
	return flatSheet{name: SheetExpenseDump, perExpense: true, fields: fields}
}

// NewPaymentExpenseDump writes one row per expense entry with the worker
// in column U and the premium pay of early-start and overtime hours in
// column W. Column V stays empty; payment templates read W.
func NewPaymentExpenseDump(fm core.FieldMap) Projector {
	fields := recordFields(fm)
	fields = append(fields,
		expenseField(fm.ExpenseCategory, func(e core.ExpenseEntry) any { return e.Label }, ""),
		expenseField(fm.ExpenseUnitPrice, func(e core.ExpenseEntry) any { return e.UnitPrice }, decimal.Zero),
		shiftField(fm),
		adjustmentField(fm),
		recordField(fm.Party, func(r core.WorkRecord) any { return r.Party }),
		field{},
		field{title: "計算式結果", formula: "J{r}/8*(M{r}+N{r})*" + PremiumRate},
	)
	return flatSheet{name: SheetExpenseDump, perExpense: true, fields: fields}
}

// NewRecordDump writes one row per record followed by the premium pay of
// overtime (S) and early-start (T) hours. The attendance sheet counts
// days from its date, site and role columns (B, C, E).
func NewRecordDump(fm core.FieldMap) Projector {
	fields := recordFields(fm)
	fields = append(fields,
		shiftField(fm),
		adjustmentField(fm),
		field{formula: "J{r}/8*M{r}*" + PremiumRate},
		field{formula: "J{r}/8*N{r}*" + PremiumRate},
	)
	return flatSheet{name: SheetRecordDump, fields: fields}
}
