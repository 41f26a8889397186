package projector

import (
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// SheetPaymentNotice is the payment workbook's header sheet.
const SheetPaymentNotice = "支払い通知書"

type headerCell struct {
	cell   string
	value  func(h core.Header) any
	format string
}

// headerSheet writes fixed cells from the header, once per column offset.
type headerSheet struct {
	name    string
	cells   []headerCell
	offsets []int
}

var _ Projector = headerSheet{}

func (p headerSheet) Sheet() string { return p.name }

func (p headerSheet) Project(wb sheets.Workbook, in Input) error {
	sh, _, err := wb.Sheet(p.name)
	if err != nil {
		return projectError(p.name, err)
	}
	offsets := p.offsets
	if len(offsets) == 0 {
		offsets = []int{0}
	}
	for _, off := range offsets {
		for _, hc := range p.cells {
			cell, err := sheets.ShiftColumn(hc.cell, off)
			if err != nil {
				return projectError(p.name, err)
			}
			if err := sh.SetValue(cell, hc.value(in.Header)); err != nil {
				return projectError(p.name, err)
			}
			if hc.format == "" {
				continue
			}
			if err := sh.Style(cell, sheets.Style{NumFmt: hc.format}); err != nil {
				return projectError(p.name, err)
			}
		}
	}
	return nil
}

func text(get func(core.Header) string) func(core.Header) any {
	return func(h core.Header) any { return get(h) }
}

// dateOrText writes a parsed date, or the raw text when it is not one.
func dateOrText(get func(core.Header) string) func(core.Header) any {
	return func(h core.Header) any {
		s := strings.TrimSpace(get(h))
		if d, err := core.ParseDate(s); err == nil {
			return d
		}
		return s
	}
}

// NewInvoiceHeader fills the addressee, serial number and payment terms of
// the invoice sheet.
func NewInvoiceHeader() Projector {
	return headerSheet{
		name: SheetInvoice,
		cells: []headerCell{
			{cell: "C2", value: text(func(h core.Header) string { return h.Customer })},
			{cell: "C5", value: text(func(h core.Header) string { return h.PostalCode })},
			{cell: "C6", value: text(func(h core.Header) string { return h.Address })},
			{cell: "C7", value: text(func(h core.Header) string { return h.Building })},
			{cell: "C8", value: text(func(h core.Header) string { return h.Tel })},
			{cell: "C9", value: text(func(h core.Header) string { return h.Fax })},
			{cell: "I3", value: text(func(h core.Header) string { return h.ClaimDate })},
			{cell: "I2", value: text(func(h core.Header) string { return h.SerialNumber })},
			{cell: "J40", value: func(h core.Header) any { return core.Number(h.PaymentCycle) }},
			{cell: "I40", value: text(func(h core.Header) string { return h.ClosingDate })},
			{cell: "H40", value: text(func(h core.Header) string { return h.EndDate })},
			{cell: "C41", value: dateOrText(func(h core.Header) string { return h.PaymentDeadline }), format: sheets.FormatEraDate},
		},
	}
}

// NewPaymentHeader fills the worker address and bank account block. The
// sheet carries the block three times: payment notice, invoice and offset
// statement, 12 columns apart.
func NewPaymentHeader() Projector {
	return headerSheet{
		name: SheetPaymentNotice,
		cells: []headerCell{
			{cell: "C2", value: text(func(h core.Header) string { return h.PersonName })},
			{cell: "C5", value: text(func(h core.Header) string { return h.WorkerPostalCode })},
			{cell: "C6", value: text(func(h core.Header) string { return h.WorkerAddress })},
			{cell: "C7", value: text(func(h core.Header) string { return h.WorkerBuilding })},
			{cell: "C8", value: text(func(h core.Header) string { return h.WorkerTel })},
			{cell: "C40", value: text(func(h core.Header) string { return h.BankName })},
			{cell: "C41", value: text(func(h core.Header) string { return h.BranchName })},
			{cell: "C42", value: text(func(h core.Header) string { return h.AccountNumber })},
			{cell: "C43", value: text(func(h core.Header) string { return h.AccountName })},
			{cell: "E41", value: text(func(h core.Header) string { return h.BranchCode })},
			{cell: "E42", value: text(func(h core.Header) string { return h.AccountType })},
		},
		offsets: []int{0, 12, 24},
	}
}
