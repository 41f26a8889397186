package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/projector"
)

// Kind names a report family.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindPayment Kind = "payment"
)

// ParseKind accepts the family key or the header record's out_category
// label. Labels match by NFKC prefix, so 請求書・常用 is an invoice.
func ParseKind(s string) (Kind, error) {
	label := strings.TrimSpace(norm.NFKC.String(s))
	switch {
	case label == "invoice", strings.HasPrefix(label, "請求書"):
		return KindInvoice, nil
	case label == "payment", strings.HasPrefix(label, "支払い通知書"):
		return KindPayment, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", s)
	}
}

func (k Kind) String() string { return string(k) }

// Apps locates records and templates in the record store.
type Apps struct {
	Records         int
	Templates       int
	InvoiceTemplate string
	PaymentTemplate string
}

// DefaultApps are the app and record numbers of the production kintone.
func DefaultApps() Apps {
	return Apps{Records: 24, Templates: 31, InvoiceTemplate: "6", PaymentTemplate: "7"}
}

// Family is everything that differs between invoice and payment reports.
type Family struct {
	Kind           Kind
	Title          string
	Fields         core.FieldMap
	TemplateRecord string
	PartyLabel     string // party field as named in validation hints
	party          func(core.Header) string
	projectors     []projector.Projector
}

// commonFields are shared by both families. Expense unit prices live in
// the same sub-table column for both.
var commonFields = core.FieldMap{
	RecordNumber:     "レコード番号",
	Date:             "作業日",
	Site:             "現場名",
	Customer:         "顧客名",
	PostalCode:       "郵便番号",
	Address:          "住所",
	Tel:              "tel",
	Attendance:       "勤怠",
	TransactionType:  "取引種別",
	Shift:            "日勤_夜勤",
	ExpenseUnitPrice: "単価_実績_支払",
	ExpenseAmount:    "金額_経費",
}

// InvoiceFields reads records for invoices.
func InvoiceFields() core.FieldMap {
	fm := commonFields
	fm.Party = "顧客名"
	fm.Role = "職種_実績_請求"
	fm.Rate = "単価"
	fm.LateHours = "遅刻時間_請求"
	fm.EarlyLeaveHours = "早退時間_請求"
	fm.OvertimeHours = "残業時間_請求"
	fm.EarlyStartHours = "早出時間_請求"
	fm.LaborCount = "人工数_請求"
	fm.RateAdjustment = "単価調整_請求"
	fm.ExpenseTable = "経費_請求"
	fm.ExpenseCategory = "経費種類"
	return fm
}

// PaymentFields reads records for payment notices.
func PaymentFields() core.FieldMap {
	fm := commonFields
	fm.Party = "作業員検索"
	fm.Role = "職種_実績_支払"
	fm.Rate = "単価_実績_支払"
	fm.LateHours = "遅刻時間_支払い"
	fm.EarlyLeaveHours = "早退時間_支払い"
	fm.OvertimeHours = "残業時間_支払い"
	fm.EarlyStartHours = "早出時間_支払い"
	fm.LaborCount = "人工数_支払"
	fm.RateAdjustment = "単価調整_支払_"
	fm.ExpenseTable = "経費_支払い"
	fm.ExpenseCategory = "経費種類_支払い"
	return fm
}

// Families returns the report families for the given app layout.
func Families(apps Apps) map[Kind]Family {
	invoice := InvoiceFields()
	payment := PaymentFields()
	return map[Kind]Family{
		KindInvoice: {
			Kind:           KindInvoice,
			Title:          "請求書",
			Fields:         invoice,
			TemplateRecord: apps.InvoiceTemplate,
			PartyLabel:     "顧客名",
			party:          func(h core.Header) string { return h.Customer },
			projectors: []projector.Projector{
				projector.NewInvoiceExpenseDump(invoice),
				projector.NewRecordDump(invoice),
				projector.NewInvoiceHeader(),
				projector.NewLineItemSheet(invoice),
				projector.NewSiteSheet(invoice),
				projector.NewAttendanceSheet(invoice),
			},
		},
		KindPayment: {
			Kind:           KindPayment,
			Title:          "支払い通知書",
			Fields:         payment,
			TemplateRecord: apps.PaymentTemplate,
			PartyLabel:     "作業員",
			party:          func(h core.Header) string { return h.Person },
			projectors: []projector.Projector{
				projector.NewPaymentExpenseDump(payment),
				projector.NewPaymentHeader(),
			},
		},
	}
}

// Party returns the identity the report is issued for.
func (f Family) Party(h core.Header) string {
	return strings.TrimSpace(f.party(h))
}

// Projectors returns the sheet projectors in the order they run.
func (f Family) Projectors() []projector.Projector {
	return append([]projector.Projector(nil), f.projectors...)
}

// Query builds the record query for a header.
func (f Family) Query(app int, h core.Header) (core.Query, error) {
	from, to, err := h.Period()
	if err != nil {
		return core.Query{}, err
	}
	return core.Query{
		App:              app,
		PartyField:       f.Fields.Party,
		Party:            f.Party(h),
		DateField:        f.Fields.Date,
		From:             from,
		To:               to,
		LaborField:       f.Fields.LaborCount,
		TransactionField: f.Fields.TransactionType,
		Filter:           core.ParseTransactionFilter(h.Category),
		Fields:           f.Fields.Codes(),
	}, nil
}

// Filename is the download name, e.g. （請求書）株式会社テスト_2024-04-01.xlsx.
func (f Family) Filename(h core.Header) string {
	name := h.Customer
	if name == "" {
		name = h.PersonName
	}
	return fmt.Sprintf("（%s）%s_%s.xlsx", f.Title, sanitize(name), sanitize(h.StartDate))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
