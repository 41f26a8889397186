package core

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Header is the record a report is issued from: the party, the period and
// the fixed cells of the invoice or payment notice.
type Header struct {
	Customer  string `json:"customer"`
	Person    string `json:"person"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Category  string `json:"query_category"`

	// invoice
	PostalCode      string `json:"postal_code"`
	Address         string `json:"address"`
	Building        string `json:"building"`
	Tel             string `json:"tel"`
	Fax             string `json:"fax"`
	ClaimDate       string `json:"claim_date"`
	SerialNumber    string `json:"serial_number"`
	PaymentCycle    string `json:"payment_cycle" validate:"omitempty,numeric"`
	ClosingDate     string `json:"closing_date"`
	PaymentDeadline string `json:"payment_deadline" validate:"omitempty,datetime=2006-01-02"`

	// payment
	PersonName       string `json:"person_name"`
	CompanyName      string `json:"company_name"`
	BankCode         string `json:"bank_code"`
	BankName         string `json:"bank_name"`
	AccountNumber    string `json:"account_number"`
	AccountName      string `json:"account_name"`
	BranchName       string `json:"branch_name"`
	BranchCode       string `json:"branch_code"`
	AccountType      string `json:"account_type"`
	WorkerTel        string `json:"worker_tel"`
	WorkerPostalCode string `json:"worker_postal_code"`
	WorkerAddress    string `json:"worker_address"`
	WorkerBuilding   string `json:"worker_building"`

	// OutCategory names the report the header record asks for.
	OutCategory string `json:"out_category,omitempty"`
}

// Header record field codes.
var headerFields = []struct {
	code  string
	field func(*Header) *string
}{
	{"顧客名", func(h *Header) *string { return &h.Customer }},
	{"person", func(h *Header) *string { return &h.Person }},
	{"開始日", func(h *Header) *string { return &h.StartDate }},
	{"終了日", func(h *Header) *string { return &h.EndDate }},
	{"query_category", func(h *Header) *string { return &h.Category }},
	{"郵便番号", func(h *Header) *string { return &h.PostalCode }},
	{"住所", func(h *Header) *string { return &h.Address }},
	{"ビル名", func(h *Header) *string { return &h.Building }},
	{"tel", func(h *Header) *string { return &h.Tel }},
	{"fax", func(h *Header) *string { return &h.Fax }},
	{"請求日", func(h *Header) *string { return &h.ClaimDate }},
	{"請求管理番号", func(h *Header) *string { return &h.SerialNumber }},
	{"支払いサイクル", func(h *Header) *string { return &h.PaymentCycle }},
	{"締め日", func(h *Header) *string { return &h.ClosingDate }},
	{"支払い期限", func(h *Header) *string { return &h.PaymentDeadline }},
	{"person_name", func(h *Header) *string { return &h.PersonName }},
	{"company_name", func(h *Header) *string { return &h.CompanyName }},
	{"銀行コード", func(h *Header) *string { return &h.BankCode }},
	{"銀行名", func(h *Header) *string { return &h.BankName }},
	{"口座番号", func(h *Header) *string { return &h.AccountNumber }},
	{"口座名義", func(h *Header) *string { return &h.AccountName }},
	{"支店名", func(h *Header) *string { return &h.BranchName }},
	{"支店番号", func(h *Header) *string { return &h.BranchCode }},
	{"口座種別", func(h *Header) *string { return &h.AccountType }},
	{"固定番号_作業員", func(h *Header) *string { return &h.WorkerTel }},
	{"郵便番号_作業員", func(h *Header) *string { return &h.WorkerPostalCode }},
	{"住所_作業員", func(h *Header) *string { return &h.WorkerAddress }},
	{"建物名_作業員", func(h *Header) *string { return &h.WorkerBuilding }},
	{"out_category", func(h *Header) *string { return &h.OutCategory }},
}

// HeaderFieldCodes lists the field codes HeaderFromRaw reads.
func HeaderFieldCodes() []string {
	codes := make([]string, 0, len(headerFields))
	for _, f := range headerFields {
		codes = append(codes, f.code)
	}
	return codes
}

// HeaderFromRaw reads a header from a header-app record. Absent fields
// stay empty.
func HeaderFromRaw(raw RawRecord) Header {
	var h Header
	for _, f := range headerFields {
		if v, ok := raw.Get(f.code); ok {
			*f.field(&h) = v
		}
	}
	return h
}

var validate = validator.New()

// Validate checks the period and the typed cells. Missing or malformed
// values come back as a ValidationError naming the fields.
func (h Header) Validate() error {
	var hints []string
	if err := validate.Struct(h); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate header: %w", err)
		}
		for _, fe := range verrs {
			hints = append(hints, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	if len(hints) == 0 && h.EndDate < h.StartDate {
		hints = append(hints, "EndDate (before StartDate)")
	}
	if len(hints) > 0 {
		return &ValidationError{Message: "invalid report header", Hints: hints}
	}
	return nil
}

// Period returns the parsed start and end dates.
func (h Header) Period() (Date, Date, error) {
	from, err := ParseDate(h.StartDate)
	if err != nil {
		return Date{}, Date{}, &ValidationError{Message: "invalid report header", Hints: []string{"StartDate"}}
	}
	to, err := ParseDate(h.EndDate)
	if err != nil {
		return Date{}, Date{}, &ValidationError{Message: "invalid report header", Hints: []string{"EndDate"}}
	}
	return from, to, nil
}
