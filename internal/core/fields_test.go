package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

var testMap = FieldMap{
	RecordNumber:     "レコード番号",
	Date:             "作業日",
	Site:             "現場名",
	Customer:         "顧客名",
	Party:            "顧客名",
	Role:             "職種",
	Shift:            "日勤_夜勤",
	Rate:             "単価",
	OvertimeHours:    "残業",
	EarlyStartHours:  "早出",
	LaborCount:       "人工数",
	ExpenseTable:     "経費",
	ExpenseCategory:  "経費種類",
	ExpenseUnitPrice: "単価_経費",
	ExpenseAmount:    "金額",
}

func rawRecord() RawRecord {
	return RawRecord{
		Fields: map[string]string{
			"レコード番号": "10",
			"作業日":    "2024-04-01",
			"現場名":    "A現場",
			"顧客名":    "株式会社テスト",
			"職種":     "鳶",
			"単価":     "20000",
			"残業":     "1.5",
			"人工数":    "1",
		},
		Tables: map[string][]map[string]string{
			"経費": {
				{"経費種類": "タクシー", "単価_経費": "1200", "金額": "1200"},
				{"経費種類": "宿泊費", "金額": "9000"},
			},
		},
	}
}

func TestFieldMapDecode(t *testing.T) {
	rec, err := testMap.Decode(rawRecord())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.RecordNumber != "10" || rec.Site != "A現場" || rec.Party != "株式会社テスト" {
		t.Fatalf("identity fields not decoded: %+v", rec)
	}
	if !rec.Date.Equal(NewDate(2024, 4, 1).Time) {
		t.Fatalf("date=%v", rec.Date)
	}
	if !rec.OvertimeHours.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("overtime=%s", rec.OvertimeHours)
	}
	if !rec.EarlyStartHours.IsZero() || !rec.RateAdjustment.IsZero() {
		t.Fatalf("absent numerics should be zero")
	}
	if len(rec.Expenses) != 2 {
		t.Fatalf("expenses=%d", len(rec.Expenses))
	}
	if rec.Expenses[0].Category != Taxi || rec.Expenses[1].Category != UnknownCategory {
		t.Fatalf("categories=%v,%v", rec.Expenses[0].Category, rec.Expenses[1].Category)
	}
	if rec.Expenses[1].Label != "宿泊費" {
		t.Fatalf("raw label lost")
	}
}

func TestFieldMapDecodeMissingField(t *testing.T) {
	raw := rawRecord()
	delete(raw.Fields, "現場名")
	_, err := testMap.Decode(raw)
	if !errors.Is(err, ErrFieldAccess) {
		t.Fatalf("expected field access error, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "現場名" || fe.Record != "10" {
		t.Fatalf("unexpected error detail: %v", err)
	}

	raw = rawRecord()
	raw.Fields["作業日"] = "not a date"
	if _, err := testMap.Decode(raw); !errors.Is(err, ErrFieldAccess) {
		t.Fatalf("bad date should be a field error, got %v", err)
	}

	raw = rawRecord()
	raw.Fields["作業日"] = "  "
	_, err = testMap.Decode(raw)
	if !errors.Is(err, ErrFieldAccess) || !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("empty date should be a field error, got %v", err)
	}
	if !errors.As(err, &fe) || fe.Field != "作業日" {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestFieldMapCodes(t *testing.T) {
	codes := testMap.Codes()
	seen := map[string]int{}
	for _, c := range codes {
		seen[c]++
	}
	if seen["顧客名"] != 1 {
		t.Fatalf("party and customer share a code and must be listed once: %v", codes)
	}
	if seen["経費"] != 1 || seen[""] != 0 {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func testQuery(filter TransactionFilter) Query {
	return Query{
		App:              24,
		PartyField:       "顧客名",
		Party:            "株式会社テスト",
		DateField:        "作業日",
		From:             NewDate(2024, 4, 1),
		To:               NewDate(2024, 4, 30),
		LaborField:       "人工数",
		TransactionField: "取引種別",
		Filter:           filter,
	}
}

func TestQueryCondition(t *testing.T) {
	want := `顧客名 = "株式会社テスト" and 作業日 >= "2024-04-01" and 作業日 <= "2024-04-30" and 人工数 != 0`
	if got := testQuery(FilterAll).Condition(); got != want {
		t.Fatalf("Condition()=\n%s\nwant\n%s", got, want)
	}
	got := testQuery(FilterContractOwn).Condition()
	if !strings.HasSuffix(got, ` and 取引種別 in ("請負(自)")`) {
		t.Fatalf("missing transaction filter: %s", got)
	}

	q := testQuery(FilterAll)
	q.Party = `say "hi"`
	if got := q.Condition(); !strings.HasPrefix(got, `顧客名 = "say \"hi\""`) {
		t.Fatalf("party not escaped: %s", got)
	}
}

func TestQueryMatches(t *testing.T) {
	raw := rawRecord()
	raw.Fields["取引種別"] = "常用"
	if !testQuery(FilterAll).Matches(raw) {
		t.Fatalf("expected match")
	}
	if !testQuery(FilterRegular).Matches(raw) {
		t.Fatalf("expected match with regular filter")
	}
	if testQuery(FilterContractOther).Matches(raw) {
		t.Fatalf("transaction filter ignored")
	}
	raw.Fields["人工数"] = "0"
	if testQuery(FilterAll).Matches(raw) {
		t.Fatalf("zero labor count must not match")
	}
	raw = rawRecord()
	raw.Fields["作業日"] = "2024-05-01"
	if testQuery(FilterAll).Matches(raw) {
		t.Fatalf("date outside range must not match")
	}
}

func TestHeaderValidate(t *testing.T) {
	good := Header{Customer: "株式会社テスト", StartDate: "2024-04-01", EndDate: "2024-04-30", PaymentCycle: "30"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Header{
		{StartDate: "", EndDate: "2024-04-30"},
		{StartDate: "2024/04/01", EndDate: "2024-04-30"},
		{StartDate: "2024-04-30", EndDate: "2024-04-01"},
		{StartDate: "2024-04-01", EndDate: "2024-04-30", PaymentCycle: "monthly"},
	}
	for i, h := range bads {
		err := h.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestHeaderFromRaw(t *testing.T) {
	raw := RawRecord{Fields: map[string]string{
		"顧客名":          "株式会社テスト",
		"開始日":          "2024-04-01",
		"終了日":          "2024-04-30",
		"口座名義":         "ヤマダタロウ",
		"out_category": "請求書",
	}}
	h := HeaderFromRaw(raw)
	if h.Customer != "株式会社テスト" || h.StartDate != "2024-04-01" || h.AccountName != "ヤマダタロウ" || h.OutCategory != "請求書" {
		t.Fatalf("unexpected header %+v", h)
	}
	if len(HeaderFieldCodes()) == 0 {
		t.Fatalf("no header codes")
	}
}
