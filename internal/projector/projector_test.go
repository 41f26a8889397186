package projector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/sheets/grid"
)

var invoiceFields = core.FieldMap{
	RecordNumber:     "レコード番号",
	Date:             "作業日",
	Site:             "現場名",
	Customer:         "顧客名",
	Party:            "顧客名",
	Role:             "職種_実績_請求",
	PostalCode:       "郵便番号",
	Address:          "住所",
	Tel:              "tel",
	Attendance:       "勤怠",
	TransactionType:  "取引種別",
	Shift:            "日勤_夜勤",
	Rate:             "単価",
	LateHours:        "遅刻時間_請求",
	EarlyLeaveHours:  "早退時間_請求",
	OvertimeHours:    "残業時間_請求",
	EarlyStartHours:  "早出時間_請求",
	LaborCount:       "人工数_請求",
	RateAdjustment:   "単価調整_請求",
	ExpenseTable:     "経費_請求",
	ExpenseCategory:  "経費種類",
	ExpenseUnitPrice: "単価_実績_支払",
	ExpenseAmount:    "金額_経費",
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func work(no, site, role string, day int, expenses ...core.ExpenseEntry) core.WorkRecord {
	return core.WorkRecord{
		RecordNumber:    no,
		Date:            core.NewDate(2024, 4, day),
		Site:            site,
		Customer:        "株式会社テスト",
		Party:           "株式会社テスト",
		Role:            role,
		Shift:           "日勤",
		TransactionType: "常用",
		Rate:            dec("20000"),
		OvertimeHours:   dec("1"),
		EarlyStartHours: dec("0.5"),
		LaborCount:      dec("1"),
		RateAdjustment:  dec("1000"),
		Expenses:        expenses,
	}
}

func taxi(amount string) core.ExpenseEntry {
	return core.ExpenseEntry{Category: core.Taxi, Label: "タクシー", UnitPrice: dec(amount), Amount: dec(amount)}
}

func input(records ...core.WorkRecord) Input {
	return Input{Records: core.NewRecordView(records)}
}

func project(t *testing.T, wb *grid.Workbook, p Projector, in Input) *grid.Sheet {
	t.Helper()
	require.NoError(t, p.Project(wb, in))
	sh, ok := wb.Lookup(p.Sheet())
	require.True(t, ok, "sheet %s not created", p.Sheet())
	return sh
}

func TestLineItemSheet(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewLineItemSheet(invoiceFields), input(
		work("1", "A現場", "鳶", 1, taxi("1200")),
		work("2", "A現場", "鳶", 1, taxi("800")),
		work("3", "B現場", "鳶", 2),
	))

	// header only on a fresh sheet
	assert.Equal(t, "作業日", sh.Value("B1"))
	assert.Equal(t, "早出時間_請求 - 残業時間_請求", sh.Value("J1"))
	assert.Equal(t, 12.0, sh.Width("B"))
	assert.Equal(t, 25.0, sh.Width("J"))

	// first bucket
	assert.Equal(t, 1, sh.Value("A4"))
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), sh.Value("B4"))
	assert.Equal(t, "A現場", sh.Value("C4"))
	assert.Equal(t, 20000.0, sh.Value("F4"))
	assert.Equal(t, 2, sh.Value("G4"))
	assert.Equal(t, 3.0, sh.Value("H4"))
	assert.Equal(t, "F4*G4", sh.Formula("I4"))
	assert.Equal(t, "F4*H4/8*1.25", sh.Formula("J4"))
	assert.Equal(t, 2000.0, sh.Value("K4"))
	assert.Equal(t, "SUM(I4:K4)", sh.Formula("L4"))
	assert.Equal(t, 2000.0, sh.Value("O4"), "taxi column")
	assert.Equal(t, "SUM(M4:P4)", sh.Formula("Q4"))
	assert.Equal(t, "SUM(R4:U4)", sh.Formula("V4"))
	assert.Equal(t, "(L4+Q4+V4)", sh.Formula("W4"))

	// second bucket
	assert.Equal(t, 2, sh.Value("A5"))
	assert.Equal(t, "B現場", sh.Value("C5"))
	assert.Equal(t, 1, sh.Value("G5"))
	assert.Equal(t, 0.0, sh.Value("O5"))

	// formats
	assert.Equal(t, sheets.FormatMonthDay, sh.StyleOf("B4").NumFmt)
	assert.Equal(t, sheets.FormatInteger, sh.StyleOf("G4").NumFmt)
	assert.Equal(t, sheets.FormatOneDec, sh.StyleOf("H4").NumFmt)
	assert.Equal(t, sheets.AlignCenter, sh.StyleOf("A4").Align)

	// total row
	assert.Equal(t, [][2]string{{"A6", "F6"}}, sh.Merges())
	assert.Equal(t, "合計", sh.Value("A6"))
	assert.Equal(t, sheets.AlignCenter, sh.StyleOf("A6").Align)
	for _, col := range []string{"G", "H", "I", "J", "K", "L", "M", "Q", "V", "W"} {
		assert.Equal(t, "SUM("+col+"4:"+col+"5)", sh.Formula(col+"6"), "total of %s", col)
	}
	assert.Empty(t, sh.Formula("F6"))

	// borders on every used column
	for col := 1; col <= 23; col++ {
		for _, row := range []int{4, 5} {
			assert.Equal(t, sheets.BorderThin, sh.StyleOf(sheets.Cell(col, row)).Border)
		}
		total := sh.StyleOf(sheets.Cell(col, 6))
		assert.Equal(t, sheets.BorderTotal, total.Border)
		assert.Equal(t, sheets.TotalFill, total.Fill)
	}
	assert.Equal(t, sheets.Style{}, sh.StyleOf("X4"))
	assert.Equal(t, sheets.Style{}, sh.StyleOf("A7"))
}

func TestGroupedSheetReprojectKeepsOneMerge(t *testing.T) {
	wb := grid.New()
	in := input(
		work("1", "A現場", "鳶", 1),
		work("2", "B現場", "鳶", 2),
	)
	p := NewLineItemSheet(invoiceFields)
	project(t, wb, p, in)
	sh := project(t, wb, p, in)

	assert.Equal(t, [][2]string{{"A6", "F6"}}, sh.Merges())
	assert.Equal(t, "合計", sh.Value("A6"))
	assert.Equal(t, "SUM(G4:G5)", sh.Formula("G6"))
	assert.Nil(t, sh.Value("A7"))
}

func TestGroupedSheetHeaderWrittenOnce(t *testing.T) {
	wb := grid.New()
	p := NewSiteSheet(invoiceFields)
	sh := project(t, wb, p, input(work("1", "A現場", "鳶", 1)))
	require.NoError(t, sh.SetColumnWidth("B", 99))
	require.NoError(t, sh.SetValue("B1", "custom"))

	require.NoError(t, p.Project(wb, input(work("1", "A現場", "鳶", 1))))
	assert.Equal(t, 99.0, sh.Width("B"))
	assert.Equal(t, "custom", sh.Value("B1"))
}

func TestGroupedSheetTemplateKeepsHeader(t *testing.T) {
	wb := grid.New()
	tmpl := wb.AddSheet(SheetSites)
	require.NoError(t, tmpl.SetValue("A2", "template title"))

	sh := project(t, wb, NewSiteSheet(invoiceFields), input(work("1", "A現場", "鳶", 1)))
	assert.Nil(t, sh.Value("B1"))
	assert.Equal(t, 0.0, sh.Width("B"))
	assert.Equal(t, "A現場", sh.Value("B4"))
}

func TestSiteSheet(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewSiteSheet(invoiceFields), input(
		work("1", "A現場", "鳶", 1, taxi("500")),
		work("2", "A現場", "大工", 2),
	))

	assert.Equal(t, "A現場", sh.Value("B4"))
	assert.Equal(t, 2, sh.Value("C4"))
	assert.Equal(t, 3.0, sh.Value("D4"))
	assert.Equal(t, 40000.0, sh.Value("E4"), "rates are summed per site")
	assert.Equal(t, "(E4/8*D4*1.25)", sh.Formula("F4"))
	assert.Equal(t, "SUM(E4:G4)", sh.Formula("H4"))
	assert.Equal(t, 500.0, sh.Value("K4"))
	assert.Equal(t, "SUM(I4:L4)", sh.Formula("M4"))
	assert.Equal(t, "SUM(N4:Q4)", sh.Formula("R4"))
	assert.Equal(t, "(H4+M4+R4)", sh.Formula("S4"))

	assert.Equal(t, [][2]string{{"A5", "B5"}}, sh.Merges())
	assert.Equal(t, "SUM(C4:C4)", sh.Formula("C5"))
	assert.Equal(t, "SUM(S4:S4)", sh.Formula("S5"))
	assert.Equal(t, "SUM(G4:G4)", sh.Formula("G5"))
}

func TestAttendanceSheet(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewAttendanceSheet(invoiceFields), input(
		work("1", "A現場", "鳶", 1),
		work("2", "A現場", "鳶", 2),
		work("3", "A現場", "大工", 2),
	))

	assert.Equal(t, "A現場", sh.Value("A4"))
	assert.Equal(t, "鳶", sh.Value("B4"))
	assert.Equal(t, 20000.0, sh.Value("C4"))
	assert.Equal(t, "大工", sh.Value("B5"))
	assert.Equal(t,
		"COUNTIFS(Sheet2!$B$2:$B$4000, D$2, Sheet2!$C$2:$C$4000, $A4, Sheet2!$E$2:$E$4000, $B4)",
		sh.Formula("D4"))
	assert.Equal(t,
		"COUNTIFS(Sheet2!$B$2:$B$4000, AH$2, Sheet2!$C$2:$C$4000, $A5, Sheet2!$E$2:$E$4000, $B5)",
		sh.Formula("AH5"))
	assert.Equal(t, "SUM(D4:AH4)", sh.Formula("AI4"))
	assert.Equal(t, "(C4*AI4)", sh.Formula("AJ4"))

	assert.Equal(t, [][2]string{{"A6", "C6"}}, sh.Merges())
	assert.Equal(t, "SUM(D4:D5)", sh.Formula("D6"))
	assert.Equal(t, "SUM(AJ4:AJ5)", sh.Formula("AJ6"))
	assert.Equal(t, sheets.BorderThin, sh.StyleOf("AJ5").Border)
	assert.Equal(t, sheets.BorderTotal, sh.StyleOf("B6").Border)
	assert.Empty(t, sh.Formula("AK4"))
}

func TestGroupedSheetEmptyInput(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewLineItemSheet(invoiceFields), input())
	assert.Nil(t, sh.Value("A4"))
	assert.Empty(t, sh.Merges())
}

func TestInvoiceExpenseDump(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewInvoiceExpenseDump(invoiceFields), input(
		work("1", "A現場", "鳶", 1, taxi("1200"), core.ExpenseEntry{Category: core.UnknownCategory, Label: "宿泊費", Amount: dec("9000")}),
		work("2", "B現場", "大工", 2),
	))

	assert.Equal(t, "レコード番号", sh.Value("A1"))
	assert.Equal(t, "顧客名", sh.Value("D1"))
	assert.Equal(t, "職種_実績_請求", sh.Value("E1"))
	assert.Equal(t, "経費種類", sh.Value("Q1"))
	assert.Equal(t, "単価調整_請求", sh.Value("U1"))

	// one row per expense
	assert.Equal(t, "1", sh.Value("A2"))
	assert.Equal(t, "株式会社テスト", sh.Value("D2"))
	assert.Equal(t, "鳶", sh.Value("E2"))
	assert.Equal(t, "タクシー", sh.Value("Q2"))
	assert.Equal(t, 1200.0, sh.Value("S2"))
	assert.Equal(t, "1", sh.Value("A3"))
	assert.Equal(t, "宿泊費", sh.Value("Q3"), "unknown labels are still dumped")
	assert.Equal(t, 9000.0, sh.Value("S3"))

	// record without expenses keeps its base columns
	assert.Equal(t, "2", sh.Value("A4"))
	assert.Equal(t, 20000.0, sh.Value("J4"))
	assert.Equal(t, 1.0, sh.Value("O4"))
	assert.Equal(t, "", sh.Value("Q4"))
	assert.Equal(t, 0.0, sh.Value("R4"))
	assert.Equal(t, 0.0, sh.Value("S4"))
	assert.Equal(t, "日勤", sh.Value("T4"))
	assert.Equal(t, 1000.0, sh.Value("U4"))

	// work dates keep their day
	for _, cell := range []string{"B2", "B3", "B4"} {
		assert.Equal(t, sheets.FormatDate, sh.StyleOf(cell).NumFmt, cell)
	}
}

func TestExpenseDumpAppendsAfterExistingRows(t *testing.T) {
	wb := grid.New()
	tmpl := wb.AddSheet(SheetExpenseDump)
	require.NoError(t, tmpl.SetValue("A1", "template header"))
	require.NoError(t, tmpl.SetValue("A2", "existing"))

	sh := project(t, wb, NewInvoiceExpenseDump(invoiceFields), input(work("9", "A現場", "鳶", 1)))
	assert.Equal(t, "template header", sh.Value("A1"))
	assert.Equal(t, "existing", sh.Value("A2"))
	assert.Equal(t, "9", sh.Value("A3"))
}

func TestRecordDump(t *testing.T) {
	wb := grid.New()
	sh := project(t, wb, NewRecordDump(invoiceFields), input(
		work("1", "A現場", "鳶", 1, taxi("100"), taxi("200")),
		work("2", "B現場", "大工", 2),
	))

	assert.Equal(t, "日勤_夜勤", sh.Value("Q1"))
	assert.Equal(t, "1", sh.Value("A2"))
	assert.Equal(t, "2", sh.Value("A3"), "one row per record")
	assert.Nil(t, sh.Value("A4"))
	assert.Equal(t, "A現場", sh.Value("C2"))
	assert.Equal(t, "鳶", sh.Value("E2"))
	assert.Equal(t, "J2/8*M2*1.25", sh.Formula("S2"))
	assert.Equal(t, "J3/8*N3*1.25", sh.Formula("T3"))
}

func TestInvoiceHeader(t *testing.T) {
	wb := grid.New()
	in := Input{Header: core.Header{
		Customer:        "株式会社テスト",
		PostalCode:      "100-0001",
		Address:         "東京都千代田区",
		Building:        "テストビル",
		Tel:             "03-0000-0000",
		Fax:             "03-0000-0001",
		ClaimDate:       "2024-04-30",
		SerialNumber:    "INV-001",
		PaymentCycle:    "30",
		ClosingDate:     "末日",
		PaymentDeadline: "2024-05-31",
		EndDate:         "2024-04-30",
	}}
	sh := project(t, wb, NewInvoiceHeader(), in)

	assert.Equal(t, "株式会社テスト", sh.Value("C2"))
	assert.Equal(t, "テストビル", sh.Value("C7"))
	assert.Equal(t, "03-0000-0001", sh.Value("C9"))
	assert.Equal(t, "INV-001", sh.Value("I2"))
	assert.Equal(t, "2024-04-30", sh.Value("I3"))
	assert.Equal(t, 30.0, sh.Value("J40"))
	assert.Equal(t, "末日", sh.Value("I40"))
	assert.Equal(t, "2024-04-30", sh.Value("H40"))
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), sh.Value("C41"))
	assert.Equal(t, sheets.FormatEraDate, sh.StyleOf("C41").NumFmt)
}

func TestPaymentHeaderOffsets(t *testing.T) {
	wb := grid.New()
	in := Input{Header: core.Header{
		PersonName:  "山田太郎",
		BankName:    "テスト銀行",
		BranchCode:  "001",
		AccountType: "普通",
	}}
	sh := project(t, wb, NewPaymentHeader(), in)

	for _, cell := range []string{"C2", "O2", "AA2"} {
		assert.Equal(t, "山田太郎", sh.Value(cell), cell)
	}
	for _, cell := range []string{"C40", "O40", "AA40"} {
		assert.Equal(t, "テスト銀行", sh.Value(cell), cell)
	}
	for _, cell := range []string{"E41", "Q41", "AC41"} {
		assert.Equal(t, "001", sh.Value(cell), cell)
	}
	assert.Equal(t, "普通", sh.Value("AC42"))
}

func TestPaymentExpenseDump(t *testing.T) {
	fm := invoiceFields
	fm.Party = "作業員検索"
	fm.ExpenseCategory = "経費種類_支払い"
	wb := grid.New()
	rec := work("1", "A現場", "鳶", 1)
	rec.Party = "山田太郎"
	sh := project(t, wb, NewPaymentExpenseDump(fm), input(rec))

	assert.Equal(t, "経費種類_支払い", sh.Value("Q1"))
	assert.Equal(t, "作業員検索", sh.Value("U1"))
	assert.Nil(t, sh.Value("V1"))
	assert.Equal(t, "計算式結果", sh.Value("W1"))
	assert.Equal(t, "", sh.Value("Q2"))
	assert.Equal(t, 0.0, sh.Value("R2"))
	assert.Equal(t, "山田太郎", sh.Value("U2"))
	assert.Nil(t, sh.Value("V2"))
	assert.Empty(t, sh.Formula("V2"))
	assert.Equal(t, "J2/8*(M2+N2)*1.25", sh.Formula("W2"))
}
