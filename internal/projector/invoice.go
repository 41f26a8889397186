package projector

import (
	"fmt"

	"github.com/SHUNKURANARI/excel/internal/aggregate"
	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// Sheet names of the invoice workbook.
const (
	SheetExpenseDump = "Sheet1"
	SheetRecordDump  = "Sheet2"
	SheetInvoice     = "請求書"
	SheetLineItems   = "【請求明細】現場職種別"
	SheetSites       = "【請求明細】現場別"
	SheetAttendance  = "【請求】現場別日別出面表"
)

var (
	transport = []core.ExpenseCategory{core.Transit, core.Flight, core.Taxi, core.Vehicle}
	otherCost = []core.ExpenseCategory{core.Supplies, core.ToolCarryIn, core.Lease, core.Other}
)

func itemNumber(n int, _ aggregate.Bucket) any { return n }

// categoryColumns returns one summed column per category.
func categoryColumns(cats []core.ExpenseCategory) []column {
	out := make([]column, 0, len(cats))
	for _, c := range cats {
		out = append(out, column{
			title:  c.Label(),
			width:  12,
			value:  func(_ int, b aggregate.Bucket) any { return b.Expenses.Get(c) },
			format: sheets.FormatInteger,
			total:  true,
		})
	}
	return out
}

func subtotal(tmpl string, width float64) column {
	return column{width: width, formula: tmpl, format: sheets.FormatInteger, total: true}
}

// NewLineItemSheet lists one row per work day, site, shift, role and rate.
func NewLineItemSheet(fm core.FieldMap) Projector {
	cols := []column{
		{width: 10, value: itemNumber, align: sheets.AlignCenter},
		{title: fm.Date, width: 12, value: func(_ int, b aggregate.Bucket) any { return b.Date }, format: sheets.FormatMonthDay},
		{title: fm.Site, width: 20, value: func(_ int, b aggregate.Bucket) any { return b.Site }},
		{title: fm.Shift, width: 12, value: func(_ int, b aggregate.Bucket) any { return b.Shift }},
		{title: fm.Role, width: 15, value: func(_ int, b aggregate.Bucket) any { return b.Role }},
		{title: "単価", width: 10, value: func(_ int, b aggregate.Bucket) any { return b.Rate }},
		{title: fm.LaborCount, width: 15, value: func(_ int, b aggregate.Bucket) any { return b.Count }, format: sheets.FormatInteger, total: true},
		{title: "早出残業時間", width: 10, value: func(_ int, b aggregate.Bucket) any { return b.ExtraHours() }, format: sheets.FormatOneDec, total: true},
		{title: "単価", width: 10, formula: "F{r}*G{r}", format: sheets.FormatInteger, total: true},
		{title: fm.EarlyStartHours + " - " + fm.OvertimeHours, width: 25, formula: "F{r}*H{r}/8*" + PremiumRate, format: sheets.FormatInteger, total: true},
		{width: 10, value: func(_ int, b aggregate.Bucket) any { return b.RateAdjustment }, format: sheets.FormatInteger, total: true},
		subtotal("SUM(I{r}:K{r})", 10),
	}
	cols = append(cols, categoryColumns(transport)...)
	cols = append(cols, subtotal("SUM(M{r}:P{r})", 12))
	cols = append(cols, categoryColumns(otherCost)...)
	cols = append(cols, subtotal("SUM(R{r}:U{r})", 15))
	cols = append(cols, subtotal("(L{r}+Q{r}+V{r})", 10))

	return groupedSheet{
		name:      SheetLineItems,
		key:       aggregate.ByDateSiteShiftRoleRate,
		columns:   cols,
		labelSpan: 6,
	}
}

// NewSiteSheet lists one row per site.
func NewSiteSheet(fm core.FieldMap) Projector {
	cols := []column{
		{width: 10, value: itemNumber, align: sheets.AlignCenter},
		{title: fm.Site, width: 20, value: func(_ int, b aggregate.Bucket) any { return b.Site }},
		{title: fm.LaborCount, width: 15, value: func(_ int, b aggregate.Bucket) any { return b.Count }, format: sheets.FormatInteger, total: true},
		{title: "早出残業時間", width: 12, value: func(_ int, b aggregate.Bucket) any { return b.ExtraHours() }, format: sheets.FormatOneDec, total: true},
		{title: "単価", width: 10, value: func(_ int, b aggregate.Bucket) any { return b.RateSum }, format: sheets.FormatInteger, total: true},
		{title: fm.EarlyStartHours + " - " + fm.OvertimeHours, width: 25, formula: "(E{r}/8*D{r}*" + PremiumRate + ")", format: sheets.FormatInteger, total: true},
		{width: 10, value: func(_ int, b aggregate.Bucket) any { return b.RateAdjustment }, format: sheets.FormatInteger, total: true},
		subtotal("SUM(E{r}:G{r})", 10),
	}
	cols = append(cols, categoryColumns(transport)...)
	cols = append(cols, subtotal("SUM(I{r}:L{r})", 12))
	cols = append(cols, categoryColumns(otherCost)...)
	cols = append(cols, subtotal("SUM(N{r}:Q{r})", 15))
	cols = append(cols, subtotal("(H{r}+M{r}+R{r})", 10))

	return groupedSheet{
		name:      SheetSites,
		key:       aggregate.BySite,
		columns:   cols,
		labelSpan: 2,
	}
}

const (
	attendanceFirstDay = 4  // D
	attendanceLastDay  = 34 // AH
	attendanceRange    = 4000
)

// NewAttendanceSheet lists one row per site and role with a per-day head
// count looked up from the record dump sheet.
func NewAttendanceSheet(fm core.FieldMap) Projector {
	cols := []column{
		{title: fm.Site, width: 20, value: func(_ int, b aggregate.Bucket) any { return b.Site }},
		{title: "職種", width: 15, value: func(_ int, b aggregate.Bucket) any { return b.Role }},
		{title: "単価", width: 10, value: func(_ int, b aggregate.Bucket) any { return b.Rate }},
	}
	for col := attendanceFirstDay; col <= attendanceLastDay; col++ {
		c := column{formula: attendanceFormula(sheets.Column(col)), total: true}
		if col <= 9 {
			c.width = 10
		}
		cols = append(cols, c)
	}
	first, last := sheets.Column(attendanceFirstDay), sheets.Column(attendanceLastDay)
	sumCol := sheets.Column(attendanceLastDay + 1)
	cols = append(cols,
		column{formula: fmt.Sprintf("SUM(%s{r}:%s{r})", first, last), total: true},
		column{formula: fmt.Sprintf("(C{r}*%s{r})", sumCol), total: true},
	)

	return groupedSheet{
		name:      SheetAttendance,
		key:       aggregate.BySiteRole,
		columns:   cols,
		labelSpan: 3,
	}
}

// attendanceFormula counts record-dump rows on the date in row 2 of col
// for the row's site and role.
func attendanceFormula(col string) string {
	ref := func(c string) string {
		return fmt.Sprintf("%s!$%s$2:$%s$%d", SheetRecordDump, c, c, attendanceRange)
	}
	return fmt.Sprintf("COUNTIFS(%s, %s$2, %s, $A{r}, %s, $B{r})", ref("B"), col, ref("C"), ref("E"))
}
