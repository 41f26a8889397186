package projector

import (
	"github.com/SHUNKURANARI/excel/internal/aggregate"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// column is one column of a grouped sheet. Exactly one of value and
// formula is set, or neither for a column that only carries borders.
type column struct {
	title   string
	width   float64
	value   func(n int, b aggregate.Bucket) any
	formula string // {r} is replaced by the row number
	format  string
	align   sheets.Align
	total   bool
}

// groupedSheet writes one row per bucket from row 4, then a total row.
// Rows are overwritten in place and never cleared: projecting again with
// fewer buckets leaves the rows below the new total row as they were.
// Reports project each grouped sheet once on a fresh template copy.
type groupedSheet struct {
	name      string
	key       aggregate.KeyFunc
	columns   []column
	labelSpan int // leading columns merged under the total label
}

var _ Projector = groupedSheet{}

func (g groupedSheet) Sheet() string { return g.name }

func (g groupedSheet) Project(wb sheets.Workbook, in Input) error {
	sh, created, err := wb.Sheet(g.name)
	if err != nil {
		return projectError(g.name, err)
	}
	if created {
		titles := make([]string, len(g.columns))
		widths := make([]float64, len(g.columns))
		for i, c := range g.columns {
			titles[i], widths[i] = c.title, c.width
		}
		if err := writeTitles(sh, titles, widths); err != nil {
			return projectError(g.name, err)
		}
	}

	buckets := aggregate.Aggregate(in.Records.All(), g.key)
	if buckets.Len() == 0 {
		return nil
	}

	row, n := firstDataRow, 0
	for b := range buckets.Values() {
		n++
		if err := g.writeRow(sh, row, n, b); err != nil {
			return projectError(g.name, err)
		}
		row++
	}
	if err := g.writeTotal(sh, firstDataRow, row-1, row); err != nil {
		return projectError(g.name, err)
	}
	return nil
}

func (g groupedSheet) writeRow(sh sheets.Sheet, row, n int, b aggregate.Bucket) error {
	for i, c := range g.columns {
		cell := sheets.Cell(i+1, row)
		switch {
		case c.formula != "":
			if err := sh.SetFormula(cell, rowFormula(c.formula, row)); err != nil {
				return err
			}
		case c.value != nil:
			if err := sh.SetValue(cell, c.value(n, b)); err != nil {
				return err
			}
		}
		style := sheets.Style{NumFmt: c.format, Align: c.align, Border: sheets.BorderThin}
		if err := sh.Style(cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (g groupedSheet) writeTotal(sh sheets.Sheet, first, last, row int) error {
	label := sheets.Cell(1, row)
	if g.labelSpan > 1 {
		if err := sh.Merge(label, sheets.Cell(g.labelSpan, row)); err != nil {
			return err
		}
	}
	if err := sh.SetValue(label, totalLabel); err != nil {
		return err
	}
	if err := sh.Style(label, sheets.Style{Align: sheets.AlignCenter}); err != nil {
		return err
	}
	for i, c := range g.columns {
		cell := sheets.Cell(i+1, row)
		style := sheets.Style{Border: sheets.BorderTotal, Fill: sheets.TotalFill}
		if c.total {
			if err := sh.SetFormula(cell, sumFormula(sheets.Column(i+1), first, last)); err != nil {
				return err
			}
			style.NumFmt = sheets.FormatInteger
		}
		if err := sh.Style(cell, style); err != nil {
			return err
		}
	}
	return nil
}
