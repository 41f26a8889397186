// Package projector lays report data out on workbook sheets.
//
// Each projector owns one sheet. Projectors read the shared record view,
// aggregate privately and write values, formula text and styles through
// the sheets ports; nothing is evaluated.
package projector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// Input is what every projector of a report receives.
type Input struct {
	Records core.RecordView
	Header  core.Header
}

// Projector writes one sheet of a report.
type Projector interface {
	Sheet() string
	Project(wb sheets.Workbook, in Input) error
}

const (
	// PremiumRate multiplies the hourly rate of early-start and overtime.
	PremiumRate = "1.25"

	headerRow    = 1
	firstDataRow = 4
	totalLabel   = "合計"
)

// rowFormula expands the {r} placeholder with a row number.
func rowFormula(tmpl string, row int) string {
	return strings.ReplaceAll(tmpl, "{r}", strconv.Itoa(row))
}

func sumFormula(col string, first, last int) string {
	return fmt.Sprintf("SUM(%s%d:%s%d)", col, first, col, last)
}

// writeTitles writes the header row and column widths of a fresh sheet.
// Empty titles and zero widths are skipped.
func writeTitles(sh sheets.Sheet, titles []string, widths []float64) error {
	for i, title := range titles {
		if title == "" {
			continue
		}
		if err := sh.SetValue(sheets.Cell(i+1, headerRow), title); err != nil {
			return err
		}
	}
	for i, w := range widths {
		if w == 0 {
			continue
		}
		if err := sh.SetColumnWidth(sheets.Column(i+1), w); err != nil {
			return err
		}
	}
	return nil
}

func projectError(sheet string, err error) error {
	return fmt.Errorf("project %s: %w", sheet, err)
}
