package sheets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// Border selects one of the border presets used by reports.
type Border int

const (
	BorderNone Border = iota
	// BorderThin is a thin black line on every edge.
	BorderThin
	// BorderTotal is a double top edge with thin left, right and bottom.
	BorderTotal
)

type Align string

const (
	AlignDefault Align = ""
	AlignCenter  Align = "center"
)

// Number formats.
const (
	FormatInteger  = "#,##0"
	FormatOneDec   = "#,##0.0"
	FormatMonthDay = `m"月"d"日"`
	FormatDate     = "yyyy/m/d"
	FormatEraDate  = `[$-ja-JP]ggge年m月d日`
)

// TotalFill is the background of total rows.
const TotalFill = "FFA500"

// Style is a cell style. Zero fields mean "leave unchanged" when applied.
type Style struct {
	NumFmt string
	Align  Align
	Border Border
	Fill   string // RGB hex
}

// Overlay returns base with the non-zero fields of s applied.
func (s Style) Overlay(base Style) Style {
	if s.NumFmt != "" {
		base.NumFmt = s.NumFmt
	}
	if s.Align != AlignDefault {
		base.Align = s.Align
	}
	if s.Border != BorderNone {
		base.Border = s.Border
	}
	if s.Fill != "" {
		base.Fill = s.Fill
	}
	return base
}

// NormalizeValue converts port values to the plain types adapters store:
// string, int, float64, time.Time. A zero date becomes "".
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case core.Date:
		if x.IsZero() {
			return ""
		}
		return x.Time
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x
	case int64:
		return int(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
