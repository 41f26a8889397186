// Package xlsx adapts excelize workbooks to the sheets ports.
package xlsx

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// Opener opens .xlsx templates. Empty input yields a new workbook.
type Opener struct{}

type Workbook struct {
	mu sync.Mutex
	f  *excelize.File
}

type Sheet struct {
	wb   *Workbook
	name string
}

var (
	_ sheets.WorkbookOpener = Opener{}
	_ sheets.Workbook       = (*Workbook)(nil)
	_ sheets.Sheet          = (*Sheet)(nil)
)

func (Opener) Open(data []byte) (sheets.Workbook, error) {
	if len(data) == 0 {
		return New(), nil
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// New returns an empty workbook holding the default Sheet1.
func New() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// File exposes the underlying excelize file for reading back results.
func (w *Workbook) File() *excelize.File {
	return w.f
}

func (w *Workbook) Sheet(name string) (sheets.Sheet, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return nil, false, fmt.Errorf("lookup sheet %s: %w", name, err)
	}
	if idx == -1 {
		if _, err := w.f.NewSheet(name); err != nil {
			return nil, false, fmt.Errorf("create sheet %s: %w", name, err)
		}
		return &Sheet{wb: w, name: name}, true, nil
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return &Sheet{wb: w, name: name}, len(rows) == 0, nil
}

func (w *Workbook) SheetNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.GetSheetList()
}

func (w *Workbook) Bytes() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases temporary files held by excelize.
func (w *Workbook) Close() error {
	return w.f.Close()
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) SetValue(cell string, v any) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	return s.wb.f.SetCellValue(s.name, cell, sheets.NormalizeValue(v))
}

func (s *Sheet) SetFormula(cell, formula string) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	return s.wb.f.SetCellFormula(s.name, cell, formula)
}

func (s *Sheet) Style(cell string, st sheets.Style) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	f := s.wb.f
	current, err := f.GetCellStyle(s.name, cell)
	if err != nil {
		return fmt.Errorf("style %s!%s: %w", s.name, cell, err)
	}
	base, err := f.GetStyle(current)
	if err != nil || base == nil {
		base = &excelize.Style{}
	}
	id, err := f.NewStyle(overlay(base, st))
	if err != nil {
		return fmt.Errorf("style %s!%s: %w", s.name, cell, err)
	}
	return f.SetCellStyle(s.name, cell, cell, id)
}

func (s *Sheet) Merge(from, to string) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	return s.wb.f.MergeCell(s.name, from, to)
}

func (s *Sheet) SetColumnWidth(col string, width float64) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	return s.wb.f.SetColWidth(s.name, col, col, width)
}

func (s *Sheet) NextRow() (int, error) {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	rows, err := s.wb.f.GetRows(s.name)
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", s.name, err)
	}
	return len(rows) + 1, nil
}

const (
	lineThin   = 1
	lineDouble = 6
	black      = "000000"
)

func overlay(base *excelize.Style, st sheets.Style) *excelize.Style {
	out := *base
	if st.NumFmt != "" {
		numFmt := st.NumFmt
		out.CustomNumFmt = &numFmt
	}
	if st.Align != sheets.AlignDefault {
		var align excelize.Alignment
		if base.Alignment != nil {
			align = *base.Alignment
		}
		align.Horizontal = string(st.Align)
		out.Alignment = &align
	}
	switch st.Border {
	case sheets.BorderThin:
		out.Border = borders(lineThin)
	case sheets.BorderTotal:
		out.Border = borders(lineDouble)
	}
	if st.Fill != "" {
		out.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{st.Fill}}
	}
	return &out
}

func borders(top int) []excelize.Border {
	return []excelize.Border{
		{Type: "top", Color: black, Style: top},
		{Type: "left", Color: black, Style: lineThin},
		{Type: "right", Color: black, Style: lineThin},
		{Type: "bottom", Color: black, Style: lineThin},
	}
}
