// Package grid is an in-memory workbook. It keeps values, formulas,
// styles, merges and widths as plain maps so tests can inspect exactly
// what a projector wrote.
package grid

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/SHUNKURANARI/excel/internal/sheets"
)

type Workbook struct {
	mu     sync.Mutex
	order  []string
	sheets map[string]*Sheet
}

type Sheet struct {
	mu       sync.Mutex
	name     string
	values   map[string]any
	formulas map[string]string
	styles   map[string]sheets.Style
	merges   [][2]string
	widths   map[string]float64
}

// Opener decodes workbooks serialized by Workbook.Bytes. Empty input
// opens an empty workbook.
type Opener struct{}

var (
	_ sheets.Workbook       = (*Workbook)(nil)
	_ sheets.Sheet          = (*Sheet)(nil)
	_ sheets.WorkbookOpener = Opener{}
)

func New() *Workbook {
	return &Workbook{sheets: make(map[string]*Sheet)}
}

func newSheet(name string) *Sheet {
	return &Sheet{
		name:     name,
		values:   make(map[string]any),
		formulas: make(map[string]string),
		styles:   make(map[string]sheets.Style),
		widths:   make(map[string]float64),
	}
}

func (Opener) Open(data []byte) (sheets.Workbook, error) {
	wb := New()
	if len(data) == 0 {
		return wb, nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode grid workbook: %w", err)
	}
	for _, s := range snap.Sheets {
		sh := newSheet(s.Name)
		maps.Copy(sh.values, s.Values)
		maps.Copy(sh.formulas, s.Formulas)
		maps.Copy(sh.styles, s.Styles)
		maps.Copy(sh.widths, s.Widths)
		sh.merges = append(sh.merges, s.Merges...)
		wb.order = append(wb.order, s.Name)
		wb.sheets[s.Name] = sh
	}
	return wb, nil
}

// AddSheet adds an empty sheet, as a template would carry it.
func (w *Workbook) AddSheet(name string) *Sheet {
	s, _, _ := w.Sheet(name)
	return s.(*Sheet)
}

func (w *Workbook) Sheet(name string) (sheets.Sheet, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sheets[name]; ok {
		return s, s.blank(), nil
	}
	s := newSheet(name)
	w.sheets[name] = s
	w.order = append(w.order, name)
	return s, true, nil
}

// Lookup returns an existing sheet without creating it.
func (w *Workbook) Lookup(name string) (*Sheet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sheets[name]
	return s, ok
}

func (w *Workbook) SheetNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.order)
}

type sheetSnapshot struct {
	Name     string                  `json:"name"`
	Values   map[string]any          `json:"values,omitempty"`
	Formulas map[string]string       `json:"formulas,omitempty"`
	Styles   map[string]sheets.Style `json:"styles,omitempty"`
	Merges   [][2]string             `json:"merges,omitempty"`
	Widths   map[string]float64      `json:"widths,omitempty"`
}

type snapshot struct {
	Sheets []sheetSnapshot `json:"sheets"`
}

func (w *Workbook) Bytes() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var snap snapshot
	for _, name := range w.order {
		s := w.sheets[name]
		s.mu.Lock()
		snap.Sheets = append(snap.Sheets, sheetSnapshot{
			Name:     s.name,
			Values:   s.values,
			Formulas: s.formulas,
			Styles:   s.styles,
			Merges:   s.merges,
			Widths:   s.widths,
		})
		s.mu.Unlock()
	}
	return json.Marshal(snap)
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) blank() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) == 0 && len(s.formulas) == 0
}

func (s *Sheet) SetValue(cell string, v any) error {
	if _, _, err := sheets.SplitCell(cell); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.formulas, cell)
	s.values[cell] = sheets.NormalizeValue(v)
	return nil
}

func (s *Sheet) SetFormula(cell, formula string) error {
	if _, _, err := sheets.SplitCell(cell); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, cell)
	s.formulas[cell] = formula
	return nil
}

func (s *Sheet) Style(cell string, st sheets.Style) error {
	if _, _, err := sheets.SplitCell(cell); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[cell] = st.Overlay(s.styles[cell])
	return nil
}

func (s *Sheet) Merge(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := [2]string{from, to}
	if !slices.Contains(s.merges, m) {
		s.merges = append(s.merges, m)
	}
	return nil
}

func (s *Sheet) SetColumnWidth(col string, width float64) error {
	if _, err := sheets.ColumnIndex(col); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widths[col] = width
	return nil
}

func (s *Sheet) NextRow() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := 0
	for cell := range s.values {
		if _, row, err := sheets.SplitCell(cell); err == nil && row > last {
			last = row
		}
	}
	for cell := range s.formulas {
		if _, row, err := sheets.SplitCell(cell); err == nil && row > last {
			last = row
		}
	}
	return last + 1, nil
}

// Value returns the literal stored in cell, nil when empty.
func (s *Sheet) Value(cell string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[cell]
}

// Formula returns the formula text of cell.
func (s *Sheet) Formula(cell string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formulas[cell]
}

// StyleOf returns the style applied to cell.
func (s *Sheet) StyleOf(cell string) sheets.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles[cell]
}

func (s *Sheet) Merges() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.merges)
}

// Width returns the width set for col, 0 when unset.
func (s *Sheet) Width(col string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widths[col]
}
