package sheets

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Cell returns the A1 name of a 1-based column and row. Coordinates are
// program constants, so an out-of-range pair panics.
func Cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return name
}

// Column returns the letters of a 1-based column.
func Column(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(err)
	}
	return name
}

// ColumnIndex returns the 1-based number of a column name.
func ColumnIndex(name string) (int, error) {
	return excelize.ColumnNameToNumber(name)
}

// ShiftColumn moves a cell reference right by n columns.
func ShiftColumn(cell string, n int) (string, error) {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return "", fmt.Errorf("shift %s: %w", cell, err)
	}
	return excelize.CoordinatesToCellName(col+n, row)
}

// SplitCell returns the 1-based column and row of a cell name.
func SplitCell(cell string) (int, int, error) {
	return excelize.CellNameToCoordinates(cell)
}
