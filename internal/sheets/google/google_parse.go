package google

import (
	"fmt"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// Expense tab columns before the sub-table field codes.
const (
	expenseRecordColumn = "レコード番号"
	expenseTableColumn  = "テーブル"
)

// parseRecords builds raw records from the records tab, whose first row
// holds field codes, and attaches the expense tab's rows to their record
// by number.
func parseRecords(records, expenses [][]interface{}) ([]core.RawRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	headers := toStrings(records[0])
	numberCol := indexOf(headers, expenseRecordColumn)
	if numberCol == -1 {
		return nil, fmt.Errorf("records sheet header: missing %s; got headers=%v", expenseRecordColumn, headers)
	}

	out := make([]core.RawRecord, 0, len(records)-1)
	byNumber := make(map[string]int, len(records)-1)
	for i := 1; i < len(records); i++ {
		row := toStrings(records[i])
		number := strings.TrimSpace(safeGet(row, numberCol))
		if number == "" {
			continue
		}
		fields := make(map[string]string, len(headers))
		for col, code := range headers {
			if code == "" {
				continue
			}
			fields[code] = strings.TrimSpace(safeGet(row, col))
		}
		byNumber[number] = len(out)
		out = append(out, core.RawRecord{Fields: fields})
	}

	if len(expenses) == 0 {
		return out, nil
	}
	eh := toStrings(expenses[0])
	recCol := indexOf(eh, expenseRecordColumn)
	tableCol := indexOf(eh, expenseTableColumn)
	if recCol == -1 || tableCol == -1 {
		return nil, fmt.Errorf("expenses sheet header: need %s and %s; got headers=%v", expenseRecordColumn, expenseTableColumn, eh)
	}
	for i := 1; i < len(expenses); i++ {
		row := toStrings(expenses[i])
		idx, ok := byNumber[strings.TrimSpace(safeGet(row, recCol))]
		if !ok {
			continue
		}
		table := strings.TrimSpace(safeGet(row, tableCol))
		cells := make(map[string]string, len(eh))
		for col, code := range eh {
			if col == recCol || col == tableCol || code == "" {
				continue
			}
			cells[code] = strings.TrimSpace(safeGet(row, col))
		}
		rec := &out[idx]
		if rec.Tables == nil {
			rec.Tables = make(map[string][]map[string]string)
		}
		rec.Tables[table] = append(rec.Tables[table], cells)
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
