package kintone

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// FieldID is the built-in record ID field.
const FieldID = "$id"

// Field types that need more than a plain string value.
const (
	TypeSubtable = "SUBTABLE"
	TypeFile     = "FILE"
)

// Field is one field of a record as the API returns it.
type Field struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Record maps field codes to fields.
type Record map[string]Field

// FileInfo describes one attachment of a FILE field.
type FileInfo struct {
	FileKey     string `json:"fileKey"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

type subtableRow struct {
	ID    string `json:"id"`
	Value Record `json:"value"`
}

type entity struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ID returns the record's $id.
func (r Record) ID() (int64, error) {
	f, ok := r[FieldID]
	if !ok {
		return 0, fmt.Errorf("record has no %s field", FieldID)
	}
	id, err := strconv.ParseInt(f.Text(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", FieldID, err)
	}
	return id, nil
}

// Files returns the attachments of a FILE field.
func (r Record) Files(code string) []FileInfo {
	f, ok := r[code]
	if !ok {
		return nil
	}
	var files []FileInfo
	if err := json.Unmarshal(f.Value, &files); err != nil {
		return nil
	}
	return files
}

// Text renders a field value as text. Lists are joined with ", " and
// users or organizations render as their names.
func (f Field) Text() string {
	if len(f.Value) == 0 || string(f.Value) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(f.Value, &list); err == nil {
		return strings.Join(list, ", ")
	}
	var one entity
	if err := json.Unmarshal(f.Value, &one); err == nil && one.Name != "" {
		return one.Name
	}
	var many []entity
	if err := json.Unmarshal(f.Value, &many); err == nil {
		names := make([]string, 0, len(many))
		for _, e := range many {
			names = append(names, e.Name)
		}
		return strings.Join(names, ", ")
	}
	return string(f.Value)
}

// Raw converts the record to the store-neutral shape. Subtables become
// rows of text fields; file fields are dropped.
func (r Record) Raw() (core.RawRecord, error) {
	raw := core.RawRecord{Fields: make(map[string]string, len(r))}
	for code, f := range r {
		switch f.Type {
		case TypeFile:
			continue
		case TypeSubtable:
			var rows []subtableRow
			if err := json.Unmarshal(f.Value, &rows); err != nil {
				return core.RawRecord{}, fmt.Errorf("decode subtable %s: %w", code, err)
			}
			if raw.Tables == nil {
				raw.Tables = make(map[string][]map[string]string)
			}
			table := make([]map[string]string, 0, len(rows))
			for _, row := range rows {
				cells := make(map[string]string, len(row.Value))
				for c, v := range row.Value {
					cells[c] = v.Text()
				}
				table = append(table, cells)
			}
			raw.Tables[code] = table
		default:
			raw.Fields[code] = f.Text()
		}
	}
	return raw, nil
}
