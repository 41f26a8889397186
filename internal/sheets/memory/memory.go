// Package memory is an in-process record, template and header store
// seeded from JSON files.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// Seed file layout under the data directory.
const (
	RecordsPattern = "records_*.json"
	HeadersFile    = "headers.json"
	TemplatesDir   = "templates"
)

var (
	_ sheets.RecordStore   = (*Store)(nil)
	_ sheets.TemplateStore = (*Store)(nil)
	_ sheets.HeaderReader  = (*Store)(nil)
	_ sheets.RecordWriter  = (*Store)(nil)
)

type Store struct {
	mu           sync.Mutex
	records      map[int][]core.RawRecord
	headers      map[string]core.Header
	templates    map[string][]byte
	templatesDir string
}

func New() *Store {
	return &Store{
		records:   make(map[int][]core.RawRecord),
		headers:   make(map[string]core.Header),
		templates: make(map[string][]byte),
	}
}

// NewFromFiles loads records_<app>.json and headers.json from base.
// Templates are read on demand from base/templates/<app>-<record>.xlsx.
// Missing files leave the store empty.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	s.templatesDir = filepath.Join(base, TemplatesDir)

	paths, err := filepath.Glob(filepath.Join(base, RecordsPattern))
	if err != nil {
		return nil, fmt.Errorf("list record seeds: %w", err)
	}
	for _, path := range paths {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "records_"), ".json")
		app, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("record seed %s: app is not a number", filepath.Base(path))
		}
		var recs []core.RawRecord
		if err := readJSON(path, &recs); err != nil {
			return nil, err
		}
		s.records[app] = recs
	}

	var headers map[string]core.Header
	if err := readJSON(filepath.Join(base, HeadersFile), &headers); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for id, h := range headers {
		s.headers[id] = h
	}
	return s, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func templateKey(app int, recordNumber string) string {
	return fmt.Sprintf("%d-%s", app, recordNumber)
}

// FetchAll returns the records of q.App matching q, in insertion order.
func (s *Store) FetchAll(_ context.Context, q core.Query) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RawRecord
	for _, r := range s.records[q.App] {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// UpsertRecords replaces records with the same record number and appends
// the rest.
func (s *Store) UpsertRecords(_ context.Context, app int, recs []core.RawRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.records[app]
	index := make(map[string]int, len(existing))
	for i, r := range existing {
		index[r.Value("レコード番号")] = i
	}
	n := 0
	for _, r := range recs {
		number := r.Value("レコード番号")
		if number == "" {
			continue
		}
		if i, ok := index[number]; ok {
			existing[i] = r
		} else {
			index[number] = len(existing)
			existing = append(existing, r)
		}
		n++
	}
	s.records[app] = existing
	return n, nil
}

// AddTemplate registers a template in memory.
func (s *Store) AddTemplate(app int, recordNumber string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateKey(app, recordNumber)] = append([]byte(nil), data...)
}

func (s *Store) FetchTemplate(_ context.Context, app int, recordNumber string) ([]byte, error) {
	key := templateKey(app, recordNumber)
	s.mu.Lock()
	data, ok := s.templates[key]
	dir := s.templatesDir
	s.mu.Unlock()
	if ok {
		return append([]byte(nil), data...), nil
	}
	if dir == "" {
		return nil, &core.MissingResourceError{Resource: "template record", ID: recordNumber}
	}
	data, err := os.ReadFile(filepath.Join(dir, key+".xlsx"))
	if os.IsNotExist(err) {
		return nil, &core.MissingResourceError{Resource: "template record", ID: recordNumber}
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", key, err)
	}
	return data, nil
}

// AddHeader registers a header record.
func (s *Store) AddHeader(id string, h core.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[id] = h
}

// FetchHeader returns a seeded header. The app is ignored.
func (s *Store) FetchHeader(_ context.Context, _ int, id string) (core.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.headers[id]
	if !ok {
		return core.Header{}, &core.MissingResourceError{Resource: "header record", ID: id}
	}
	return h, nil
}
