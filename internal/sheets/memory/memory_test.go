package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SHUNKURANARI/excel/internal/core"
)

func raw(number, party string) core.RawRecord {
	return core.RawRecord{Fields: map[string]string{
		"レコード番号": number,
		"顧客名":    party,
		"作業日":    "2024-04-01",
		"人工数":    "1",
	}}
}

func query(party string) core.Query {
	return core.Query{
		App:        24,
		PartyField: "顧客名",
		Party:      party,
		DateField:  "作業日",
		From:       core.NewDate(2024, 4, 1),
		To:         core.NewDate(2024, 4, 30),
		LaborField: "人工数",
	}
}

func TestUpsertAndFetch(t *testing.T) {
	s := New()
	ctx := context.Background()

	n, err := s.UpsertRecords(ctx, 24, []core.RawRecord{raw("1", "A"), raw("2", "B"), raw("", "A")})
	if err != nil || n != 2 {
		t.Fatalf("unexpected upsert: n=%d err=%v", n, err)
	}
	if _, err := s.UpsertRecords(ctx, 24, []core.RawRecord{raw("2", "A")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.FetchAll(ctx, query("A"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].Value("レコード番号") != "1" || got[1].Value("レコード番号") != "2" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("records_24.json", `[{"fields": {"レコード番号": "7", "顧客名": "A", "作業日": "2024-04-03", "人工数": "1"}}]`)
	mustWrite("headers.json", `{"1": {"customer": "A", "start_date": "2024-04-01", "end_date": "2024-04-30"}}`)
	mustWrite("templates/31-6.xlsx", "xlsx")

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx := context.Background()

	got, err := s.FetchAll(ctx, query("A"))
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected records: %v err=%v", got, err)
	}

	h, err := s.FetchHeader(ctx, 0, "1")
	if err != nil || h.Customer != "A" || h.EndDate != "2024-04-30" {
		t.Fatalf("unexpected header: %+v err=%v", h, err)
	}
	if _, err := s.FetchHeader(ctx, 0, "2"); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected missing header, got %v", err)
	}

	data, err := s.FetchTemplate(ctx, 31, "6")
	if err != nil || string(data) != "xlsx" {
		t.Fatalf("unexpected template: %q err=%v", data, err)
	}
	if _, err := s.FetchTemplate(ctx, 31, "7"); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected missing template, got %v", err)
	}
}

func TestNewFromFilesRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "records_x.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected error for non-numeric app")
	}
}

func TestEmptyDirectory(t *testing.T) {
	s, err := NewFromFiles(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s.AddTemplate(31, "6", []byte("t"))
	data, err := s.FetchTemplate(context.Background(), 31, "6")
	if err != nil || string(data) != "t" {
		t.Fatalf("unexpected template: %q err=%v", data, err)
	}
}
