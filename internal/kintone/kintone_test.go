package kintone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SHUNKURANARI/excel/internal/core"
)

func workRecord(id int) string {
	return fmt.Sprintf(`{
		"$id": {"type": "__ID__", "value": "%[1]d"},
		"レコード番号": {"type": "RECORD_NUMBER", "value": "%[1]d"},
		"現場名": {"type": "SINGLE_LINE_TEXT", "value": "東京現場"},
		"経費_請求": {"type": "SUBTABLE", "value": [
			{"id": "1", "value": {
				"経費種類": {"type": "DROP_DOWN", "value": "タクシー"},
				"金額_経費": {"type": "NUMBER", "value": "1500"}
			}}
		]}
	}`, id)
}

const templateRecord = `{"添付ファイル": {"type": "FILE", "value": [
	{"fileKey": "key-1", "name": "invoice.xlsx"},
	{"fileKey": "key-2", "name": "old.xlsx"}
]}}`

func writeRecords(w http.ResponseWriter, recs []string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"records": [%s]}`, strings.Join(recs, ","))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, APIToken: "token"})
	require.NoError(t, err)
	return c
}

func TestNewClientAuth(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://example.cybozu.com"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIToken: "x"})
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://example.cybozu.com/", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "X-Cybozu-Authorization", c.authHeader)
	assert.Equal(t, "dTpw", c.authValue)
	assert.Equal(t, "https://example.cybozu.com", c.baseURL)
}

func TestGetAllRecordsPages(t *testing.T) {
	total := PageSize + 3
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Cybozu-API-Token"))
		assert.Equal(t, "/k/v1/records.json", r.URL.Path)
		q := r.URL.Query().Get("query")
		queries = append(queries, q)

		var last int
		_, err := fmt.Sscanf(q, "$id > %d", &last)
		assert.NoError(t, err)
		var recs []string
		for id := last + 1; id <= total && len(recs) < PageSize; id++ {
			recs = append(recs, workRecord(id))
		}
		writeRecords(w, recs)
	})

	recs, err := c.GetAllRecords(context.Background(), 24, `現場名 = "東京現場"`, []string{"現場名"})
	require.NoError(t, err)
	assert.Len(t, recs, total)
	require.Len(t, queries, 2)
	assert.Equal(t, `$id > 0 and (現場名 = "東京現場") order by $id asc limit 500`, queries[0])
	assert.True(t, strings.HasPrefix(queries[1], fmt.Sprintf("$id > %d and", PageSize)))
}

func TestStoreFetchAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24", r.URL.Query().Get("app"))
		writeRecords(w, []string{workRecord(1)})
	})

	raws, err := NewStore(c).FetchAll(context.Background(), core.Query{App: 24})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "東京現場", raws[0].Value("現場名"))
	require.Len(t, raws[0].Tables["経費_請求"], 1)
	assert.Equal(t, "1500", raws[0].Tables["経費_請求"][0]["金額_経費"])
}

func TestStoreFetchTemplate(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		target  error
		want    string
	}{
		{
			name:    "downloads first attachment",
			records: []string{templateRecord},
			want:    "xlsx-bytes",
		},
		{
			name:   "record missing",
			target: core.ErrMissingResource,
		},
		{
			name:    "attachment missing",
			records: []string{`{"添付ファイル": {"type": "FILE", "value": []}}`},
			target:  core.ErrMissingResource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/k/v1/records.json":
					assert.Equal(t, `レコード番号 = "6"`, r.URL.Query().Get("query"))
					writeRecords(w, tt.records)
				case "/k/v1/file.json":
					assert.Equal(t, "key-1", r.URL.Query().Get("fileKey"))
					_, _ = w.Write([]byte("xlsx-bytes"))
				default:
					http.NotFound(w, r)
				}
			})

			data, err := NewStore(c).FetchTemplate(context.Background(), 31, "6")
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestTransportErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(t, w, map[string]string{"code": "GAIA_NO01", "message": "Using this API token, you cannot run the specified API."})
	})

	_, err := NewStore(c).FetchAll(context.Background(), core.Query{App: 24})
	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Contains(t, te.Error(), "GAIA_NO01")
}

func TestFetchHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "10" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(t, w, map[string]string{"code": "GAIA_RE01", "message": "not found"})
			return
		}
		_, _ = w.Write([]byte(`{"record": {
			"顧客名": {"type": "SINGLE_LINE_TEXT", "value": "株式会社テスト"},
			"開始日": {"type": "DATE", "value": "2024-04-01"},
			"終了日": {"type": "DATE", "value": "2024-04-30"},
			"out_category": {"type": "DROP_DOWN", "value": "請求書"},
			"person": {"type": "USER_SELECT", "value": [{"code": "yamada", "name": "山田太郎"}]}
		}}`))
	})

	h, err := NewStore(c).FetchHeader(context.Background(), 40, "10")
	require.NoError(t, err)
	assert.Equal(t, "株式会社テスト", h.Customer)
	assert.Equal(t, "2024-04-01", h.StartDate)
	assert.Equal(t, "請求書", h.OutCategory)
	assert.Equal(t, "山田太郎", h.Person)

	_, err = NewStore(c).FetchHeader(context.Background(), 40, "11")
	assert.ErrorIs(t, err, core.ErrMissingResource)
}

func TestFieldText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"abc"`, "abc"},
		{`null`, ""},
		{`["a","b"]`, "a, b"},
		{`{"code":"u1","name":"User"}`, "User"},
		{`[{"code":"u1","name":"A"},{"code":"u2","name":"B"}]`, "A, B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Field{Value: json.RawMessage(tt.raw)}.Text(), tt.raw)
	}
}

func TestStoreFetchPeriod(t *testing.T) {
	var query string
	var fieldParams int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		for k := range r.URL.Query() {
			if strings.HasPrefix(k, "fields") {
				fieldParams++
			}
		}
		writeRecords(w, []string{workRecord(1), workRecord(2)})
	})

	from, _ := core.ParseDate("2024-04-01")
	to, _ := core.ParseDate("2024-04-30")
	raws, err := NewStore(c).FetchPeriod(context.Background(), 24, "作業日", from, to)
	require.NoError(t, err)
	assert.Len(t, raws, 2)
	assert.Equal(t, `$id > 0 and (作業日 >= "2024-04-01" and 作業日 <= "2024-04-30") order by $id asc limit 500`, query)
	assert.Zero(t, fieldParams)
}
