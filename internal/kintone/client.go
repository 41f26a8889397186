// Package kintone is a small REST client for the kintone record and file
// APIs, plus the record, template and header stores built on it.
package kintone

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
)

// PageSize is the largest page the records API returns.
const PageSize = 500

// Config holds connection settings. APIToken wins over password auth.
type Config struct {
	BaseURL  string
	APIToken string
	Username string
	Password string
	Timeout  time.Duration
}

// Client calls the kintone REST API
type Client struct {
	baseURL    string
	authHeader string
	authValue  string
	httpClient *http.Client
}

// NewClient builds a client for cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("kintone base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse kintone base URL: %w", err)
	}
	c := &Client{baseURL: base, httpClient: &http.Client{Timeout: cfg.Timeout}}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	switch {
	case cfg.APIToken != "":
		c.authHeader, c.authValue = "X-Cybozu-API-Token", cfg.APIToken
	case cfg.Username != "" && cfg.Password != "":
		c.authHeader = "X-Cybozu-Authorization"
		c.authValue = base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
	default:
		return nil, errors.New("kintone API token or username and password are required")
	}
	return c, nil
}

// apiError is the error body of a failed API call.
type apiError struct {
	Code    string `json:"code"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set(c.authHeader, c.authValue)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	slog.DebugContext(ctx, "kintone request",
		log.FieldComponent, log.ComponentKintone,
		log.FieldOperation, op,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
			return nil, &core.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s: %s", ae.Code, ae.Message)}
		}
		return nil, &core.TransportError{Op: op, Status: resp.StatusCode}
	}
	return body, nil
}

func fieldParams(app int, fields []string) url.Values {
	params := url.Values{}
	params.Set("app", strconv.Itoa(app))
	for i, f := range fields {
		params.Set(fmt.Sprintf("fields[%d]", i), f)
	}
	return params
}

// GetRecords runs one records query.
func (c *Client) GetRecords(ctx context.Context, app int, query string, fields []string) ([]Record, error) {
	params := fieldParams(app, fields)
	if query != "" {
		params.Set("query", query)
	}
	body, err := c.do(ctx, "get records", "/k/v1/records.json", params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Records []Record `json:"records"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &core.TransportError{Op: "get records", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Records, nil
}

// GetAllRecords pages through every record matching condition, seeking
// by $id so no offset limit applies.
func (c *Client) GetAllRecords(ctx context.Context, app int, condition string, fields []string) ([]Record, error) {
	if len(fields) > 0 && !slices.Contains(fields, FieldID) {
		fields = append(append([]string(nil), fields...), FieldID)
	}
	var (
		all  []Record
		last int64
	)
	for {
		q := fmt.Sprintf("%s > %d", FieldID, last)
		if condition != "" {
			q += " and (" + condition + ")"
		}
		q += fmt.Sprintf(" order by %s asc limit %d", FieldID, PageSize)

		page, err := c.GetRecords(ctx, app, q, fields)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
		next, err := page[len(page)-1].ID()
		if err != nil {
			return nil, err
		}
		last = next
	}
}

// GetRecord loads one record by ID.
func (c *Client) GetRecord(ctx context.Context, app int, id string) (Record, error) {
	params := url.Values{}
	params.Set("app", strconv.Itoa(app))
	params.Set("id", id)
	body, err := c.do(ctx, "get record", "/k/v1/record.json", params)
	if err != nil {
		return nil, err
	}
	var out struct {
		Record Record `json:"record"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &core.TransportError{Op: "get record", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Record, nil
}

// DownloadFile fetches an attachment by file key.
func (c *Client) DownloadFile(ctx context.Context, fileKey string) ([]byte, error) {
	params := url.Values{}
	params.Set("fileKey", fileKey)
	return c.do(ctx, "download file", "/k/v1/file.json", params)
}
