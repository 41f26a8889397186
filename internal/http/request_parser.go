// Package http provides the report API server and its handlers.
//
// This file implements parsing of report request bodies. Bodies may be JSON
// objects or form-encoded, keyed by the JSON names of core.Header.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
)

// maxBodyBytes bounds report request bodies. Headers are a few dozen short
// strings.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	values      map[string]string
	parsed      bool
	isJSON      bool
	err         error
}

// NewRequestBodyParser reads the body once, at most maxBodyBytes of it.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse reads the body as a JSON object or as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	p.values = make(map[string]string)

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.isJSON = true
		var raw map[string]any
		if err := json.Unmarshal([]byte(body), &raw); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		for k, v := range raw {
			p.values[k] = sanitizeInput(stringValue(v))
		}
		return nil
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		p.err = fmt.Errorf("decode form body: %w", err)
		return p.err
	}
	for k := range form {
		p.values[k] = sanitizeInput(form.Get(k))
	}
	return nil
}

// Get returns a trimmed, sanitized value, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	return p.values[key]
}

// IsJSON reports whether the body was a JSON object.
func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// Header maps the parsed values onto a report header. Unknown keys are
// ignored.
func (p *RequestBodyParser) Header() (core.Header, error) {
	if err := p.Parse(); err != nil {
		return core.Header{}, err
	}
	buf, err := json.Marshal(p.values)
	if err != nil {
		return core.Header{}, err
	}
	var h core.Header
	if err := json.Unmarshal(buf, &h); err != nil {
		return core.Header{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// TooLarge reports whether reading failed because the body exceeded the
// limit.
func (p *RequestBodyParser) TooLarge() bool {
	var mbe *http.MaxBytesError
	return errors.As(p.err, &mbe)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
