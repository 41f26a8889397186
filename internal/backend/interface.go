package backend

import (
	"context"
	"time"

	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// Backend serves everything report generation reads.
type Backend interface {
	sheets.RecordStore
	sheets.TemplateStore
	sheets.HeaderReader
}

// Stores assembles a Backend from separate stores.
type Stores struct {
	sheets.RecordStore
	sheets.TemplateStore
	sheets.HeaderReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Writer accepts mirrored records; nil for read-only backends.
	Writer sheets.RecordWriter
	// Repository is set when the backend already opened the SQLite
	// database, so the job queue can share it.
	Repository *storage.SQLiteRepository
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// kintone specific
	KintoneBaseURL  string
	KintoneAPIToken string
	KintoneUsername string
	KintonePassword string
	KintoneTimeout  time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleRecordsSheet       string
	GoogleExpensesSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Seed files: records for the memory backend, templates and headers
	// for every backend but kintone
	DataDirectory string

	// Remote template cache
	TemplateCacheSize int
	TemplateCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	KintoneBackend BackendType = "kintone"
	SQLiteBackend  BackendType = "sqlite"
	SheetsBackend  BackendType = "sheets"
	MemoryBackend  BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case KintoneBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
