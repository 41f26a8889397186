package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/SHUNKURANARI/excel/internal/report"
)

// Backends lists the valid DATA_BACKEND values.
var Backends = []string{"kintone", "sqlite", "sheets", "memory"}

type Config struct {
	// HTTP Server
	Port               string `envconfig:"PORT" default:"8081"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Backend selection
	DataBackend string `envconfig:"DATA_BACKEND" default:"memory"`

	// kintone
	KintoneBaseURL        string        `envconfig:"KINTONE_BASE_URL"`
	KintoneAPIToken       string        `envconfig:"KINTONE_API_TOKEN"`
	KintoneUsername       string        `envconfig:"KINTONE_USERNAME"`
	KintonePassword       string        `envconfig:"KINTONE_PASSWORD"`
	KintoneTimeout        time.Duration `envconfig:"KINTONE_TIMEOUT" default:"30s"`
	RecordApp             int           `envconfig:"KINTONE_RECORD_APP" default:"24"`
	TemplateApp           int           `envconfig:"KINTONE_TEMPLATE_APP" default:"31"`
	HeaderApp             int           `envconfig:"KINTONE_HEADER_APP"`
	InvoiceTemplateRecord string        `envconfig:"INVOICE_TEMPLATE_RECORD" default:"6"`
	PaymentTemplateRecord string        `envconfig:"PAYMENT_TEMPLATE_RECORD" default:"7"`

	// Template cache
	TemplateCacheSize int           `envconfig:"TEMPLATE_CACHE_SIZE" default:"16"`
	TemplateCacheTTL  time.Duration `envconfig:"TEMPLATE_CACHE_TTL" default:"10m"`

	// Local storage
	SQLiteDBPath string `envconfig:"SQLITE_DB_PATH" default:"./data/excel.db"`
	DataDir      string `envconfig:"DATA_DIR" default:"./data"`
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"./output"`

	// AMQP
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"excel"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"report_jobs"`

	// Jobs
	JobPollInterval time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"30s"`
	JobBatchSize    int           `envconfig:"JOB_BATCH_SIZE" default:"10"`
	JobMaxRetries   int           `envconfig:"JOB_MAX_RETRIES" default:"3"`

	// Google Sheets
	GoogleSpreadsheetID      string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleRecordsSheet       string `envconfig:"GOOGLE_RECORDS_SHEET" default:"Records"`
	GoogleExpensesSheet      string `envconfig:"GOOGLE_EXPENSES_SHEET" default:"Expenses"`
	GoogleServiceAccountJSON string `envconfig:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Apps returns the record and template locations.
func (c *Config) Apps() report.Apps {
	return report.Apps{
		Records:         c.RecordApp,
		Templates:       c.TemplateApp,
		InvoiceTemplate: c.InvoiceTemplateRecord,
		PaymentTemplate: c.PaymentTemplateRecord,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.RecordApp < 1 || c.TemplateApp < 1 {
		errors = append(errors, "kintone record and template app IDs must be positive")
	}
	if c.InvoiceTemplateRecord == "" || c.PaymentTemplateRecord == "" {
		errors = append(errors, "invoice and payment template record numbers cannot be empty")
	}

	if c.DataBackend == "kintone" {
		if c.KintoneBaseURL == "" {
			errors = append(errors, "KINTONE_BASE_URL is required when using kintone backend")
		} else if u, err := url.Parse(c.KintoneBaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errors = append(errors, fmt.Sprintf("invalid kintone base URL '%s': must be an http(s) URL", c.KintoneBaseURL))
		}
		if c.KintoneAPIToken == "" && (c.KintoneUsername == "" || c.KintonePassword == "") {
			errors = append(errors, "either KINTONE_API_TOKEN or KINTONE_USERNAME and KINTONE_PASSWORD must be provided for kintone backend")
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TemplateCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid template cache size %d: must be at least 1", c.TemplateCacheSize))
	}

	if c.JobBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid job batch size %d: must be at least 1", c.JobBatchSize))
	} else if c.JobBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid job batch size %d: must be at most 1000", c.JobBatchSize))
	}
	if c.JobPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid job poll interval %v: must be at least 1 second", c.JobPollInterval))
	} else if c.JobPollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid job poll interval %v: must be at most 24 hours", c.JobPollInterval))
	}
	if c.JobMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid job max retries %d: must be at least 1", c.JobMaxRetries))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
