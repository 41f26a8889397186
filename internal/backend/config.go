package backend

import (
	"errors"
	"fmt"

	"github.com/SHUNKURANARI/excel/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		KintoneBaseURL:  appConfig.KintoneBaseURL,
		KintoneAPIToken: appConfig.KintoneAPIToken,
		KintoneUsername: appConfig.KintoneUsername,
		KintonePassword: appConfig.KintonePassword,
		KintoneTimeout:  appConfig.KintoneTimeout,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleRecordsSheet:       appConfig.GoogleRecordsSheet,
		GoogleExpensesSheet:      appConfig.GoogleExpensesSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		DataDirectory: appConfig.DataDir,

		TemplateCacheSize: appConfig.TemplateCacheSize,
		TemplateCacheTTL:  appConfig.TemplateCacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case KintoneBackend:
		if c.KintoneBaseURL == "" {
			return errors.New("kintone base URL is required for kintone backend")
		}
		if c.KintoneAPIToken == "" && (c.KintoneUsername == "" || c.KintonePassword == "") {
			return errors.New("either an API token or username and password must be provided for kintone backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}

	case MemoryBackend:
		// DataDirectory defaults to "data"
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{KintoneBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
