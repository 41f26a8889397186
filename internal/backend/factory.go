package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SHUNKURANARI/excel/internal/adapters"
	"github.com/SHUNKURANARI/excel/internal/cache"
	"github.com/SHUNKURANARI/excel/internal/kintone"
	"github.com/SHUNKURANARI/excel/internal/log"
	gsheet "github.com/SHUNKURANARI/excel/internal/sheets/google"
	"github.com/SHUNKURANARI/excel/internal/sheets/memory"
	"github.com/SHUNKURANARI/excel/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(log.FieldComponent, log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case KintoneBackend:
		return f.createKintoneBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// KintoneClient builds the API client described by config. The sync
// command uses it directly as the mirror source.
func KintoneClient(config Config) (*kintone.Client, error) {
	return kintone.NewClient(kintone.Config{
		BaseURL:  config.KintoneBaseURL,
		APIToken: config.KintoneAPIToken,
		Username: config.KintoneUsername,
		Password: config.KintonePassword,
		Timeout:  config.KintoneTimeout,
	})
}

func (f *DefaultFactory) createKintoneBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := KintoneClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kintone client: %w", err)
	}
	store := kintone.NewStore(client)

	size := config.TemplateCacheSize
	if size < 1 {
		size = 16
	}
	templates := cache.NewTemplateCache(store, size, config.TemplateCacheTTL)
	manager := cache.NewManager()
	manager.Register(templates.Cleaner())
	if config.TemplateCacheTTL > 0 {
		manager.Start(ctx, config.TemplateCacheTTL)
	}

	f.logger.Info("Initialized kintone backend",
		"base_url", config.KintoneBaseURL,
		"template_cache_size", size,
		"template_cache_ttl", config.TemplateCacheTTL)

	return &BackendResult{
		Backend: Stores{RecordStore: store, TemplateStore: templates, HeaderReader: store},
		Cleanup: func() error {
			manager.Stop()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	files, err := memory.NewFromFiles(dataDir(config))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load seed files: %w", err)
	}
	adapter := adapters.NewSQLiteAdapter(repo, files)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"data_directory", dataDir(config))

	return &BackendResult{
		Backend:    adapter,
		Writer:     adapter,
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		RecordsSheet:       config.GoogleRecordsSheet,
		ExpensesSheet:      config.GoogleExpensesSheet,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	files, err := memory.NewFromFiles(dataDir(config))
	if err != nil {
		return nil, fmt.Errorf("failed to load seed files: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Backend: adapters.NewRecordsAdapter(cli, files),
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFiles(dataDir(config))
	if err != nil {
		return nil, fmt.Errorf("failed to load seed files: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir(config))

	return &BackendResult{
		Backend: store,
		Writer:  store,
	}, nil
}

func dataDir(config Config) string {
	if config.DataDirectory == "" {
		return "data"
	}
	return config.DataDirectory
}
