package backend

import (
	"context"
	"fmt"

	"finform/internal/log"
	gsheet "finform/internal/sheets/google"
	"finform/internal/sheets/memory"
	"finform/internal/sheets/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) newRemote(config Config) *remote.Client {
	return remote.New(config.FinanceAPIURL, remote.WithTimeout(config.APITimeout))
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	cli := f.newRemote(config)
	f.logger.Info("Initialized remote backend", "url", config.FinanceAPIURL, "timeout", config.APITimeout)
	return &BackendResult{
		Backend: Backend{Options: cli, Sink: cli, Lister: cli, Pinger: cli},
	}, nil
}

// createSheetsBackend reads options and entries from the spreadsheet and
// submits through the finance service.
func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sheet, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	cli := f.newRemote(config)

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID, "url", config.FinanceAPIURL)
	return &BackendResult{
		Backend: Backend{Options: sheet, Sink: cli, Lister: sheet, Pinger: cli},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{
		Backend: Backend{Options: store, Sink: store, Lister: store, Pinger: store},
	}, nil
}
