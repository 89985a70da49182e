package backend

import (
	"context"
	"time"

	"finform/internal/sheets"
)

// Backend groups the adapters one data backend provides.
type Backend struct {
	Options sheets.OptionSource
	Sink    sheets.EntrySink
	Lister  sheets.EntryLister
	Pinger  sheets.Pinger
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Finance service, used by remote and sheets
	FinanceAPIURL string
	APITimeout    time.Duration

	// Google Sheets option source
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend seed files
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
