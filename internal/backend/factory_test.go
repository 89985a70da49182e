package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"finform/internal/config"
	"finform/internal/log"
	"finform/internal/sheets/memory"
	"finform/internal/sheets/remote"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:   "remote",
		FinanceAPIURL: "http://api",
		APITimeout:    3 * time.Second,
		SeedDir:       "seeds",
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != RemoteBackend || bc.FinanceAPIURL != "http://api" || bc.APITimeout != 3*time.Second || bc.DataDirectory != "seeds" {
		t.Fatalf("unexpected backend config: %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sqlite"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"remote ok", Config{Type: RemoteBackend, FinanceAPIURL: "http://api"}, ""},
		{"remote without url", Config{Type: RemoteBackend}, "finance API URL is required"},
		{"sheets without id", Config{Type: SheetsBackend, FinanceAPIURL: "http://api"}, "Spreadsheet ID is required"},
		{"memory ok", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "sqlite"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(log.Discard())

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Backend.Options.(*memory.Store); !ok {
		t.Fatalf("memory backend should use the memory store")
	}
	if res.Backend.Sink == nil || res.Backend.Lister == nil || res.Backend.Pinger == nil {
		t.Fatalf("memory backend incomplete: %+v", res.Backend)
	}

	res, err = f.CreateBackend(context.Background(), Config{Type: RemoteBackend, FinanceAPIURL: "http://api"})
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	if _, ok := res.Backend.Sink.(*remote.Client); !ok {
		t.Fatalf("remote backend should submit through the remote client")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := f.CreateBackend(context.Background(), Config{Type: SheetsBackend, FinanceAPIURL: "http://api", GoogleSpreadsheetID: "id"}); err == nil {
		t.Fatalf("sheets backend without credentials should fail")
	}
}

func TestBackendTypeStrings(t *testing.T) {
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "remote,sheets,memory" {
		t.Fatalf("types = %s", got)
	}
}
