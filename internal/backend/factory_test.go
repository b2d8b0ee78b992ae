package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smartbudget/internal/config"
	"smartbudget/internal/export/sheets"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "x.db",
		GoogleSheetPrefix: "Budget",
		SyncBatchSize:     5,
		SyncInterval:      time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.SyncBatchSize != 5 {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if res.Store == nil {
		t.Fatal("store not created")
	}
	if res.Publisher != nil || res.Exporter != nil || res.Processor != nil {
		t.Fatalf("nothing optional should be wired: %+v", res)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.Store.CreateUser(context.Background(), "ann", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestCreateBackend_SheetsWithoutCredentials(t *testing.T) {
	clearCredentials(t)
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                MemoryBackend,
		GoogleSpreadsheetID: "sheet-1",
		GoogleSheetPrefix:   "Budget",
	})
	if !errors.Is(err, sheets.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}
