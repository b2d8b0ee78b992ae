package backend

import (
	"context"
	"time"

	"smartbudget/internal/ledger"
	"smartbudget/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is everything the services need from the outside world.
type BackendResult struct {
	Store ledger.Store
	// Publisher is nil when neither AMQP nor Sheets is configured.
	Publisher services.Publisher
	// Exporter is nil when Sheets is not configured.
	Exporter services.BudgetExporter
	// Processor is set when reports are synced in-process instead of through AMQP.
	Processor *services.SyncProcessor
	Cleanup   CleanupFunc
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

	// SQLite specific
	SQLiteDBPath string

	// Event publishing (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report export (optional)
	GoogleSpreadsheetID string
	GoogleSheetPrefix   string

	// In-process sync
	SyncBatchSize int
	SyncInterval  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
