package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smartbudget/internal/amqp"
	"smartbudget/internal/export/sheets"
	"smartbudget/internal/ledger"
	"smartbudget/internal/ledger/memory"
	"smartbudget/internal/services"
	"smartbudget/internal/storage"
)

const processorStopTimeout = 10 * time.Second

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
		logger: logger,
	}
}

// CreateBackend opens the ledger store and wires event publishing:
// AMQP when a broker URL is set, otherwise an in-process SyncProcessor when
// Sheets export is configured, otherwise none.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	res := &BackendResult{Store: store}
	var closers []func() error

	if config.GoogleSpreadsheetID != "" {
		client, err := sheets.NewFromEnv(ctx, config.GoogleSpreadsheetID, config.GoogleSheetPrefix)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Exporter = client
		f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
	}

	switch {
	case config.AMQPURL != "":
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without budget events", "error", err)
		} else {
			res.Publisher = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP publisher",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	case res.Exporter != nil:
		loader := services.NewBudgetService(store, nil)
		proc := services.NewSyncProcessor(loader, res.Exporter, services.SyncProcessorConfig{
			PollInterval: config.SyncInterval,
			BatchSize:    config.SyncBatchSize,
		})
		res.Publisher = proc
		res.Processor = proc
		closers = append(closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), processorStopTimeout)
			defer cancel()
			return proc.Stop(ctx)
		})
		f.logger.Info("Using in-process report sync", "batch_size", config.SyncBatchSize)
	default:
		f.logger.Info("Budget update events disabled - no AMQP_URL or GOOGLE_SPREADSHEET_ID provided")
	}

	closers = append(closers, store.Close)
	res.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (ledger.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
