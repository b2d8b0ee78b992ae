package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"smartbudget/internal/core"
)

var ErrSyncDisabled = errors.New("report sync is not configured")

// BudgetExporter writes a user's budget to an external destination.
type BudgetExporter interface {
	ExportBudget(ctx context.Context, userID int64, b core.Budget) error
}

// SnapshotLoader reads a user's current budget.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userID int64) (core.Budget, error)
}

// SyncReport exports userID's current budget.
func SyncReport(ctx context.Context, loader SnapshotLoader, exporter BudgetExporter, userID int64) error {
	if exporter == nil {
		return ErrSyncDisabled
	}
	b, err := loader.Snapshot(ctx, userID)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	if err := exporter.ExportBudget(ctx, userID, b); err != nil {
		return fmt.Errorf("export budget: %w", err)
	}
	return nil
}

type SyncProcessorConfig struct {
	// PollInterval is how often pending users are exported (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of users exported per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before a user is dropped (default: 3)
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor is the in-process alternative to the AMQP worker: it queues
// users whose budget changed and exports them in batches. Repeated updates
// for a queued user collapse into one export.
type SyncProcessor struct {
	loader   SnapshotLoader
	exporter BudgetExporter
	config   SyncProcessorConfig

	mu      sync.Mutex
	pending map[int64]int // user id -> failed attempts
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var _ Publisher = (*SyncProcessor)(nil)

func NewSyncProcessor(loader SnapshotLoader, exporter BudgetExporter, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &SyncProcessor{
		loader:   loader,
		exporter: exporter,
		config:   config,
		pending:  make(map[int64]int),
	}
}

// PublishBudgetUpdated queues userID for export.
func (p *SyncProcessor) PublishBudgetUpdated(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[userID]; !ok {
		p.pending[userID] = 0
	}
	return nil
}

// Pending returns the number of queued users.
func (p *SyncProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch exports up to BatchSize queued users, lowest id first, and
// returns how many succeeded.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	batch := p.takeBatch()
	if len(batch) == 0 {
		return 0
	}

	done := 0
	for _, item := range batch {
		if ctx.Err() != nil {
			p.requeue(item.userID, item.attempts)
			continue
		}
		err := SyncReport(ctx, p.loader, p.exporter, item.userID)
		if err == nil {
			done++
			continue
		}
		p.handleFailure(ctx, item.userID, item.attempts+1, err)
	}
	return done
}

type syncItem struct {
	userID   int64
	attempts int
}

func (p *SyncProcessor) takeBatch() []syncItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int64, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > p.config.BatchSize {
		ids = ids[:p.config.BatchSize]
	}

	batch := make([]syncItem, len(ids))
	for i, id := range ids {
		batch[i] = syncItem{userID: id, attempts: p.pending[id]}
		delete(p.pending, id)
	}
	return batch
}

// requeue puts a user back unless a newer update already queued it.
func (p *SyncProcessor) requeue(userID int64, attempts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[userID]; !ok {
		p.pending[userID] = attempts
	}
}

func (p *SyncProcessor) handleFailure(ctx context.Context, userID int64, attempts int, err error) {
	if attempts >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Report sync failed permanently after max retries",
			"user_id", userID,
			"attempts", attempts,
			"error", err)
		return
	}
	slog.WarnContext(ctx, "Report sync failed, will retry",
		"user_id", userID,
		"attempt", attempts,
		"error", err)
	p.requeue(userID, attempts)
}
