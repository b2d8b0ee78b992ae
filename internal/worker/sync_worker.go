package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"smartbudget/internal/amqp"
	"smartbudget/internal/cache"
	"smartbudget/internal/services"
)

// syncConcurrency bounds parallel exports during a bulk sync.
const syncConcurrency = 4

// SyncWorker exports a user's budget report whenever a budget.updated event
// arrives.
type SyncWorker struct {
	loader   services.SnapshotLoader
	exporter services.BudgetExporter
	// last export time per user, used to skip events that predate it
	exported cache.Cache[time.Time]
}

func NewSyncWorker(loader services.SnapshotLoader, exporter services.BudgetExporter, exported cache.Cache[time.Time]) *SyncWorker {
	return &SyncWorker{
		loader:   loader,
		exporter: exporter,
		exported: exported,
	}
}

// HandleBudgetUpdated processes a single budget.updated message from AMQP.
// Returning an error requeues the message.
func (w *SyncWorker) HandleBudgetUpdated(ctx context.Context, msg *amqp.BudgetUpdatedMessage) error {
	slog.InfoContext(ctx, "Processing budget update",
		"message_id", msg.ID,
		"user_id", msg.UserID)

	key := userKey(msg.UserID)
	if last, ok := w.exported.Get(key); ok && !msg.Timestamp.After(last) {
		slog.DebugContext(ctx, "Skipping stale budget update",
			"message_id", msg.ID,
			"user_id", msg.UserID,
			"last_export", last.Format(time.RFC3339))
		return nil
	}

	started := time.Now().UTC()
	if err := services.SyncReport(ctx, w.loader, w.exporter, msg.UserID); err != nil {
		slog.ErrorContext(ctx, "Failed to export budget report",
			"message_id", msg.ID,
			"user_id", msg.UserID,
			"error", err)
		return fmt.Errorf("sync report for user %d: %w", msg.UserID, err)
	}
	w.exported.Set(key, started)

	slog.InfoContext(ctx, "Successfully exported budget report",
		"message_id", msg.ID,
		"user_id", msg.UserID)
	return nil
}

// SyncUsers exports the given users directly, e.g. on startup to recover from
// missed events. At most syncConcurrency exports run at once. It keeps going
// past failures and reports how many succeeded.
func (w *SyncWorker) SyncUsers(ctx context.Context, userIDs []int64) (int, error) {
	var (
		synced   atomic.Int64
		mu       sync.Mutex
		firstErr error
	)
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for _, id := range userIDs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := services.SyncReport(ctx, w.loader, w.exporter, id); err != nil {
				slog.ErrorContext(ctx, "Failed to sync user", "user_id", id, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			w.exported.Set(userKey(id), time.Now().UTC())
			synced.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(synced.Load())
	if err := ctx.Err(); err != nil {
		return n, err
	}
	slog.InfoContext(ctx, "Manual sync completed",
		"total", len(userIDs),
		"synced", n,
		"errors", len(userIDs)-n)
	return n, firstErr
}

func userKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
