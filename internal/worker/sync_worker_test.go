package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smartbudget/internal/amqp"
	"smartbudget/internal/cache"
	"smartbudget/internal/core"
	"smartbudget/internal/ledger/memory"
	"smartbudget/internal/services"
)

type fakeExporter struct {
	mu      sync.Mutex
	budgets map[int64]core.Budget
	calls   int
	err     error
}

func (f *fakeExporter) ExportBudget(_ context.Context, userID int64, b core.Budget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.budgets == nil {
		f.budgets = map[int64]core.Budget{}
	}
	f.budgets[userID] = b
	return nil
}

func newTestWorker(t *testing.T, exp services.BudgetExporter) (*SyncWorker, *services.BudgetService) {
	t.Helper()
	svc := services.NewBudgetService(memory.New(), nil)
	in := core.Income{"Salary": decimal.RequireFromString("8000")}
	if err := svc.SaveBudget(context.Background(), 1, in, core.Expenses{}, nil); err != nil {
		t.Fatal(err)
	}
	return NewSyncWorker(svc, exp, cache.NewLRUCache[time.Time](100, time.Hour)), svc
}

func TestHandleBudgetUpdated(t *testing.T) {
	exp := &fakeExporter{}
	w, _ := newTestWorker(t, exp)

	msg := amqp.NewBudgetUpdatedMessage(1)
	if err := w.HandleBudgetUpdated(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	got := exp.budgets[1]
	if !got.Income["Salary"].Equal(decimal.RequireFromString("8000")) {
		t.Fatalf("exported budget = %+v", got)
	}
}

func TestHandleBudgetUpdated_SkipsStaleEvents(t *testing.T) {
	exp := &fakeExporter{}
	w, _ := newTestWorker(t, exp)
	ctx := context.Background()

	old := amqp.NewBudgetUpdatedMessage(1)
	old.Timestamp = time.Now().UTC().Add(-time.Minute)

	if err := w.HandleBudgetUpdated(ctx, amqp.NewBudgetUpdatedMessage(1)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleBudgetUpdated(ctx, old); err != nil {
		t.Fatal(err)
	}
	if exp.calls != 1 {
		t.Fatalf("calls = %d, want 1", exp.calls)
	}
}

func TestHandleBudgetUpdated_ExportFailure(t *testing.T) {
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w, _ := newTestWorker(t, exp)
	if err := w.HandleBudgetUpdated(context.Background(), amqp.NewBudgetUpdatedMessage(1)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestHandleBudgetUpdated_NoExporter(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	err := w.HandleBudgetUpdated(context.Background(), amqp.NewBudgetUpdatedMessage(1))
	if !errors.Is(err, services.ErrSyncDisabled) {
		t.Fatalf("expected ErrSyncDisabled, got %v", err)
	}
}

func TestSyncUsers(t *testing.T) {
	exp := &fakeExporter{}
	w, _ := newTestWorker(t, exp)

	n, err := w.SyncUsers(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || exp.calls != 3 {
		t.Fatalf("synced %d with %d calls", n, exp.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.SyncUsers(ctx, []int64{1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type slowExporter struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	failFor  int64
}

func (e *slowExporter) ExportBudget(_ context.Context, userID int64, _ core.Budget) error {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if userID == e.failFor {
		return errors.New("sheet locked")
	}
	return nil
}

func TestSyncUsers_BoundedAndKeepsGoing(t *testing.T) {
	exp := &slowExporter{failFor: 3}
	w, _ := newTestWorker(t, exp)

	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	n, err := w.SyncUsers(context.Background(), ids)
	if err == nil {
		t.Fatal("expected the failed export to be reported")
	}
	if n != len(ids)-1 {
		t.Fatalf("synced %d, want %d", n, len(ids)-1)
	}
	if peak := exp.peak.Load(); peak > syncConcurrency {
		t.Fatalf("peak concurrency %d exceeds %d", peak, syncConcurrency)
	}
	if _, ok := w.exported.Get(userKey(3)); ok {
		t.Fatal("failed user must not be marked exported")
	}
}
