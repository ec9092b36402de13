package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"profitcalc/internal/amqp"
	"profitcalc/internal/core"
	"profitcalc/internal/export"
	"profitcalc/internal/persistence"
	"profitcalc/internal/sheets/memory"
	"profitcalc/internal/storage"
)

type failingWriter struct{ failFor string }

func (f failingWriter) WriteTable(_ context.Context, owner string, _ export.Table) error {
	if owner == f.failFor {
		return errors.New("quota exceeded")
	}
	return nil
}

type noListStore struct{ storage.KeyValueStore }

func saveState(t *testing.T, store storage.KeyValueStore, owner string, mutate func(*core.CalculatorState)) {
	t.Helper()
	s := core.DefaultState(nil)
	mutate(&s)
	if status := persistence.New(store, owner, nil, nil).Save(context.Background(), s); status != persistence.SaveOK {
		t.Fatalf("save: %v", status)
	}
}

func TestHandleStateSavedWritesRecomputedTable(t *testing.T) {
	store := storage.NewMemoryStore()
	saveState(t, store, "alice", func(s *core.CalculatorState) {
		s.SetClientName("Acme")
		s.SetContractBilling("10000")
		s.Rows = core.Ledger{{ID: "a", HoursPerNight: 8, PayPerHour: 20, NightsPerWeek: 5}}
	})

	out := memory.New()
	w := NewSyncWorker(store, out, nil)
	if err := w.HandleStateSaved(context.Background(), amqp.NewStateSavedMessage("alice")); err != nil {
		t.Fatalf("HandleStateSaved: %v", err)
	}

	table, ok := out.Table("alice")
	if !ok {
		t.Fatalf("no table written")
	}
	if len(table) != export.FixedRows+1 {
		t.Fatalf("table has %d rows", len(table))
	}
	if table[0][1] != "Acme" || table[1][1] != "10000" {
		t.Fatalf("unexpected header rows: %v", table[:2])
	}
	if strings.Join(table[5], ",") != "1,8,20,5,4.333,3466.4" {
		t.Fatalf("unexpected payroll row: %v", table[5])
	}
}

func TestSyncOwnerWithoutRecordWritesDefault(t *testing.T) {
	out := memory.New()
	w := NewSyncWorker(storage.NewMemoryStore(), out, nil)
	if err := w.SyncOwner(context.Background(), "ghost"); err != nil {
		t.Fatalf("SyncOwner: %v", err)
	}
	table, _ := out.Table("ghost")
	if len(table) != export.FixedRows+core.DefaultPayrollRows {
		t.Fatalf("default table has %d rows", len(table))
	}
}

func TestSyncAll(t *testing.T) {
	store := storage.NewMemoryStore()
	for _, owner := range []string{"alice", "bob", "carol"} {
		saveState(t, store, owner, func(*core.CalculatorState) {})
	}

	out := memory.New()
	n, err := NewSyncWorker(store, out, nil).SyncAll(context.Background())
	if err != nil || n != 3 || out.Writes() != 3 {
		t.Fatalf("SyncAll = %d, %v (writes %d)", n, err, out.Writes())
	}

	n, err = NewSyncWorker(store, failingWriter{failFor: "bob"}, nil).SyncAll(context.Background())
	if n != 2 || err == nil || !strings.Contains(err.Error(), "bob") {
		t.Fatalf("SyncAll with failure = %d, %v", n, err)
	}

	if _, err := NewSyncWorker(noListStore{store}, out, nil).SyncAll(context.Background()); err == nil {
		t.Fatalf("expected error for store without owner listing")
	}
}

type countingSyncer struct{ calls atomic.Int32 }

func (c *countingSyncer) SyncAll(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestResyncLifecycle(t *testing.T) {
	syncer := &countingSyncer{}
	r := NewResync(syncer, 10*time.Millisecond, nil)
	ctx := context.Background()

	if r.IsRunning() {
		t.Fatalf("running before Start")
	}
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop when idle: %v", err)
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Fatalf("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for syncer.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if syncer.calls.Load() < 2 {
		t.Fatalf("resync ran %d times", syncer.calls.Load())
	}

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatalf("still running after Stop")
	}
}

func TestResyncRejectsNonPositiveInterval(t *testing.T) {
	if err := NewResync(&countingSyncer{}, 0, nil).Start(context.Background()); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
