package worker

import (
	"context"
	"errors"
	"fmt"

	"profitcalc/internal/amqp"
	"profitcalc/internal/core"
	"profitcalc/internal/export"
	"profitcalc/internal/log"
	"profitcalc/internal/persistence"
	"profitcalc/internal/sheets"
	"profitcalc/internal/storage"
)

// SyncWorker copies stored calculators to the report spreadsheet. The
// stored record is the source of truth: every sync reloads it and recomputes
// the report, so duplicate or reordered messages are harmless.
type SyncWorker struct {
	store  storage.KeyValueStore
	writer sheets.ReportWriter
	ids    core.IDGenerator
	logger *log.Logger
}

func NewSyncWorker(store storage.KeyValueStore, writer sheets.ReportWriter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		store:  store,
		writer: writer,
		ids:    core.NewRowID,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleStateSaved is the amqp.Handler for state-saved messages.
func (w *SyncWorker) HandleStateSaved(ctx context.Context, msg *amqp.StateSavedMessage) error {
	w.logger.InfoContext(ctx, "Processing state saved message",
		log.FieldOwner, msg.Owner,
		"saved_at", msg.Timestamp)
	return w.SyncOwner(ctx, msg.Owner)
}

// SyncOwner writes the owner's current export table.
func (w *SyncWorker) SyncOwner(ctx context.Context, owner string) error {
	state := persistence.New(w.store, owner, w.ids, w.logger).Load(ctx)
	table := export.Build(state)
	if err := w.writer.WriteTable(ctx, owner, table); err != nil {
		return fmt.Errorf("write report for %s: %w", owner, err)
	}
	w.logger.InfoContext(ctx, "Report synced",
		log.FieldOwner, owner,
		log.FieldRows, len(state.Rows))
	return nil
}

// SyncAll syncs every owner that has a stored record. It keeps going past
// individual failures and returns them joined.
func (w *SyncWorker) SyncAll(ctx context.Context) (int, error) {
	lister, ok := w.store.(storage.OwnerLister)
	if !ok {
		return 0, errors.New("store cannot list owners")
	}
	owners, err := lister.Owners(ctx, persistence.StorageKey)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	var errs []error
	synced := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.SyncOwner(ctx, owner); err != nil {
			errs = append(errs, err)
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}
