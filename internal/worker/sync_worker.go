// Package worker mirrors budget lines from the sqlite store to the
// backup sheet. It is driven two ways: sync messages from AMQP, and a
// periodic catch-up scan over lines still flagged unsynced (missed
// publishes, failed appends, lines written while AMQP was down).
package worker

import (
	"context"
	"fmt"

	"finanzapp/internal/amqp"
	"finanzapp/internal/export"
	"finanzapp/internal/log"
	"finanzapp/internal/storage/sqlite"
)

// SyncWorker appends unsynced budget lines to the sheet and flips
// their sync flag. Only the sqlite backend carries sync bookkeeping,
// so the dependency is the concrete store.
type SyncWorker struct {
	store     *sqlite.Store
	sheet     export.RowAppender
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store *sqlite.Store, sheet export.RowAppender, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		store:     store,
		sheet:     sheet,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one sync message from the queue. The line is
// reread from the database so the sheet always gets current values. A
// message for a line deleted in the meantime is acknowledged and
// dropped.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.BudgetSyncMessage) error {
	return w.syncLine(ctx, msg.Kind, msg.ID)
}

// ProcessPending scans for unsynced lines (including earlier failures)
// and exports up to one batch. It returns how many lines were synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending exports: %w", err)
	}

	synced := 0
	for _, line := range pending {
		if err := w.syncLine(ctx, line.Kind, line.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync budget line",
				log.FieldError, err,
				log.FieldLineKind, line.Kind,
				log.FieldLineID, line.ID)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupCheck runs one catch-up pass and logs the result. Called once
// before consuming so a backlog from downtime drains immediately.
func (w *SyncWorker) StartupCheck(ctx context.Context) error {
	synced, err := w.ProcessPending(ctx)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Startup sync check complete", "synced", synced)
	return nil
}

func (w *SyncWorker) syncLine(ctx context.Context, kind string, id int64) error {
	row, err := w.store.ExportRow(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	if row == nil {
		w.logger.InfoContext(ctx, "Budget line gone before sync, skipping",
			log.FieldLineKind, kind,
			log.FieldLineID, id)
		return nil
	}

	ref, err := w.sheet.Append(ctx, *row)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, kind, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to flag sync error",
				log.FieldError, markErr,
				log.FieldLineKind, kind,
				log.FieldLineID, id)
		}
		return fmt.Errorf("append %s %d to sheet: %w", kind, id, err)
	}

	if err := w.store.MarkSynced(ctx, kind, id); err != nil {
		return fmt.Errorf("mark %s %d synced: %w", kind, id, err)
	}

	w.logger.InfoContext(ctx, "Synced budget line",
		log.FieldLineKind, kind,
		log.FieldLineID, id,
		log.FieldSheetsRef, ref)
	return nil
}
