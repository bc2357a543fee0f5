// Package worker moves persisted expense records into the external ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/export"
	"khata/internal/storage"
)

// ExportWorker appends expense records from SQLite to the ledger. It is
// driven by AMQP messages with a periodic sweep as backup for lost ones.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	ledger    export.RecordWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, ledger export.RecordWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single record export message from AMQP
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.RecordExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "record_id", msg.ID)

	if err := w.exportRecord(ctx, msg.ID); err != nil {
		// A record deleted between publish and delivery is not an error;
		// dropping the message is the right outcome.
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Record gone before export, dropping message", "record_id", msg.ID)
			return nil
		}
		return err
	}
	return nil
}

// ProcessPending exports any records that never made it to the ledger.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.storage.PendingExportIDs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.exportRecord(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending record", "record_id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains a larger pending batch once at worker startup to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.storage.PendingExportIDs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(ids))

	exported := 0
	failed := 0
	for _, id := range ids {
		if err := w.exportRecord(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"record_id", id, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(ids),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportRecord(ctx context.Context, id string) error {
	rec, err := w.storage.GetRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("get record %s: %w", id, err)
	}

	ref, err := w.ledger.Append(ctx, rec)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "record_id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		// The append succeeded; the sweep may re-append this row.
		slog.ErrorContext(ctx, "Failed to mark record as exported", "record_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Record exported to ledger",
		"record_id", id,
		"ledger_ref", ref,
		"owner", rec.Owner,
		"amount", rec.Amount)

	return nil
}
