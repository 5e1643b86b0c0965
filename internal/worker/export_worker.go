package worker

import (
	"context"
	"fmt"
	"time"

	"dreams/internal/amqp"
	"dreams/internal/cache"
	"dreams/internal/core"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
	"dreams/internal/sheets"
)

// EventSnapshot labels rows written by Backfill.
const EventSnapshot = "snapshot"

// DreamSource is the read side of the dream database used by the export.
type DreamSource interface {
	GetDream(ctx context.Context, id int64) (core.DreamRecord, error)
	ListAll(ctx context.Context) ([]core.DreamRecord, error)
}

// ExportWorker mirrors dream change events into the export sheet
type ExportWorker struct {
	dreams  DreamSource
	sheet   sheets.DreamRowWriter
	metrics *metrics.Metrics
	logger  *applog.Logger
	events  *applog.StructuredLogger
	seen    *cache.LRUCache[struct{}]
}

// NewExportWorker builds a worker. Message ids handled within the last hour are
// remembered so redelivered messages do not append duplicate rows.
func NewExportWorker(dreams DreamSource, sheet sheets.DreamRowWriter, m *metrics.Metrics, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	return &ExportWorker{
		dreams:  dreams,
		sheet:   sheet,
		metrics: m,
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
		seen:    cache.NewLRUCache[struct{}](1024, time.Hour),
	}
}

// Seen exposes the message id cache so it can be registered for periodic cleanup.
func (w *ExportWorker) Seen() cache.Cleaner {
	return w.seen
}

// HandleDreamEvent processes a single dream event from AMQP. A returned error
// requeues the message; failures that a retry cannot fix are logged and dropped.
func (w *ExportWorker) HandleDreamEvent(ctx context.Context, msg *amqp.DreamEventMessage) error {
	if _, ok := w.seen.Get(msg.MessageID); ok {
		w.logger.DebugContext(ctx, "Duplicate dream event ignored", "message_id", msg.MessageID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing dream event",
		applog.FieldDreamID, msg.DreamID,
		applog.FieldEventType, msg.Type,
		"message_id", msg.MessageID)

	var (
		ref string
		err error
	)
	switch msg.Type {
	case amqp.EventDeleted:
		ref, err = w.sheet.AppendTombstone(ctx, sheets.Tombstone{
			DreamID:   msg.DreamID,
			Name:      msg.Name,
			DreamDate: msg.DreamDate,
		}, msg.Timestamp)
	default:
		var rec core.DreamRecord
		rec, err = w.dreams.GetDream(ctx, msg.DreamID)
		if core.IsNotFound(err) {
			// Deleted before the event was consumed; the deleted event writes the tombstone.
			w.logger.WarnContext(ctx, "Dream no longer exists, skipping export", applog.FieldDreamID, msg.DreamID)
			w.count(string(msg.Type), "skipped")
			w.seen.Set(msg.MessageID, struct{}{})
			return nil
		}
		if err != nil {
			w.count(string(msg.Type), "error")
			return fmt.Errorf("get dream from storage: %w", err)
		}
		ref, err = w.sheet.AppendDream(ctx, string(msg.Type), rec, msg.Timestamp)
	}

	if err != nil {
		w.count(string(msg.Type), "error")
		if sheets.IsPermanent(err) {
			w.events.LogError(ctx, "Dropping dream event the sheet rejected", err, applog.ComponentSheets, applog.OpExport,
				applog.LogFields{applog.FieldDreamID: msg.DreamID, "message_id": msg.MessageID})
			w.seen.Set(msg.MessageID, struct{}{})
			return nil
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.count(string(msg.Type), "success")
	w.seen.Set(msg.MessageID, struct{}{})
	w.logger.InfoContext(ctx, "Dream exported",
		applog.FieldDreamID, msg.DreamID,
		applog.FieldEventType, msg.Type,
		"sheets_ref", ref)
	return nil
}

// Backfill appends a snapshot row for every stored dream. It recovers a sheet
// after missed events or worker downtime.
func (w *ExportWorker) Backfill(ctx context.Context) (int, error) {
	records, err := w.dreams.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list dreams for backfill: %w", err)
	}
	if len(records) == 0 {
		w.logger.InfoContext(ctx, "No dreams to backfill")
		return 0, nil
	}

	now := time.Now()
	exported, failed := 0, 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if _, err := w.sheet.AppendDream(ctx, EventSnapshot, rec, now); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export dream during backfill",
				applog.FieldDreamID, rec.ID, applog.FieldError, err)
			w.count(EventSnapshot, "error")
			failed++
			continue
		}
		w.count(EventSnapshot, "success")
		exported++
	}

	w.logger.InfoContext(ctx, "Backfill completed",
		"total", len(records),
		"exported", exported,
		"errors", failed)
	return exported, nil
}

func (w *ExportWorker) count(eventType, result string) {
	if w.metrics != nil {
		w.metrics.ExportedRows.WithLabelValues(eventType, result).Inc()
	}
}
