// Package worker drains the mutation log into the audit mirror. Events from
// the queue are a nudge to sweep; the interval sweep catches anything the
// queue missed, so the mirror converges even across worker restarts.
package worker

import (
	"context"
	"fmt"
	"time"

	"finbook/internal/amqp"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// MutationSource is the slice of the SQLite repository the worker needs.
type MutationSource interface {
	UnsyncedMutations(ctx context.Context, limit int) ([]storage.LoggedMutation, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// MirrorAppender appends one mutation row to the audit sheet. Satisfied by
// *mirror.Client.
type MirrorAppender interface {
	Append(ctx context.Context, occurredAt time.Time, kind, op, entityID string) error
}

var _ MutationSource = (*storage.SQLiteRepository)(nil)

// SyncWorker mirrors accepted mutations from the SQLite log to Google Sheets.
type SyncWorker struct {
	source    MutationSource
	mirror    MirrorAppender
	logger    *log.Logger
	batchSize int
}

func NewSyncWorker(source MutationSource, mirror MirrorAppender, logger *log.Logger, batchSize int) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleMutationEvent processes one event from the queue. The event itself
// carries no payload worth mirroring directly; it triggers a sweep so the
// mutation log stays the single source of what needs syncing.
func (w *SyncWorker) HandleMutationEvent(ctx context.Context, msg *amqp.MutationEvent) error {
	w.logger.DebugContext(ctx, "Mutation event received",
		log.FieldEntityKind, msg.Kind,
		log.FieldOperation, msg.Op,
		log.FieldEntityID, msg.EntityID)
	return w.ProcessPendingMutations(ctx)
}

// ProcessPendingMutations mirrors up to one batch of unsynced rows. A row
// whose append fails is parked with the sync_error flag so one poison row
// cannot wedge the batch; parked rows need manual review.
func (w *SyncWorker) ProcessPendingMutations(ctx context.Context) error {
	rows, err := w.source.UnsyncedMutations(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced mutations: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Syncing pending mutations",
		log.FieldOperation, log.OpSync,
		"count", len(rows))

	for _, row := range rows {
		if w.mirror != nil {
			err := w.mirror.Append(ctx, row.CreatedAt,
				string(row.EntityKind), row.Op, row.EntityID.String())
			if err != nil {
				w.logger.ErrorContext(ctx, "Mirror append failed",
					log.FieldError, err,
					"mutation_id", row.ID,
					log.FieldEntityKind, row.EntityKind)
				if markErr := w.source.MarkSyncError(ctx, row.ID); markErr != nil {
					return fmt.Errorf("mark sync error: %w", markErr)
				}
				continue
			}
		}
		if err := w.source.MarkSynced(ctx, row.ID); err != nil {
			return fmt.Errorf("mark synced: %w", err)
		}
	}
	return nil
}

// StartupSyncCheck runs one sweep at boot to cover mutations accepted while
// the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup sync check",
		log.FieldOperation, log.OpStartup)
	return w.ProcessPendingMutations(ctx)
}
