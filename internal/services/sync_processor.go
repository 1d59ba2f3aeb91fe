package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finjoy/internal/amqp"
	"finjoy/internal/sheets"
	"finjoy/internal/storage"
)

// SyncStore is the persistence surface of the spreadsheet mirror.
type SyncStore interface {
	GetTransactionWithCategory(ctx context.Context, id int64) (*storage.TransactionWithCategory, error)
	ListPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkTransactionSynced(ctx context.Context, id int64) error
	MarkTransactionSyncError(ctx context.Context, id int64) error
}

// SyncProcessorConfig holds configuration for the sync processor.
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending rows (default: 10s).
	PollInterval time.Duration

	// BatchSize is the max number of rows to mirror per poll cycle
	// (default: 10).
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults.
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
	}
}

// SyncProcessor mirrors transactions to the spreadsheet. It serves two
// paths: AMQP messages for low latency, and a poll loop that sweeps up rows
// whose publish was dropped (broker down, circuit open). Both converge on
// the same row-level handling, so a message replayed after the poller
// already mirrored the row is harmless.
type SyncProcessor struct {
	store   SyncStore
	writer  sheets.TransactionWriter
	deleter sheets.TransactionDeleter
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(
	store SyncStore,
	writer sheets.TransactionWriter,
	deleter sheets.TransactionDeleter,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		store:   store,
		writer:  writer,
		deleter: deleter,
		config:  config,
	}
}

// HandleMessage processes one queued sync message. Returning an error nacks
// the message for redelivery.
func (p *SyncProcessor) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Op {
	case amqp.OpUpsert:
		return p.mirrorTransaction(ctx, msg.ID)
	case amqp.OpDelete:
		if p.deleter == nil {
			slog.WarnContext(ctx, "No deleter configured, skipping delete",
				"transaction_id", msg.ID)
			return nil
		}
		if err := p.deleter.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirrored row %d: %w", msg.ID, err)
		}
		return nil
	default:
		// Unknown op: drop rather than requeue forever.
		slog.ErrorContext(ctx, "Unknown sync operation", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

// Start begins the poll loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("sync processor is already running")
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

// Stop gracefully stops the poll loop and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the poll loop is currently running.
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch mirrors one batch of pending rows.
func (p *SyncProcessor) processBatch(ctx context.Context) {
	pending, err := p.store.ListPendingSyncTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending sync transactions", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(pending))

	for _, item := range pending {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.mirrorTransaction(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction",
				"transaction_id", item.ID, "error", err)
			if markErr := p.store.MarkTransactionSyncError(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"transaction_id", item.ID, "error", markErr)
			}
		}
	}
}

// mirrorTransaction fetches the current row from the database and writes it
// to the spreadsheet. The database is always read fresh: a stale message
// cannot overwrite a newer edit.
func (p *SyncProcessor) mirrorTransaction(ctx context.Context, id int64) error {
	t, err := p.store.GetTransactionWithCategory(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and processing; the delete message
		// handles the mirror side.
		slog.WarnContext(ctx, "Transaction vanished before mirroring", "transaction_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	row := sheets.Row{
		TransactionID: t.ID,
		Date:          t.Date.String(),
		Description:   t.Description,
		Amount:        float64(t.Amount.Cents) / 100.0,
		CategoryName:  t.CategoryName,
		CategoryType:  string(t.CategoryType),
	}

	if err := p.writer.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert mirrored row: %w", err)
	}

	if err := p.store.MarkTransactionSynced(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"transaction_id", id, "error", err)
		// The mirror write succeeded; the poller will retry the mark.
	}

	slog.InfoContext(ctx, "Mirrored transaction to spreadsheet", "transaction_id", id)
	return nil
}
