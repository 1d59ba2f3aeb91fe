package services

import (
	"context"
	"fmt"
	"log/slog"

	"finjoy/internal/amqp"
	"finjoy/internal/core"
	"finjoy/internal/storage"
)

// LedgerStore is the persistence surface the ledger writes through.
type LedgerStore interface {
	TransactionStore
	GetCategory(ctx context.Context, id int64) (*core.Category, error)
}

// LedgerService orchestrates transaction writes across SQLite and AMQP.
//
// Every write path goes through it, including the materializer and the CSV
// importer, so the sign convention (positive amounts in income categories,
// negative in expense categories) is enforced in exactly one place. The
// database schema deliberately does not enforce it.
type LedgerService struct {
	store      LedgerStore
	amqpClient *amqp.Client
}

func NewLedgerService(store LedgerStore, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// CreateTransaction validates and saves a transaction locally, then
// publishes a sync message. A failed publish is logged and swallowed: the
// local write is the source of truth and the sync worker also polls for
// rows left in pending state.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := s.checkConventions(ctx, t); err != nil {
		return 0, err
	}

	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, id)

	return id, nil
}

// UpdateTransaction applies the same convention checks as creation and
// re-queues the row for mirroring.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := s.checkConventions(ctx, t); err != nil {
		return err
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.publishSync(ctx, t.ID)

	return nil
}

// DeleteTransaction removes a transaction locally and publishes a delete
// message so the mirrored row is removed too.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	if err := s.amqpClient.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - transaction is deleted locally
	}

	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// ListTransactions returns the transactions in [from, to], newest first,
// joined with their category for display.
func (s *LedgerService) ListTransactions(ctx context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error) {
	return s.store.ListTransactionsWithCategory(ctx, from, to)
}

func (s *LedgerService) checkConventions(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	cat, err := s.store.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return fmt.Errorf("load category %d: %w", t.CategoryID, err)
	}
	if !cat.Type.MatchesSign(t.Amount) {
		return fmt.Errorf("category %q is %s: %w", cat.Name, cat.Type, core.ErrAmountSignMismatch)
	}
	return nil
}

func (s *LedgerService) publishSync(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - transaction is saved locally
	}
}
