package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finjoy/internal/core"
)

// ErrImmutableField marks update attempts against a frozen definition field.
var ErrImmutableField = errors.New("field is immutable after creation")

// RecurringDefinitionStore adds category lookup to the definition surface.
type RecurringDefinitionStore interface {
	RecurringStore
	GetCategory(ctx context.Context, id int64) (*core.Category, error)
}

// RecurringService manages recurring definitions. Name, category and start
// date are frozen at creation: the generated-transaction duplicate key is
// derived from the name, so renaming a definition would orphan every row it
// already produced. Amount edits are routed through the history tracker so
// the timeline stays complete.
type RecurringService struct {
	store        RecurringDefinitionStore
	tracker      *HistoryTracker
	materializer *Materializer
}

func NewRecurringService(store RecurringDefinitionStore, tracker *HistoryTracker, materializer *Materializer) *RecurringService {
	return &RecurringService{
		store:        store,
		tracker:      tracker,
		materializer: materializer,
	}
}

// CreateDefinition validates and saves a new definition. When
// includeCurrentPeriod is set, transactions for the already-elapsed trigger
// days (start date through today) are generated immediately instead of
// waiting for the next sweep.
func (s *RecurringService) CreateDefinition(ctx context.Context, def core.RecurringDefinition, includeCurrentPeriod bool) (int64, error) {
	if err := def.Validate(); err != nil {
		return 0, err
	}

	cat, err := s.store.GetCategory(ctx, def.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("load category %d: %w", def.CategoryID, err)
	}
	if !cat.Type.MatchesSign(def.Amount) {
		return 0, fmt.Errorf("category %q is %s: %w", cat.Name, cat.Type, core.ErrAmountSignMismatch)
	}

	id, err := s.store.InsertRecurringDefinition(ctx, def)
	if err != nil {
		return 0, fmt.Errorf("create recurring definition: %w", err)
	}

	if includeCurrentPeriod && def.IsActive {
		created, err := s.materializer.MaterializeDefinition(ctx, id, s.materializer.Today())
		if err != nil {
			// The definition is saved; the next sweep covers the gap.
			slog.ErrorContext(ctx, "Failed to materialize current period",
				"definition_id", id, "error", err)
		} else if created > 0 {
			slog.InfoContext(ctx, "Materialized current period",
				"definition_id", id, "created", created)
		}
	}

	return id, nil
}

func (s *RecurringService) GetDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error) {
	return s.store.GetRecurringDefinition(ctx, id)
}

func (s *RecurringService) ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	return s.store.ListRecurringDefinitions(ctx)
}

// UpdateDefinition applies edits to the mutable fields: trigger days,
// active flag and description. A changed amount is recorded as an amount
// change effective today. Edits to name, category or start date are
// rejected.
func (s *RecurringService) UpdateDefinition(ctx context.Context, def core.RecurringDefinition) error {
	existing, err := s.store.GetRecurringDefinition(ctx, def.ID)
	if err != nil {
		return fmt.Errorf("get recurring definition: %w", err)
	}

	if def.Name != existing.Name {
		return fmt.Errorf("%w: name (generated transactions are keyed by it)", ErrImmutableField)
	}
	if def.CategoryID != existing.CategoryID {
		return fmt.Errorf("%w: category", ErrImmutableField)
	}
	if !def.StartDate.Equal(existing.StartDate) {
		return fmt.Errorf("%w: start date", ErrImmutableField)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	if def.Amount.Cents != existing.Amount.Cents {
		if err := s.tracker.ChangeAmount(ctx, def.ID, def.Amount, s.materializer.Today(), ""); err != nil {
			return err
		}
	}

	// Persist the mutable fields against the stored amount state; the
	// tracker already updated the amount if it changed.
	updated := *existing
	updated.DaysOfMonth = def.DaysOfMonth
	updated.IsActive = def.IsActive
	updated.Description = def.Description
	if def.Amount.Cents != existing.Amount.Cents {
		updated.Amount = def.Amount
	}

	if err := s.store.UpdateRecurringDefinition(ctx, updated); err != nil {
		return fmt.Errorf("update recurring definition: %w", err)
	}
	return nil
}

// SetActive pauses or resumes generation. Pausing never deletes already
// generated transactions; resuming backfills the paused stretch on the
// next sweep, because the walk always starts at the definition's start
// date.
func (s *RecurringService) SetActive(ctx context.Context, id int64, active bool) error {
	def, err := s.store.GetRecurringDefinition(ctx, id)
	if err != nil {
		return fmt.Errorf("get recurring definition: %w", err)
	}
	if def.IsActive == active {
		return nil
	}
	def.IsActive = active
	if err := s.store.UpdateRecurringDefinition(ctx, *def); err != nil {
		return fmt.Errorf("update recurring definition: %w", err)
	}
	return nil
}

// DeleteDefinition removes the definition and its amount history. The
// transactions it generated stay in the ledger.
func (s *RecurringService) DeleteDefinition(ctx context.Context, id int64) error {
	return s.store.DeleteRecurringDefinition(ctx, id)
}

// ChangeAmount records a new amount effective from the given date.
func (s *RecurringService) ChangeAmount(ctx context.Context, id int64, amount core.Money, effective core.Date, note string) error {
	return s.tracker.ChangeAmount(ctx, id, amount, effective, note)
}

// AmountHistory returns the definition's amount timeline, newest first.
func (s *RecurringService) AmountHistory(ctx context.Context, id int64) ([]AmountPeriod, error) {
	return s.tracker.HistoryFor(ctx, id)
}

// AmountEffectiveOn answers what amount applied on a given date.
func (s *RecurringService) AmountEffectiveOn(ctx context.Context, id int64, date core.Date) (core.Money, error) {
	return s.tracker.AmountEffectiveOn(ctx, id, date)
}
