package services

import (
	"context"
	"fmt"
	"log/slog"

	"finjoy/internal/core"
)

// HistoryTrackerStore combines the definition and history surfaces the
// tracker needs.
type HistoryTrackerStore interface {
	GetRecurringDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error)
	UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) error
	HistoryStore
}

// AmountPeriod is one step of a definition's amount timeline as presented
// to callers: the amount that applied from From through To inclusive. To is
// nil for the currently effective step.
type AmountPeriod struct {
	Amount core.Money
	From   core.Date
	To     *core.Date
	Note   string
}

// HistoryTracker records amount changes of recurring definitions and
// answers "what amount applied on date D".
//
// Each history row stores the amount that became effective at its start
// date. The first recorded change also writes a baseline row carrying the
// definition's previous amount effective from its start date, so the
// timeline is complete from day one: a query before the first change
// resolves to the original amount through the history, not through the
// mutable current-amount field.
type HistoryTracker struct {
	store HistoryTrackerStore
}

func NewHistoryTracker(store HistoryTrackerStore) *HistoryTracker {
	return &HistoryTracker{store: store}
}

// ChangeAmount sets a new amount effective from effectiveDate. A change to
// the already-current amount is a no-op. The new amount must keep the
// definition's flow direction; flipping an expense into an income is
// rejected.
//
// The history row is written before the definition's current amount is
// updated. If the second write fails the history is already durable and
// effective-amount queries resolve correctly; only generation keeps using
// the stale current amount until the change is retried.
func (h *HistoryTracker) ChangeAmount(ctx context.Context, definitionID int64, newAmount core.Money, effectiveDate core.Date, note string) error {
	if err := newAmount.Validate(); err != nil {
		return err
	}
	if err := effectiveDate.Validate(); err != nil {
		return err
	}

	def, err := h.store.GetRecurringDefinition(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("get recurring definition: %w", err)
	}

	if newAmount.Cents == def.Amount.Cents {
		return nil
	}
	if newAmount.IsIncome() != def.Amount.IsIncome() {
		return fmt.Errorf("amount change cannot flip flow direction: %w", core.ErrAmountSignMismatch)
	}

	existing, err := h.store.ListAmountHistory(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("list amount history: %w", err)
	}

	if len(existing) == 0 {
		// Baseline step: the original amount, effective from the start.
		baseline := core.AmountChange{
			DefinitionID: definitionID,
			Amount:       def.Amount,
			StartDate:    def.StartDate,
			Note:         "Initial amount",
		}
		if _, err := h.store.InsertAmountHistory(ctx, baseline); err != nil {
			return fmt.Errorf("insert baseline history: %w", err)
		}
	}

	oldAmount := def.Amount
	if note == "" {
		note = fmt.Sprintf("Amount changed from %s to %s", oldAmount, newAmount)
	}

	change := core.AmountChange{
		DefinitionID: definitionID,
		Amount:       newAmount,
		StartDate:    effectiveDate,
		Note:         note,
	}
	if _, err := h.store.InsertAmountHistory(ctx, change); err != nil {
		return fmt.Errorf("insert amount history: %w", err)
	}

	def.Amount = newAmount
	if err := h.store.UpdateRecurringDefinition(ctx, *def); err != nil {
		slog.ErrorContext(ctx, "Amount history saved but current amount not updated",
			"definition_id", definitionID,
			"new_amount_cents", newAmount.Cents,
			"error", err)
		return fmt.Errorf("update definition amount: %w", err)
	}

	slog.InfoContext(ctx, "Recorded amount change",
		"definition_id", definitionID,
		"old_amount_cents", oldAmount.Cents,
		"new_amount_cents", newAmount.Cents,
		"effective_date", effectiveDate.String())

	return nil
}

// AmountEffectiveOn resolves the amount that applied on date: the history
// entry with the greatest start date not after the query date, falling back
// to the definition's current amount when no entry predates it.
func (h *HistoryTracker) AmountEffectiveOn(ctx context.Context, definitionID int64, date core.Date) (core.Money, error) {
	amount, found, err := h.store.AmountOnDate(ctx, definitionID, date)
	if err != nil {
		return core.Money{}, fmt.Errorf("query amount history: %w", err)
	}
	if found {
		return amount, nil
	}

	def, err := h.store.GetRecurringDefinition(ctx, definitionID)
	if err != nil {
		return core.Money{}, fmt.Errorf("get recurring definition: %w", err)
	}
	return def.Amount, nil
}

// HistoryFor returns the definition's amount timeline, newest step first.
// Each step's To date is the day before the next step began.
func (h *HistoryTracker) HistoryFor(ctx context.Context, definitionID int64) ([]AmountPeriod, error) {
	entries, err := h.store.ListAmountHistory(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("list amount history: %w", err)
	}

	periods := make([]AmountPeriod, 0, len(entries))
	for i, e := range entries {
		p := AmountPeriod{
			Amount: e.Amount,
			From:   e.StartDate,
			Note:   e.Note,
		}
		// Entries are newest first; the step before this one in the slice
		// supersedes it.
		if i > 0 {
			to := entries[i-1].StartDate.AddDays(-1)
			p.To = &to
		}
		periods = append(periods, p)
	}
	return periods, nil
}
