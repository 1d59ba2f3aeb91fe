package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"finjoy/internal/core"
)

// MaterializerStore is the slice of the persistence gateway the materializer
// reads from.
type MaterializerStore interface {
	ListActiveRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
	GetRecurringDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error)
	FindTransaction(ctx context.Context, description string, date core.Date) (*core.Transaction, error)
}

// Materializer generates the concrete ledger transactions implied by the
// recurring definitions: for every active definition and every elapsed
// calendar day whose day-of-month is one of the definition's trigger days,
// exactly one transaction must exist.
//
// The routine is invoked redundantly from independent triggers (server
// launch, screen refresh, the periodic worker) with no coordination between
// them, so every insert is guarded by a read-before-write duplicate check:
// a transaction whose description is "Recurring: " + name on the same date
// means the day is already materialized. Concurrent invocations are
// additionally coalesced behind a singleflight group, so overlapping sweeps
// share one walk instead of racing their duplicate checks.
type Materializer struct {
	store  MaterializerStore
	ledger TransactionCreator
	now    func() time.Time

	group singleflight.Group
}

// sweepKey serializes all sweeps: any caller arriving while a sweep is in
// flight awaits and shares its result.
const sweepKey = "materialize"

func NewMaterializer(store MaterializerStore, ledger TransactionCreator) *Materializer {
	return &Materializer{
		store:  store,
		ledger: ledger,
		now:    time.Now,
	}
}

// MaterializeUpTo ensures generated transactions exist for every active
// definition for all trigger days from the definition's start date through
// target, inclusive. It returns the number of transactions created.
//
// Failures are isolated per definition: a malformed day set or a failed
// insert aborts that one definition and the sweep moves on. The returned
// error is non-nil only when the sweep itself could not run.
func (m *Materializer) MaterializeUpTo(ctx context.Context, target core.Date) (int, error) {
	v, err, shared := m.group.Do(sweepKey, func() (interface{}, error) {
		// The run is shared with callers that arrive later, so the first
		// caller's cancellation must not abort it for everyone.
		return m.sweep(context.WithoutCancel(ctx), target)
	})
	if err != nil {
		return 0, err
	}
	if shared {
		slog.DebugContext(ctx, "Materialization sweep coalesced with in-flight run")
	}
	return v.(int), nil
}

func (m *Materializer) sweep(ctx context.Context, target core.Date) (int, error) {
	defs, err := m.store.ListActiveRecurringDefinitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring definitions: %w", err)
	}

	slog.InfoContext(ctx, "Materializing recurring transactions",
		"total_active", len(defs),
		"target_date", target.String())

	created := 0
	failed := 0

	for _, def := range defs {
		n, err := m.materializeDefinition(ctx, def, target)
		created += n
		if err != nil {
			failed++
			slog.ErrorContext(ctx, "Failed to materialize recurring definition",
				"definition_id", def.ID,
				"name", def.Name,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Materialization sweep complete",
		"created", created,
		"failed_definitions", failed,
		"total_checked", len(defs))

	return created, nil
}

// materializeDefinition walks every calendar date from the definition's
// start date to target inclusive and inserts the missing generated
// transactions. Trigger days that do not exist in a month (day 31 in
// February) are simply never matched; there is no clamping to month-end.
func (m *Materializer) materializeDefinition(ctx context.Context, def core.RecurringDefinition, target core.Date) (int, error) {
	days, err := def.Days()
	if err != nil {
		return 0, fmt.Errorf("parse trigger days %q: %w", def.DaysOfMonth, err)
	}

	created := 0
	for d := def.StartDate; !d.After(target.Time); d = d.AddDays(1) {
		if !days.Contains(d.Day()) {
			continue
		}
		inserted, err := m.materializeDay(ctx, def, d)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// materializeDay inserts the generated transaction for one (definition, day)
// pair unless the duplicate key already matches. The key is the description
// "Recurring: " + name plus the exact date; it is the only link between a
// generated row and its definition, so two definitions sharing a name are
// indistinguishable here. That gap is part of the persisted contract and is
// deliberately not papered over.
func (m *Materializer) materializeDay(ctx context.Context, def core.RecurringDefinition, day core.Date) (bool, error) {
	desc := core.GeneratedDescription(def.Name)

	existing, err := m.store.FindTransaction(ctx, desc, day)
	if err != nil {
		return false, fmt.Errorf("duplicate check for %s: %w", day, err)
	}
	if existing != nil {
		return false, nil
	}

	// Always the definition's current amount. Past amount changes are
	// visible through the history tracker, not through regenerated rows.
	tx := core.Transaction{
		CategoryID:  def.CategoryID,
		Amount:      def.Amount,
		Description: desc,
		Date:        day,
	}

	if _, err := m.ledger.CreateTransaction(ctx, tx); err != nil {
		return false, fmt.Errorf("insert generated transaction for %s: %w", day, err)
	}

	slog.InfoContext(ctx, "Created transaction from recurring definition",
		"definition_id", def.ID,
		"name", def.Name,
		"amount_cents", def.Amount.Cents,
		"date", day.String())

	return true, nil
}

// MaterializeToday is the narrow entry point used by lighter-weight flows:
// one definition, today only, same duplicate check and insertion contract.
// It reports whether a transaction was created.
func (m *Materializer) MaterializeToday(ctx context.Context, definitionID int64) (bool, error) {
	def, err := m.store.GetRecurringDefinition(ctx, definitionID)
	if err != nil {
		return false, fmt.Errorf("get recurring definition: %w", err)
	}
	if !def.IsActive {
		return false, nil
	}

	days, err := def.Days()
	if err != nil {
		return false, fmt.Errorf("parse trigger days %q: %w", def.DaysOfMonth, err)
	}

	today := core.DateOf(m.now())
	if today.Before(def.StartDate.Time) {
		return false, nil
	}
	if !days.Contains(today.Day()) {
		return false, nil
	}

	return m.materializeDay(ctx, *def, today)
}

// MaterializeDefinition runs the range walk for a single definition. Used
// when a definition is created with its current period included.
func (m *Materializer) MaterializeDefinition(ctx context.Context, definitionID int64, target core.Date) (int, error) {
	def, err := m.store.GetRecurringDefinition(ctx, definitionID)
	if err != nil {
		return 0, fmt.Errorf("get recurring definition: %w", err)
	}
	if !def.IsActive {
		return 0, nil
	}
	return m.materializeDefinition(ctx, *def, target)
}

// Today returns the current calendar date per the materializer's clock.
func (m *Materializer) Today() core.Date {
	return core.DateOf(m.now())
}

// WithClock overrides the time source. Tests use it to pin "today".
func (m *Materializer) WithClock(now func() time.Time) *Materializer {
	m.now = now
	return m
}
