package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finjoy/internal/core"
)

func (r *SQLiteRepository) InsertAmountHistory(ctx context.Context, h core.AmountChange) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_amount_history (definition_id, amount_cents, start_date, note)
		 VALUES (?, ?, ?, ?)`,
		h.DefinitionID, h.Amount.Cents, h.StartDate.String(), h.Note)
	if err != nil {
		return 0, fmt.Errorf("insert amount history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("amount history insert id: %w", err)
	}
	return id, nil
}

// ListAmountHistory returns a definition's amount changes newest effective
// date first.
func (r *SQLiteRepository) ListAmountHistory(ctx context.Context, definitionID int64) ([]core.AmountChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, definition_id, amount_cents, start_date, note
		 FROM recurring_amount_history
		 WHERE definition_id = ?
		 ORDER BY start_date DESC, id DESC`, definitionID)
	if err != nil {
		return nil, fmt.Errorf("list amount history: %w", err)
	}
	defer rows.Close()

	var out []core.AmountChange
	for rows.Next() {
		var h core.AmountChange
		var start string
		if err := rows.Scan(&h.ID, &h.DefinitionID, &h.Amount.Cents, &start, &h.Note); err != nil {
			return nil, fmt.Errorf("scan amount history: %w", err)
		}
		d, err := core.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("parse stored effective date %q: %w", start, err)
		}
		h.StartDate = d
		out = append(out, h)
	}
	return out, rows.Err()
}

// AmountOnDate returns the amount effective on the given date per the history
// step function. The second return value is false when no entry predates the
// date; callers fall back to the definition's current amount.
func (r *SQLiteRepository) AmountOnDate(ctx context.Context, definitionID int64, date core.Date) (core.Money, bool, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM recurring_amount_history
		 WHERE definition_id = ? AND start_date <= ?
		 ORDER BY start_date DESC, id DESC LIMIT 1`,
		definitionID, date.String()).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, false, nil
	}
	if err != nil {
		return core.Money{}, false, fmt.Errorf("amount on date: %w", err)
	}
	return core.Money{Cents: cents}, true, nil
}
