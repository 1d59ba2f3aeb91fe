package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finjoy/internal/core"
)

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringDefinition, error) {
	var r core.RecurringDefinition
	var start string
	var active int64
	err := row.Scan(&r.ID, &r.Name, &r.Amount.Cents, &r.CategoryID,
		&r.DaysOfMonth, &start, &active, &r.Description)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	d, err := core.ParseDate(start)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse stored start date %q: %w", start, err)
	}
	r.StartDate = d
	r.IsActive = active != 0
	return r, nil
}

const recurringColumns = `id, name, amount_cents, category_id, days_of_month, start_date, is_active, description`

func (r *SQLiteRepository) InsertRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error) {
	active := 0
	if def.IsActive {
		active = 1
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions
		 (name, amount_cents, category_id, days_of_month, start_date, is_active, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		def.Name, def.Amount.Cents, def.CategoryID, def.DaysOfMonth,
		def.StartDate.String(), active, def.Description)
	if err != nil {
		return 0, fmt.Errorf("insert recurring definition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring definition insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetRecurringDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_definitions WHERE id = ?`, id)
	def, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring definition: %w", err)
	}
	return &def, nil
}

func (r *SQLiteRepository) UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) error {
	active := 0
	if def.IsActive {
		active = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions
		 SET name = ?, amount_cents = ?, category_id = ?, days_of_month = ?,
		     start_date = ?, is_active = ?, description = ?
		 WHERE id = ?`,
		def.Name, def.Amount.Cents, def.CategoryID, def.DaysOfMonth,
		def.StartDate.String(), active, def.Description, def.ID)
	if err != nil {
		return fmt.Errorf("update recurring definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecurringDefinition removes a definition; its amount history cascades
// with it.
func (r *SQLiteRepository) DeleteRecurringDefinition(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	return r.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_definitions ORDER BY name ASC`)
}

func (r *SQLiteRepository) ListActiveRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	return r.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_definitions WHERE is_active = 1 ORDER BY name ASC`)
}

func (r *SQLiteRepository) listRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring definitions: %w", err)
	}
	defer rows.Close()

	var defs []core.RecurringDefinition
	for rows.Next() {
		def, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// FindRecurringByNameAndStartDate is the CSV import duplicate check for
// recurring definitions.
func (r *SQLiteRepository) FindRecurringByNameAndStartDate(ctx context.Context, name string, start core.Date) (*core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_definitions
		 WHERE name = ? AND start_date = ? LIMIT 1`,
		name, start.String())
	def, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recurring by name and start date: %w", err)
	}
	return &def, nil
}
