package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finjoy/internal/core"
)

// TransactionWithCategory is the denormalized view used by listings, reports
// and export.
type TransactionWithCategory struct {
	core.Transaction
	CategoryName  string
	CategoryType  core.CategoryType
	CategoryEmoji string
}

// PendingSyncTransaction is the minimal shape queued for the spreadsheet
// mirror.
type PendingSyncTransaction struct {
	ID        int64
	CreatedAt time.Time
}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var date string
	if err := row.Scan(&t.ID, &t.CategoryID, &t.Amount.Cents, &t.Description, &date); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	return t, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (category_id, amount_cents, description, date) VALUES (?, ?, ?, ?)`,
		t.CategoryID, t.Amount.Cents, t.Description, t.Date.String())
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount_cents, description, date FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, amount_cents = ?, description = ?, date = ? WHERE id = ?`,
		t.CategoryID, t.Amount.Cents, t.Description, t.Date.String(), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
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

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
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

// FindTransaction is the materializer's duplicate check: an exact match on
// description and date. Returns nil without error when no row matches.
func (r *SQLiteRepository) FindTransaction(ctx context.Context, description string, date core.Date) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount_cents, description, date
		 FROM transactions WHERE description = ? AND date = ? LIMIT 1`,
		description, date.String())
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &t, nil
}

// FindTransactionByImportKey is the CSV import duplicate check: exact match
// on date, description and amount. Independent of the materializer's key.
func (r *SQLiteRepository) FindTransactionByImportKey(ctx context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount_cents, description, date
		 FROM transactions WHERE date = ? AND description = ? AND amount_cents = ? LIMIT 1`,
		date.String(), description, amount.Cents)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by import key: %w", err)
	}
	return &t, nil
}

// ListTransactionsWithCategory returns the joined view for an inclusive date
// range, newest first.
func (r *SQLiteRepository) ListTransactionsWithCategory(ctx context.Context, from, to core.Date) ([]TransactionWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.category_id, t.amount_cents, t.description, t.date,
		        c.name, c.type, c.emoji
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE t.date >= ? AND t.date <= ?
		 ORDER BY t.date DESC, t.id DESC`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactionsWithCategory(rows)
}

// GetTransactionWithCategory returns one transaction joined with its
// category, as the spreadsheet mirror needs it.
func (r *SQLiteRepository) GetTransactionWithCategory(ctx context.Context, id int64) (*TransactionWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.category_id, t.amount_cents, t.description, t.date,
		        c.name, c.type, c.emoji
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE t.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction with category: %w", err)
	}
	defer rows.Close()

	out, err := scanTransactionsWithCategory(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// ListPendingSyncTransactions returns rows not yet mirrored, oldest first.
func (r *SQLiteRepository) ListPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions
		 WHERE sync_status = 'pending' ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}
