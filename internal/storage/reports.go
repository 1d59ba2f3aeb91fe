package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finjoy/internal/core"
)

// CategorySum is a per-category aggregate over a date range.
type CategorySum struct {
	CategoryName  string
	CategoryEmoji string
	CategoryType  core.CategoryType
	Total         core.Money
}

// RangeTotals returns the summed income (positive rows) and expense
// (negative rows, returned as a negative total) for an inclusive date range.
func (r *SQLiteRepository) RangeTotals(ctx context.Context, from, to core.Date) (income, expense core.Money, err error) {
	var inc, exp sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents END), 0),
		   COALESCE(SUM(CASE WHEN amount_cents < 0 THEN amount_cents END), 0)
		 FROM transactions WHERE date >= ? AND date <= ?`,
		from.String(), to.String()).Scan(&inc, &exp)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("range totals: %w", err)
	}
	return core.Money{Cents: inc.Int64}, core.Money{Cents: exp.Int64}, nil
}

// CategorySums aggregates transaction totals per category over an inclusive
// date range, largest magnitude first.
func (r *SQLiteRepository) CategorySums(ctx context.Context, from, to core.Date) ([]CategorySum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, c.emoji, c.type, SUM(t.amount_cents)
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE t.date >= ? AND t.date <= ?
		 GROUP BY c.id
		 ORDER BY ABS(SUM(t.amount_cents)) DESC`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	var out []CategorySum
	for rows.Next() {
		var cs CategorySum
		var typ string
		if err := rows.Scan(&cs.CategoryName, &cs.CategoryEmoji, &typ, &cs.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		cs.CategoryType = core.CategoryType(typ)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// TopExpenseTransactions returns the largest expenses in the range by
// magnitude.
func (r *SQLiteRepository) TopExpenseTransactions(ctx context.Context, from, to core.Date, limit int) ([]TransactionWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.category_id, t.amount_cents, t.description, t.date,
		        c.name, c.type, c.emoji
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE t.date >= ? AND t.date <= ? AND t.amount_cents < 0
		 ORDER BY t.amount_cents ASC
		 LIMIT ?`,
		from.String(), to.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("top expenses: %w", err)
	}
	defer rows.Close()

	return scanTransactionsWithCategory(rows)
}

// CategoryTransactions returns a category's transactions in the range,
// largest magnitude first.
func (r *SQLiteRepository) CategoryTransactions(ctx context.Context, categoryName string, from, to core.Date, limit int) ([]TransactionWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.category_id, t.amount_cents, t.description, t.date,
		        c.name, c.type, c.emoji
		 FROM transactions t
		 JOIN categories c ON t.category_id = c.id
		 WHERE c.name = ? AND t.date >= ? AND t.date <= ?
		 ORDER BY ABS(t.amount_cents) DESC
		 LIMIT ?`,
		categoryName, from.String(), to.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("category transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactionsWithCategory(rows)
}

func scanTransactionsWithCategory(rows *sql.Rows) ([]TransactionWithCategory, error) {
	var out []TransactionWithCategory
	for rows.Next() {
		var tc TransactionWithCategory
		var date, typ string
		if err := rows.Scan(&tc.ID, &tc.CategoryID, &tc.Amount.Cents, &tc.Description, &date,
			&tc.CategoryName, &typ, &tc.CategoryEmoji); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		tc.Date = d
		tc.CategoryType = core.CategoryType(typ)
		out = append(out, tc)
	}
	return out, rows.Err()
}
