// Package sheets defines the outbound ports for the spreadsheet mirror.
package sheets

import "context"

// Row is one mirrored transaction. TransactionID keys the row in the sheet,
// so replaying a sync message overwrites instead of duplicating.
type Row struct {
	TransactionID int64
	Date          string // ISO calendar date
	Description   string
	Amount        float64 // decimal units, sign preserved
	CategoryName  string
	CategoryType  string
}

type (
	// TransactionWriter mirrors a transaction into the spreadsheet,
	// overwriting any row already keyed by the same transaction ID.
	TransactionWriter interface {
		Upsert(ctx context.Context, row Row) error
	}

	// TransactionDeleter removes a mirrored row by transaction ID.
	// Deleting an absent row is not an error.
	TransactionDeleter interface {
		Delete(ctx context.Context, transactionID int64) error
	}
)
