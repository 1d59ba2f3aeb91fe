// Package transfer implements the sectioned CSV backup format: a
// transactions section and a recurring-definitions section, each headed by a
// literal marker line and a column header.
package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

const (
	transactionsMarker = "### TRANSACTIONS ###"
	recurringMarker    = "### RECURRING ###"

	transactionsHeader = "date,amount,category,description"
	recurringHeader    = "name,amount,category,days,startDate,description"
)

// ExportStore is the read surface of the exporter.
type ExportStore interface {
	ListTransactionsWithCategory(ctx context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error)
	ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// Export writes the complete ledger and all recurring definitions to w.
// Fields containing commas (multi-day trigger sets) are CSV-quoted so the
// file round-trips through Import.
func Export(ctx context.Context, store ExportStore, w io.Writer) error {
	transactions, err := store.ListTransactionsWithCategory(ctx, core.NewDate(1, 1, 1), core.NewDate(9999, 12, 31))
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	definitions, err := store.ListRecurringDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("list recurring definitions: %w", err)
	}
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	categoryName := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryName[c.ID] = c.Name
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n", transactionsMarker, transactionsHeader); err != nil {
		return fmt.Errorf("write transactions section: %w", err)
	}
	cw := csv.NewWriter(w)
	for _, t := range transactions {
		record := []string{
			t.Date.String(),
			t.Amount.String(),
			t.CategoryName,
			t.Description,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write transaction row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush transactions: %w", err)
	}

	if _, err := fmt.Fprintf(w, "\n%s\n%s\n", recurringMarker, recurringHeader); err != nil {
		return fmt.Errorf("write recurring section: %w", err)
	}
	cw = csv.NewWriter(w)
	for _, def := range definitions {
		record := []string{
			def.Name,
			def.Amount.String(),
			categoryName[def.CategoryID],
			def.DaysOfMonth,
			def.StartDate.String(),
			def.Description,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write recurring row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush recurring definitions: %w", err)
	}

	return nil
}
