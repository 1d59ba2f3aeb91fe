package transfer

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"finjoy/internal/core"
	"finjoy/internal/services"
)

// ImportStore is the persistence surface of the importer.
type ImportStore interface {
	FindTransactionByImportKey(ctx context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error)
	FindRecurringByNameAndStartDate(ctx context.Context, name string, start core.Date) (*core.RecurringDefinition, error)
	InsertRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error)
}

// Result summarizes an import run. Malformed rows are counted, logged and
// skipped; they never abort the run.
type Result struct {
	TransactionsImported int
	TransactionsSkipped  int
	RecurringImported    int
	RecurringSkipped     int
	Malformed            int
}

// Importer restores a sectioned CSV backup. Duplicate detection is
// independent of the materializer's key: transactions match on exact
// (date, description, amount), recurring definitions on (name, startDate).
// Unknown category names are created with the default emoji, typed by the
// sign of the row's amount.
type Importer struct {
	store      ImportStore
	ledger     services.TransactionCreator
	categories *services.CategoryService
}

func NewImporter(store ImportStore, ledger services.TransactionCreator, categories *services.CategoryService) *Importer {
	return &Importer{
		store:      store,
		ledger:     ledger,
		categories: categories,
	}
}

// Import reads the backup from r. Imported recurring definitions are active
// and subject to the same materialization rules as natively created ones on
// the next sweep.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(r)
	section := ""
	skipHeader := false

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "### "):
			section = line
			skipHeader = true
		case skipHeader:
			skipHeader = false
		case strings.TrimSpace(line) == "":
			continue
		default:
			switch section {
			case transactionsMarker:
				i.importTransaction(ctx, line, &res)
			case recurringMarker:
				i.importRecurring(ctx, line, &res)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read backup: %w", err)
	}

	slog.InfoContext(ctx, "Import complete",
		"transactions_imported", res.TransactionsImported,
		"transactions_skipped", res.TransactionsSkipped,
		"recurring_imported", res.RecurringImported,
		"recurring_skipped", res.RecurringSkipped,
		"malformed", res.Malformed)

	return res, nil
}

func (i *Importer) importTransaction(ctx context.Context, line string, res *Result) {
	fields, err := splitRecord(line, 4)
	if err != nil {
		slog.WarnContext(ctx, "Skipping malformed transaction row", "line", line, "error", err)
		res.Malformed++
		return
	}

	date, err := core.ParseDate(fields[0])
	if err != nil {
		slog.WarnContext(ctx, "Skipping transaction row with bad date", "line", line, "error", err)
		res.Malformed++
		return
	}
	amount, err := core.ParseMoney(fields[1])
	if err != nil {
		slog.WarnContext(ctx, "Skipping transaction row with bad amount", "line", line, "error", err)
		res.Malformed++
		return
	}
	categoryName, description := fields[2], fields[3]

	existing, err := i.store.FindTransactionByImportKey(ctx, date, description, amount)
	if err != nil {
		slog.WarnContext(ctx, "Duplicate check failed, skipping row", "line", line, "error", err)
		res.Malformed++
		return
	}
	if existing != nil {
		res.TransactionsSkipped++
		return
	}

	cat, err := i.categories.GetOrCreate(ctx, categoryName, typeForAmount(amount))
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve category, skipping row",
			"category", categoryName, "error", err)
		res.Malformed++
		return
	}

	if _, err := i.ledger.CreateTransaction(ctx, core.Transaction{
		CategoryID:  cat.ID,
		Amount:      amount,
		Description: description,
		Date:        date,
	}); err != nil {
		slog.WarnContext(ctx, "Failed to import transaction", "line", line, "error", err)
		res.Malformed++
		return
	}
	res.TransactionsImported++
}

func (i *Importer) importRecurring(ctx context.Context, line string, res *Result) {
	fields, err := splitRecord(line, 6)
	if err != nil {
		slog.WarnContext(ctx, "Skipping malformed recurring row", "line", line, "error", err)
		res.Malformed++
		return
	}

	name := fields[0]
	amount, err := core.ParseMoney(fields[1])
	if err != nil {
		slog.WarnContext(ctx, "Skipping recurring row with bad amount", "line", line, "error", err)
		res.Malformed++
		return
	}
	start, err := core.ParseDate(fields[4])
	if err != nil {
		slog.WarnContext(ctx, "Skipping recurring row with bad start date", "line", line, "error", err)
		res.Malformed++
		return
	}

	existing, err := i.store.FindRecurringByNameAndStartDate(ctx, name, start)
	if err != nil {
		slog.WarnContext(ctx, "Duplicate check failed, skipping row", "line", line, "error", err)
		res.Malformed++
		return
	}
	if existing != nil {
		res.RecurringSkipped++
		return
	}

	cat, err := i.categories.GetOrCreate(ctx, fields[2], typeForAmount(amount))
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve category, skipping row",
			"category", fields[2], "error", err)
		res.Malformed++
		return
	}

	def := core.RecurringDefinition{
		Name:        name,
		Amount:      amount,
		CategoryID:  cat.ID,
		DaysOfMonth: fields[3],
		StartDate:   start,
		IsActive:    true,
		Description: fields[5],
	}
	if err := def.Validate(); err != nil {
		slog.WarnContext(ctx, "Skipping invalid recurring row", "line", line, "error", err)
		res.Malformed++
		return
	}

	if _, err := i.store.InsertRecurringDefinition(ctx, def); err != nil {
		slog.WarnContext(ctx, "Failed to import recurring definition", "line", line, "error", err)
		res.Malformed++
		return
	}
	res.RecurringImported++
}

// splitRecord parses one CSV record and enforces a minimum field count.
func splitRecord(line string, min int) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return nil, err
	}
	if len(fields) < min {
		return nil, fmt.Errorf("expected at least %d fields, got %d", min, len(fields))
	}
	return fields, nil
}

func typeForAmount(m core.Money) core.CategoryType {
	if m.IsIncome() {
		return core.Income
	}
	return core.Expense
}
