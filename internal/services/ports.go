// Package services contains the business logic: the recurrence materializer,
// the amount-history tracker, and the orchestration services the API and
// workers call.
//
// Services consume narrow store interfaces and receive their dependencies at
// construction time; *storage.SQLiteRepository satisfies all of them.
package services

import (
	"context"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

type (
	// TransactionStore is the transaction surface of the persistence gateway.
	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
		GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		FindTransaction(ctx context.Context, description string, date core.Date) (*core.Transaction, error)
		FindTransactionByImportKey(ctx context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error)
		ListTransactionsWithCategory(ctx context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error)
	}

	// RecurringStore is the recurring-definition surface.
	RecurringStore interface {
		InsertRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error)
		GetRecurringDefinition(ctx context.Context, id int64) (*core.RecurringDefinition, error)
		UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) error
		DeleteRecurringDefinition(ctx context.Context, id int64) error
		ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
		ListActiveRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
		FindRecurringByNameAndStartDate(ctx context.Context, name string, start core.Date) (*core.RecurringDefinition, error)
	}

	// HistoryStore is the amount-history surface.
	HistoryStore interface {
		InsertAmountHistory(ctx context.Context, h core.AmountChange) (int64, error)
		ListAmountHistory(ctx context.Context, definitionID int64) ([]core.AmountChange, error)
		AmountOnDate(ctx context.Context, definitionID int64, date core.Date) (core.Money, bool, error)
	}

	// CategoryStore is the category surface.
	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (int64, error)
		GetCategory(ctx context.Context, id int64) (*core.Category, error)
		FindCategoryByName(ctx context.Context, name string) (*core.Category, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		ListCategoriesByType(ctx context.Context, t core.CategoryType) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id int64) error
		MaxDisplayOrder(ctx context.Context) (int64, error)
		UpdateCategoryOrder(ctx context.Context, id, order int64) error
		CountCategories(ctx context.Context) (int64, error)
	}

	// ReportStore is the aggregate-query surface.
	ReportStore interface {
		RangeTotals(ctx context.Context, from, to core.Date) (income, expense core.Money, err error)
		CategorySums(ctx context.Context, from, to core.Date) ([]storage.CategorySum, error)
		TopExpenseTransactions(ctx context.Context, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error)
		CategoryTransactions(ctx context.Context, categoryName string, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error)
	}

	// TransactionCreator inserts validated transactions. The ledger service
	// implements it; the materializer and the CSV importer write through it
	// so every insert follows the same convention checks and publishes the
	// same sync events.
	TransactionCreator interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	}
)
