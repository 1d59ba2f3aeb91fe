package services

import (
	"context"
	"fmt"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

type (
	// RangeSummary is the headline of a report: totals over an inclusive
	// date range. Balance is income minus the expense magnitude.
	RangeSummary struct {
		From         core.Date
		To           core.Date
		TotalIncome  core.Money
		TotalExpense core.Money // magnitude, non-negative
		Balance      core.Money
	}

	// CategoryShare is one slice of the flow breakdown. Percentage is the
	// category's share of the total flow (income plus expense magnitude),
	// so all slices of the breakdown sum to 100.
	CategoryShare struct {
		CategoryName string
		CategoryType core.CategoryType
		Emoji        string
		Amount       core.Money // magnitude
		Percentage   float64
	}

	// ExpenseRank is one row of the top-expense-categories list.
	// Percentage here is relative to total expense only.
	ExpenseRank struct {
		CategoryName string
		Emoji        string
		Amount       core.Money // magnitude
		Percentage   float64
	}
)

// ReportService computes the read-only aggregates behind the report views.
// All aggregation happens in SQL; this layer adds the percentage math and
// shapes the rows.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// Summary returns the income, expense and balance totals for the range.
func (s *ReportService) Summary(ctx context.Context, from, to core.Date) (RangeSummary, error) {
	income, expense, err := s.store.RangeTotals(ctx, from, to)
	if err != nil {
		return RangeSummary{}, fmt.Errorf("range totals: %w", err)
	}
	return RangeSummary{
		From:         from,
		To:           to,
		TotalIncome:  income,
		TotalExpense: expense.Abs(),
		Balance:      core.Money{Cents: income.Cents + expense.Cents},
	}, nil
}

// Breakdown returns every category's share of the range's total flow,
// income and expense slices together, largest first.
func (s *ReportService) Breakdown(ctx context.Context, from, to core.Date) ([]CategoryShare, error) {
	sums, err := s.store.CategorySums(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}

	var totalFlow int64
	for _, cs := range sums {
		totalFlow += abs64(cs.Total.Cents)
	}

	shares := make([]CategoryShare, 0, len(sums))
	for _, cs := range sums {
		share := CategoryShare{
			CategoryName: cs.CategoryName,
			CategoryType: cs.CategoryType,
			Emoji:        cs.CategoryEmoji,
			Amount:       cs.Total.Abs(),
		}
		if totalFlow > 0 {
			share.Percentage = float64(abs64(cs.Total.Cents)) / float64(totalFlow) * 100
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// TopExpenseCategories ranks expense categories by spend, each with its
// share of the total expense.
func (s *ReportService) TopExpenseCategories(ctx context.Context, from, to core.Date) ([]ExpenseRank, error) {
	sums, err := s.store.CategorySums(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}

	var totalExpense int64
	for _, cs := range sums {
		if cs.CategoryType == core.Expense {
			totalExpense += abs64(cs.Total.Cents)
		}
	}

	ranks := make([]ExpenseRank, 0, len(sums))
	for _, cs := range sums {
		if cs.CategoryType != core.Expense {
			continue
		}
		rank := ExpenseRank{
			CategoryName: cs.CategoryName,
			Emoji:        cs.CategoryEmoji,
			Amount:       cs.Total.Abs(),
		}
		if totalExpense > 0 {
			rank.Percentage = float64(abs64(cs.Total.Cents)) / float64(totalExpense) * 100
		}
		ranks = append(ranks, rank)
	}
	return ranks, nil
}

// TopExpenses returns the largest individual expense transactions in the
// range.
func (s *ReportService) TopExpenses(ctx context.Context, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopExpenseTransactions(ctx, from, to, limit)
}

// CategoryDetails returns a category's largest transactions in the range,
// for the drill-down view.
func (s *ReportService) CategoryDetails(ctx context.Context, categoryName string, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error) {
	if limit <= 0 {
		limit = 3
	}
	return s.store.CategoryTransactions(ctx, categoryName, from, to, limit)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
