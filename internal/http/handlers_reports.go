package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"finjoy/internal/core"
	"finjoy/internal/services"
	"finjoy/internal/storage"
)

type summaryResponse struct {
	From              string `json:"from"`
	To                string `json:"to"`
	TotalIncomeCents  int64  `json:"total_income_cents"`
	TotalExpenseCents int64  `json:"total_expense_cents"`
	BalanceCents      int64  `json:"balance_cents"`
	TotalIncome       string `json:"total_income"`
	TotalExpense      string `json:"total_expense"`
	Balance           string `json:"balance"`
}

type breakdownEntry struct {
	CategoryName string  `json:"category_name"`
	CategoryType string  `json:"category_type"`
	Emoji        string  `json:"emoji"`
	AmountCents  int64   `json:"amount_cents"`
	Percentage   float64 `json:"percentage"`
}

type expenseRankEntry struct {
	CategoryName string  `json:"category_name"`
	Emoji        string  `json:"emoji"`
	AmountCents  int64   `json:"amount_cents"`
	Percentage   float64 `json:"percentage"`
}

// cachedReport serves a report from the response cache, computing and
// storing it on a miss. Values are cached as rendered JSON so a hit skips
// both the query and the encoding.
func (s *Server) cachedReport(w http.ResponseWriter, r *http.Request, key string, compute func() (any, error)) {
	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			slog.Error("Failed to write cached report", "error", err)
		}
		return
	}

	v, err := compute()
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write report", "error", err)
	}
}

func reportCacheKey(name string, from, to core.Date, extra string) string {
	return fmt.Sprintf("%s:%s:%s:%s", name, from, to, extra)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	s.cachedReport(w, r, reportCacheKey("summary", from, to, ""), func() (any, error) {
		sum, err := s.reports.Summary(r.Context(), from, to)
		if err != nil {
			return nil, err
		}
		return summaryResponse{
			From:              sum.From.String(),
			To:                sum.To.String(),
			TotalIncomeCents:  sum.TotalIncome.Cents,
			TotalExpenseCents: sum.TotalExpense.Cents,
			BalanceCents:      sum.Balance.Cents,
			TotalIncome:       sum.TotalIncome.String(),
			TotalExpense:      sum.TotalExpense.String(),
			Balance:           sum.Balance.String(),
		}, nil
	})
}

func (s *Server) handleReportBreakdown(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	s.cachedReport(w, r, reportCacheKey("breakdown", from, to, ""), func() (any, error) {
		shares, err := s.reports.Breakdown(r.Context(), from, to)
		if err != nil {
			return nil, err
		}
		out := make([]breakdownEntry, 0, len(shares))
		for _, sh := range shares {
			out = append(out, breakdownEntry{
				CategoryName: sh.CategoryName,
				CategoryType: string(sh.CategoryType),
				Emoji:        sh.Emoji,
				AmountCents:  sh.Amount.Cents,
				Percentage:   sh.Percentage,
			})
		}
		return out, nil
	})
}

func (s *Server) handleReportTopCategories(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	s.cachedReport(w, r, reportCacheKey("top-categories", from, to, ""), func() (any, error) {
		ranks, err := s.reports.TopExpenseCategories(r.Context(), from, to)
		if err != nil {
			return nil, err
		}
		out := make([]expenseRankEntry, 0, len(ranks))
		for _, rank := range ranks {
			out = append(out, toExpenseRankEntry(rank))
		}
		return out, nil
	})
}

func (s *Server) handleReportTopExpenses(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	limit, err := parseLimit(r, 10)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	key := reportCacheKey("top-expenses", from, to, fmt.Sprintf("limit=%d", limit))
	s.cachedReport(w, r, key, func() (any, error) {
		list, err := s.reports.TopExpenses(r.Context(), from, to, limit)
		if err != nil {
			return nil, err
		}
		return toTransactionResponses(list), nil
	})
}

func (s *Server) handleReportCategoryDetails(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		badRequest(w, r, "missing category name")
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	limit, err := parseLimit(r, 3)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	key := reportCacheKey("category-details", from, to, fmt.Sprintf("%s|limit=%d", name, limit))
	s.cachedReport(w, r, key, func() (any, error) {
		list, err := s.reports.CategoryDetails(r.Context(), name, from, to, limit)
		if err != nil {
			return nil, err
		}
		return toTransactionResponses(list), nil
	})
}

func toExpenseRankEntry(rank services.ExpenseRank) expenseRankEntry {
	return expenseRankEntry{
		CategoryName: rank.CategoryName,
		Emoji:        rank.Emoji,
		AmountCents:  rank.Amount.Cents,
		Percentage:   rank.Percentage,
	}
}

func toTransactionResponses(list []storage.TransactionWithCategory) []transactionResponse {
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionWithCategoryResponse(t))
	}
	return out
}
