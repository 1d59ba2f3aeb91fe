package http

import (
	"log/slog"
	"net/http"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

type transactionRequest struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	CategoryID  int64  `json:"category_id"`
	Description string `json:"description"`
}

type transactionResponse struct {
	ID            int64  `json:"id"`
	Date          string `json:"date"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount"`
	CategoryID    int64  `json:"category_id"`
	Description   string `json:"description"`
	CategoryName  string `json:"category_name,omitempty"`
	CategoryType  string `json:"category_type,omitempty"`
	CategoryEmoji string `json:"category_emoji,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.String(),
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		CategoryID:  t.CategoryID,
		Description: t.Description,
	}
}

func toTransactionWithCategoryResponse(t storage.TransactionWithCategory) transactionResponse {
	resp := toTransactionResponse(t.Transaction)
	resp.CategoryName = t.CategoryName
	resp.CategoryType = string(t.CategoryType)
	resp.CategoryEmoji = t.CategoryEmoji
	return resp
}

func (req transactionRequest) toDomain(id int64) (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		CategoryID:  req.CategoryID,
		Amount:      core.Money{Cents: req.AmountCents},
		Description: sanitizeText(req.Description),
		Date:        date,
	}, nil
}

// handleListTransactions serves the ledger for a date range. A sweep runs
// first so recurring transactions due since the last refresh appear in the
// listing; a sweep failure is logged but never hides stored data.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if _, err := s.materializer.MaterializeUpTo(r.Context(), s.materializer.Today()); err != nil {
		slog.WarnContext(r.Context(), "Pre-listing materialization failed", "error", err)
	} else {
		s.reportCache.Clear()
	}

	list, err := s.ledger.ListTransactions(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toTransactionWithCategoryResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	t, err := req.toDomain(0)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := t.Validate(); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	id, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	t.ID = id
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	t, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(*t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	t, err := req.toDomain(id)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := t.Validate(); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.ledger.UpdateTransaction(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}
