package http

import (
	"net/http"
	"strings"

	"finjoy/internal/core"
	"finjoy/internal/services"
)

type recurringRequest struct {
	Name                 string `json:"name"`
	AmountCents          int64  `json:"amount_cents"`
	CategoryID           int64  `json:"category_id"`
	DaysOfMonth          string `json:"days_of_month"`
	StartDate            string `json:"start_date"`
	IsActive             *bool  `json:"is_active,omitempty"`
	Description          string `json:"description"`
	IncludeCurrentPeriod bool   `json:"include_current_period,omitempty"`
}

type recurringResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	CategoryID  int64  `json:"category_id"`
	DaysOfMonth string `json:"days_of_month"`
	StartDate   string `json:"start_date"`
	IsActive    bool   `json:"is_active"`
	Description string `json:"description"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

type amountChangeRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	EffectiveDate string `json:"effective_date"`
	Note          string `json:"note"`
}

type amountPeriodResponse struct {
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	From        string `json:"from"`
	To          string `json:"to,omitempty"`
	Note        string `json:"note,omitempty"`
}

func toRecurringResponse(d core.RecurringDefinition) recurringResponse {
	return recurringResponse{
		ID:          d.ID,
		Name:        d.Name,
		AmountCents: d.Amount.Cents,
		Amount:      d.Amount.String(),
		CategoryID:  d.CategoryID,
		DaysOfMonth: d.DaysOfMonth,
		StartDate:   d.StartDate.String(),
		IsActive:    d.IsActive,
		Description: d.Description,
	}
}

func (req recurringRequest) toDomain(id int64) (core.RecurringDefinition, error) {
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return core.RecurringDefinition{
		ID:          id,
		Name:        sanitizeText(req.Name),
		Amount:      core.Money{Cents: req.AmountCents},
		CategoryID:  req.CategoryID,
		DaysOfMonth: strings.TrimSpace(req.DaysOfMonth),
		StartDate:   start,
		IsActive:    active,
		Description: sanitizeText(req.Description),
	}, nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.recurring.ListDefinitions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]recurringResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, toRecurringResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	def, err := req.toDomain(0)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := def.Validate(); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	id, err := s.recurring.CreateDefinition(r.Context(), def, req.IncludeCurrentPeriod)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	def.ID = id
	writeJSON(w, http.StatusCreated, toRecurringResponse(def))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	def, err := s.recurring.GetDefinition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(*def))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	def, err := req.toDomain(id)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.recurring.UpdateDefinition(r.Context(), def); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	updated, err := s.recurring.GetDefinition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(*updated))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.recurring.DeleteDefinition(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetRecurringActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var req activeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.recurring.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeRecurringAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var req amountChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	effective := s.materializer.Today()
	if strings.TrimSpace(req.EffectiveDate) != "" {
		effective, err = core.ParseDate(req.EffectiveDate)
		if err != nil {
			badRequest(w, r, "invalid effective_date: expected YYYY-MM-DD")
			return
		}
	}

	amount := core.Money{Cents: req.AmountCents}
	if err := s.recurring.ChangeAmount(r.Context(), id, amount, effective, sanitizeText(req.Note)); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecurringHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	periods, err := s.recurring.AmountHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]amountPeriodResponse, 0, len(periods))
	for _, p := range periods {
		resp = append(resp, toAmountPeriodResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAmountPeriodResponse(p services.AmountPeriod) amountPeriodResponse {
	out := amountPeriodResponse{
		AmountCents: p.Amount.Cents,
		Amount:      p.Amount.String(),
		From:        p.From.String(),
		Note:        p.Note,
	}
	if p.To != nil {
		out.To = p.To.String()
	}
	return out
}

// handleMaterialize runs an on-demand sweep and reports how many
// transactions it generated.
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	created, err := s.materializer.MaterializeUpTo(r.Context(), s.materializer.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created > 0 {
		s.reportCache.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}
