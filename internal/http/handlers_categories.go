package http

import (
	"net/http"
	"strings"

	"finjoy/internal/core"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type categoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Emoji        string `json:"emoji"`
	DisplayOrder int64  `json:"display_order"`
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Type:         string(c.Type),
		Emoji:        c.Emoji,
		DisplayOrder: c.DisplayOrder,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		list []core.Category
		err  error
	)
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		list, err = s.categories.ListCategoriesByType(r.Context(), core.CategoryType(t))
	} else {
		list, err = s.categories.ListCategories(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	c := core.Category{
		Name:  sanitizeText(req.Name),
		Type:  core.CategoryType(req.Type),
		Emoji: strings.TrimSpace(req.Emoji),
	}
	id, err := s.categories.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.categories.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(*created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	existing, err := s.categories.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated := *existing
	updated.Name = sanitizeText(req.Name)
	updated.Type = core.CategoryType(req.Type)
	if e := strings.TrimSpace(req.Emoji); e != "" {
		updated.Emoji = e
	}

	if err := s.categories.UpdateCategory(r.Context(), updated); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	writeJSON(w, http.StatusOK, toCategoryResponse(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	if err := s.categories.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		badRequest(w, r, "ids must not be empty")
		return
	}

	if err := s.categories.Reorder(r.Context(), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
