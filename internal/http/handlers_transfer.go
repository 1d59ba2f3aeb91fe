package http

import (
	"log/slog"
	"net/http"

	"finjoy/internal/transfer"
)

type importResponse struct {
	TransactionsImported int `json:"transactions_imported"`
	TransactionsSkipped  int `json:"transactions_skipped"`
	RecurringImported    int `json:"recurring_imported"`
	RecurringSkipped     int `json:"recurring_skipped"`
	Malformed            int `json:"malformed"`
}

// handleExport streams the full dataset as a sectioned CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="finjoy-export.csv"`)

	if err := transfer.Export(r.Context(), s.exportStore, w); err != nil {
		// Headers are already out, so the client sees a truncated body;
		// the cause only goes to the log.
		slog.ErrorContext(r.Context(), "Export failed mid-stream", "error", err)
	}
}

// handleImport reads a sectioned CSV body and reports per-row outcomes.
// Malformed rows never abort the upload.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.importer.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	writeJSON(w, http.StatusOK, importResponse{
		TransactionsImported: result.TransactionsImported,
		TransactionsSkipped:  result.TransactionsSkipped,
		RecurringImported:    result.RecurringImported,
		RecurringSkipped:     result.RecurringSkipped,
		Malformed:            result.Malformed,
	})
}
