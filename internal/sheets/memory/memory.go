// Package memory is an in-process mirror used in development and tests when
// no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"finjoy/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
}

func New() *Store {
	return &Store{rows: make(map[int64]sheets.Row)}
}

// Upsert stores the row keyed by its transaction ID.
func (s *Store) Upsert(_ context.Context, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.TransactionID] = row
	return nil
}

// Delete removes the row. Absent rows are a no-op.
func (s *Store) Delete(_ context.Context, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, transactionID)
	return nil
}

// Rows returns a copy of the mirrored rows.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out
}

// Get returns the mirrored row for a transaction, if present.
func (s *Store) Get(transactionID int64) (sheets.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[transactionID]
	return r, ok
}
