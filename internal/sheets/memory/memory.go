// Package memory is an in-process sheets.Exporter used when no spreadsheet
// is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finsight/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// Export stores the report rows and returns a synthetic range reference.
func (s *Store) Export(_ context.Context, r sheets.Report) (string, error) {
	rows := sheets.Rows(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
