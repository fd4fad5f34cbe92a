// Package memory is an in-memory RowAppender used by tests and by
// local runs without Sheets credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finanzapp/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows []export.Row
}

var _ export.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, row export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}
