package memory

import (
	"context"
	"sync"

	"profitcalc/internal/export"
	ports "profitcalc/internal/sheets"
)

var _ ports.ReportWriter = (*Store)(nil)

// Store keeps the last table written for each owner, rendered as strings.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

// WriteTable implements sheets.ReportWriter.
func (s *Store) WriteTable(_ context.Context, owner string, t export.Table) error {
	rendered := t.Strings()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[owner] = rendered
	s.writes++
	return nil
}

// Table returns the last table written for owner.
func (s *Store) Table(owner string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[owner]
	return t, ok
}

// Writes returns how many tables have been written in total.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
