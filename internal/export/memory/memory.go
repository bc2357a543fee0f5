// Package memory is an in-process ledger used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"khata/internal/core"
	"khata/internal/export"
)

type Store struct {
	mu    sync.Mutex
	items []core.ExpenseRecord
}

var _ export.RecordWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.ExpenseRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Records returns a copy of everything appended so far.
func (s *Store) Records() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.items...)
}
