package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dreams/internal/core"
	"dreams/internal/sheets"
)

// Sheet keeps export rows in memory. It backs the worker when no spreadsheet is
// configured and stands in for Google Sheets in tests.
type Sheet struct {
	mu     sync.Mutex
	header bool
	rows   [][]any
	err    error
}

var (
	_ sheets.DreamRowWriter = (*Sheet)(nil)
	_ sheets.HeaderWriter   = (*Sheet)(nil)
)

func New() *Sheet {
	return &Sheet{}
}

// FailWith makes every following append return err. Pass nil to recover.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Sheet) EnsureHeader(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.header {
		s.rows = append([][]any{sheets.Header}, s.rows...)
		s.header = true
	}
	return nil
}

// AppendDream stores the row and returns a synthetic row reference.
func (s *Sheet) AppendDream(_ context.Context, event string, r core.DreamRecord, at time.Time) (string, error) {
	return s.append(sheets.DreamRow(event, r, at))
}

func (s *Sheet) AppendTombstone(_ context.Context, t sheets.Tombstone, at time.Time) (string, error) {
	return s.append(sheets.TombstoneRow(t, at))
}

func (s *Sheet) append(row []any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the stored rows, header included once written.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
