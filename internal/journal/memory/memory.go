package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"dreams/internal/core"
)

// Store keeps dreams in process. It applies the same validation as the sqlite store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.DreamRecord
}

func New(seed []core.DreamRecord) *Store {
	s := &Store{nextID: 1, items: make(map[int64]core.DreamRecord, len(seed))}
	for _, r := range seed {
		if r.ID == 0 {
			r.ID = s.nextID
		}
		r.Emotions = append([]string{}, r.Emotions...)
		s.items[r.ID] = r
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
	}
	return s
}

// NewFromFile seeds the store from a JSON array of dream records. An empty path
// gives an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.DreamRecord
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(seed), nil
}

// ListMonth returns the month's dreams ordered by id. A record belongs to the month
// whose date text falls in [YYYY-MM-01, next month), the same range the sqlite store
// queries. Unreadable dates inside that range, like "2024-02-30", are kept so the
// calendar can report them; undated records and free text belong to no month.
func (s *Store) ListMonth(_ context.Context, year, month int) ([]core.DreamRecord, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	from := start.Format(core.DateLayout)
	to := start.AddDate(0, 1, 0).Format(core.DateLayout)
	return s.filter(func(r core.DreamRecord) bool {
		return r.DreamDate != nil && *r.DreamDate >= from && *r.DreamDate < to
	}), nil
}

func (s *Store) GetDream(_ context.Context, id int64) (core.DreamRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.DreamRecord{}, &core.NotFoundError{ID: id}
	}
	return clone(r), nil
}

func (s *Store) CreateDream(_ context.Context, p core.DreamPayload) (core.DreamRecord, error) {
	if err := p.Validate(); err != nil {
		return core.DreamRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := p.Normalized().WithID(s.nextID)
	s.nextID++
	s.items[r.ID] = r
	return clone(r), nil
}

func (s *Store) UpdateDream(_ context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error) {
	if err := p.Validate(); err != nil {
		return core.DreamRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.DreamRecord{}, &core.NotFoundError{ID: id}
	}
	r := p.Normalized().WithID(id)
	s.items[id] = r
	return clone(r), nil
}

func (s *Store) DeleteDream(_ context.Context, id int64) (core.DreamRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.DreamRecord{}, &core.NotFoundError{ID: id}
	}
	delete(s.items, id)
	return r, nil
}

func (s *Store) ListByEmotion(_ context.Context, emotion string) ([]core.DreamRecord, error) {
	return s.filter(func(r core.DreamRecord) bool { return r.HasEmotion(emotion) }), nil
}

// Len returns the number of stored dreams.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) filter(keep func(core.DreamRecord) bool) []core.DreamRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.DreamRecord{}
	for _, r := range s.items {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(r core.DreamRecord) core.DreamRecord {
	r.Emotions = append([]string{}, r.Emotions...)
	return r
}
