package journal

import (
	"context"
	"fmt"
	"sync/atomic"

	"dreams/internal/cache"
	"dreams/internal/core"
	"dreams/internal/metrics"
)

// CachedStore memoizes month listings of an underlying store. Any successful write
// drops every cached month, since an update can move a dream between months.
type CachedStore struct {
	Store
	months  cache.Cache[[]core.DreamRecord]
	metrics *metrics.Metrics
	// generation counts purges; a listing fetched across a purge is not cached.
	generation atomic.Uint64
}

// NewCachedStore wraps store. m may be nil.
func NewCachedStore(store Store, months cache.Cache[[]core.DreamRecord], m *metrics.Metrics) *CachedStore {
	return &CachedStore{Store: store, months: months, metrics: m}
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (s *CachedStore) ListMonth(ctx context.Context, year, month int) ([]core.DreamRecord, error) {
	key := monthKey(year, month)
	if records, ok := s.months.Get(key); ok {
		s.observe("hit")
		return copyRecords(records), nil
	}
	s.observe("miss")

	gen := s.generation.Load()
	records, err := s.Store.ListMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if s.generation.Load() == gen {
		s.months.Set(key, copyRecords(records))
	}
	return records, nil
}

func (s *CachedStore) CreateDream(ctx context.Context, p core.DreamPayload) (core.DreamRecord, error) {
	r, err := s.Store.CreateDream(ctx, p)
	if err == nil {
		s.purge()
	}
	return r, err
}

func (s *CachedStore) UpdateDream(ctx context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error) {
	r, err := s.Store.UpdateDream(ctx, id, p)
	if err == nil {
		s.purge()
	}
	return r, err
}

func (s *CachedStore) DeleteDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	r, err := s.Store.DeleteDream(ctx, id)
	if err == nil {
		s.purge()
	}
	return r, err
}

func (s *CachedStore) purge() {
	s.generation.Add(1)
	s.months.Purge()
}

func (s *CachedStore) observe(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func copyRecords(in []core.DreamRecord) []core.DreamRecord {
	out := make([]core.DreamRecord, len(in))
	for i, r := range in {
		r.Emotions = append([]string{}, r.Emotions...)
		out[i] = r
	}
	return out
}
