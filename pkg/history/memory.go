package history

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/callisto/pkg/asset"
)

// MemoryStore implements Store with an in-memory append-only log. It is the
// default for tests and for sensors that do not need history across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	latest  map[asset.Key]*Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest: make(map[asset.Key]*Record),
	}
}

// Latest returns the most recent record for key, or nil if none exists.
func (s *MemoryStore) Latest(_ context.Context, key asset.Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	record, ok := s.latest[key]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Commit appends all records of one completed tick.
func (s *MemoryStore) Commit(_ context.Context, records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for _, record := range records {
		copied := *record
		s.records = append(s.records, &copied)
		s.latest[record.AssetKey] = &copied
	}
	return nil
}

// Query returns records matching q, newest first.
func (s *MemoryStore) Query(_ context.Context, q *Query) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var results []*Record
	for _, record := range s.records {
		if !matches(record, q) {
			continue
		}
		copied := *record
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].TickIndex != results[j].TickIndex {
			return results[i].TickIndex > results[j].TickIndex
		}
		return results[i].AssetKey < results[j].AssetKey
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Close releases the store. Subsequent operations fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	s.latest = make(map[asset.Key]*Record)
	return nil
}

// Size returns the number of stored records (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(record *Record, q *Query) bool {
	if q == nil {
		return true
	}
	if q.AssetKey != "" && record.AssetKey != q.AssetKey {
		return false
	}
	if q.StartTime != nil && record.EvaluationTime.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.EvaluationTime.After(*q.EndTime) {
		return false
	}
	return true
}
