package history

import (
	"context"
	"time"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// instrumentedStore wraps a Store and records operation counts, latency and
// committed-record totals.
type instrumentedStore struct {
	inner   Store
	metrics *metrics.HistoryMetrics
}

// Instrument wraps store with metrics instrumentation. A nil metrics handle
// returns the store unchanged.
func Instrument(store Store, m *metrics.HistoryMetrics) Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{inner: store, metrics: m}
}

func (s *instrumentedStore) Latest(ctx context.Context, key asset.Key) (*Record, error) {
	start := time.Now()
	record, err := s.inner.Latest(ctx, key)
	s.metrics.RecordOperation("latest", statusOf(err), time.Since(start))
	return record, err
}

func (s *instrumentedStore) Commit(ctx context.Context, records []*Record) error {
	start := time.Now()
	err := s.inner.Commit(ctx, records)
	s.metrics.RecordOperation("commit", statusOf(err), time.Since(start))
	if err == nil {
		s.metrics.RecordCommitted(len(records))
	}
	return err
}

func (s *instrumentedStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	start := time.Now()
	records, err := s.inner.Query(ctx, q)
	s.metrics.RecordOperation("query", statusOf(err), time.Since(start))
	return records, err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
