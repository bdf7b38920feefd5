package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"NewsDigest/internal/domain"
)

var errBoom = errors.New("boom")

func mustOrigin(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse origin: %v", err)
	}
	return u
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeSource struct {
	candidates []domain.Candidate
	err        error
	calls      int
}

func (f *fakeSource) FetchCandidates(context.Context) ([]domain.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

// memStore mirrors the CSV store rules in memory and counts writes.
type memStore struct {
	mu       sync.Mutex
	records  []domain.Record
	loadErr  error
	writeErr error
	writes   int
}

func (m *memStore) LoadAll(context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: m.loadErr}
	}
	return append([]domain.Record(nil), m.records...), nil
}

func (m *memStore) AppendNew(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: m.writeErr}
	}
	m.writes++
	seen := map[string]bool{}
	for _, rec := range m.records {
		seen[rec.Link] = true
	}
	for _, rec := range records {
		if seen[rec.Link] {
			continue
		}
		seen[rec.Link] = true
		m.records = append(m.records, rec)
	}
	return nil
}

func (m *memStore) RewriteAll(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: m.writeErr}
	}
	m.writes++
	m.records = append([]domain.Record(nil), records...)
	return nil
}

func (m *memStore) snapshot() []domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Record(nil), m.records...)
}

type fakeNotifier struct {
	err       error
	delivered []domain.Digest
	onDeliver func()
}

func (f *fakeNotifier) Deliver(_ context.Context, d domain.Digest) error {
	if f.onDeliver != nil {
		f.onDeliver()
	}
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, d)
	return nil
}

type fakeDriver struct {
	triggers []time.Time
	stopped  bool
}

func (f *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	for _, trigger := range f.triggers {
		job(trigger)
	}
	return nil
}

func (f *fakeDriver) Stop(context.Context) error {
	f.stopped = true
	return nil
}
