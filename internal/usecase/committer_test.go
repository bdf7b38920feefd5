package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
)

func TestSelectEligibleWindowBoundary(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		domain.NewRecord("edge", "https://n/2024-05-01/a", date(2024, 5, 1)),
		domain.NewRecord("outside", "https://n/2024-04-30/b", date(2024, 4, 30)),
		domain.NewRecord("today", "https://n/2024-05-03/c", date(2024, 5, 3)),
		{Title: "undated", Link: "https://n/d", RawDate: "garbage"},
		{Title: "sent", Link: "https://n/2024-05-02/e", Published: date(2024, 5, 2), Status: domain.StatusNotified},
		{Title: "legacy", Link: "https://n/2024-05-02/f", Published: date(2024, 5, 2), Status: domain.Status("已发送")},
	}

	now := time.Date(2024, 5, 3, 23, 59, 59, 0, time.UTC)
	eligible := SelectEligible(records, now, 2, time.UTC)
	require.Len(t, eligible, 2)
	assert.Equal(t, "edge", eligible[0].Title, "lower edge is inclusive")
	assert.Equal(t, "today", eligible[1].Title)

	assert.Equal(t, eligible, SelectEligible(records, now, 2, time.UTC), "selection is pure")
}

func TestSelectEligibleUsesLocalCalendarDate(t *testing.T) {
	t.Parallel()

	records := []domain.Record{
		domain.NewRecord("may first", "https://n/2024-05-01/a", date(2024, 5, 1)),
	}
	loc := time.FixedZone("UTC+8", 8*60*60)
	now := time.Date(2024, 5, 3, 17, 0, 0, 0, time.UTC)

	assert.Len(t, SelectEligible(records, now, 2, time.UTC), 1)
	assert.Empty(t, SelectEligible(records, now, 2, loc), "already May 4th in UTC+8")
}

func TestCommitterNothingEligible(t *testing.T) {
	t.Parallel()

	store := &memStore{records: []domain.Record{
		domain.NewRecord("old", "https://n/2024-04-01/a", date(2024, 4, 1)),
	}}
	notifier := &fakeNotifier{}
	committer := NewCommitter(store, notifier, CommitterOptions{WindowDays: 2}, nil)

	outcome, err := committer.Commit(context.Background(), date(2024, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Zero(t, outcome.Eligible)
	assert.Empty(t, notifier.delivered)
	assert.Zero(t, store.writes)
}

func TestCommitterDeliveryFailureIsNotCommitted(t *testing.T) {
	t.Parallel()

	rec := domain.NewRecord("Messi", "https://n/2024-05-01/a", date(2024, 5, 1))
	store := &memStore{records: []domain.Record{rec}}
	notifier := &fakeNotifier{err: errBoom}
	committer := NewCommitter(store, notifier, CommitterOptions{WindowDays: 2}, nil)

	outcome, err := committer.Commit(context.Background(), date(2024, 5, 2))
	require.Error(t, err)
	assert.True(t, domain.IsDeliveryError(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateFailed, outcome.State)
	assert.Zero(t, store.writes)
	assert.True(t, store.snapshot()[0].IsPending())

	notifier.err = nil
	outcome, err = committer.Commit(context.Background(), date(2024, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Notified, "retry delivers the same records")
}

func TestCommitterKeepsRecordsIngestedDuringDelivery(t *testing.T) {
	t.Parallel()

	store := &memStore{records: []domain.Record{
		domain.NewRecord("A", "https://n/2024-05-01/a", date(2024, 5, 1)),
	}}
	late := domain.NewRecord("B", "https://n/2024-05-02/b", date(2024, 5, 2))
	notifier := &fakeNotifier{onDeliver: func() {
		_ = store.AppendNew(context.Background(), []domain.Record{late})
	}}
	committer := NewCommitter(store, notifier, CommitterOptions{WindowDays: 2, SubjectPrefix: "Digest"}, nil)

	outcome, err := committer.Commit(context.Background(), date(2024, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Notified)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "Digest - 2024-05-02", notifier.delivered[0].Subject)

	records := store.snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, domain.StatusNotified, records[0].Status)
	assert.True(t, records[1].IsPending(), "record added after selection stays pending")
}

func TestCommitterStoreFailureAfterDelivery(t *testing.T) {
	t.Parallel()

	store := &memStore{records: []domain.Record{
		domain.NewRecord("A", "https://n/2024-05-01/a", date(2024, 5, 1)),
	}}
	notifier := &fakeNotifier{onDeliver: func() { store.writeErr = errBoom }}
	committer := NewCommitter(store, notifier, CommitterOptions{WindowDays: 2}, nil)

	outcome, err := committer.Commit(context.Background(), date(2024, 5, 2))
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
	assert.Equal(t, StateCommitting, outcome.State)
}

func TestMessiScenarioAgainstCSVStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "news.csv"), nil)
	source := &fakeSource{candidates: []domain.Candidate{
		{Title: "Messi scores again", Link: "//news.example/2024-05-01/x"},
		{Title: "Unrelated match report", Link: "//news.example/2024-05-01/y"},
	}}
	ingestor := NewIngestor(source, store, []string{"Messi"}, mustOrigin(t, "https://news.example"), nil)

	_, err := ingestor.Ingest(ctx)
	require.NoError(t, err)

	records, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Messi scores again", records[0].Title)
	assert.Equal(t, "2024-05-01", records[0].DateString())
	assert.True(t, records[0].IsPending())

	assert.Len(t, SelectEligible(records, date(2024, 5, 2), 2, time.UTC), 1)
	assert.Empty(t, SelectEligible(records, date(2024, 5, 10), 2, time.UTC))

	notifier := &fakeNotifier{}
	committer := NewCommitter(store, notifier, CommitterOptions{WindowDays: 2}, nil)
	outcome, err := committer.Commit(ctx, date(2024, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, 1, outcome.Notified)

	records, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotified, records[0].Status)
	for _, day := range []int{2, 3} {
		assert.Empty(t, SelectEligible(records, date(2024, 5, day), 2, time.UTC))
	}

	_, err = ingestor.Ingest(ctx)
	require.NoError(t, err)
	records, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusNotified, records[0].Status, "re-ingest never resets status")
}
