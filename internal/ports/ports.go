package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ListingSource fetches the configured listing page and returns parsed candidates.
type ListingSource interface {
	FetchCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// RecordStore persists every record ever ingested, keyed by link.
type RecordStore interface {
	LoadAll(ctx context.Context) ([]domain.Record, error)
	AppendNew(ctx context.Context, records []domain.Record) error
	RewriteAll(ctx context.Context, records []domain.Record) error
}

// Notifier delivers a digest through one channel (email, Telegram, etc.).
type Notifier interface {
	Deliver(ctx context.Context, digest domain.Digest) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
