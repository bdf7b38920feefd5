package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
)

// PipelineDeps wires the ingest and notification halves into one pipeline.
type PipelineDeps struct {
	Ingestor  *Ingestor
	Committer *Committer
	Logger    *slog.Logger
}

// Pipeline runs the harvest-then-notify workflow. Runs are sequential;
// callers must not share a store between concurrent pipelines.
type Pipeline struct {
	ingestor  *Ingestor
	committer *Committer
	logger    *slog.Logger
}

// RunReport aggregates the results of Run.
type RunReport struct {
	RunID      string
	Ingest     IngestReport
	FetchError error
	Outcome    Outcome
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		ingestor:  deps.Ingestor,
		committer: deps.Committer,
		logger:    log,
	}
}

// Ingest fetches the listing and stores new matching records.
func (p *Pipeline) Ingest(ctx context.Context) (IngestReport, error) {
	if p.ingestor == nil {
		return IngestReport{}, nil
	}
	return p.ingestor.Ingest(ctx)
}

// Notify delivers the digest of records eligible at now.
func (p *Pipeline) Notify(ctx context.Context, now time.Time) (Outcome, error) {
	if p.committer == nil {
		return Outcome{State: StateDone}, nil
	}
	return p.committer.Commit(ctx, now)
}

// Run ingests then notifies. An unreachable source is logged and the run
// continues with already stored records; store errors stop the run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString()}
	log := p.logger.With("run_id", report.RunID)
	log.Info("run started", "now", now.Format(time.RFC3339))

	ingest, err := p.Ingest(ctx)
	report.Ingest = ingest
	if err != nil {
		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) {
			log.Error("ingest failed", "error", err)
			return report, err
		}
		report.FetchError = err
		log.Warn("listing unavailable, notifying stored records", "error", err)
	}

	outcome, err := p.Notify(ctx, now)
	report.Outcome = outcome
	if err != nil {
		log.Error("notify failed", "state", outcome.State, "error", err)
		return report, err
	}

	log.Info("run finished",
		"ingested", report.Ingest.Ingested,
		"eligible", outcome.Eligible,
		"notified", outcome.Notified)
	return report, nil
}
