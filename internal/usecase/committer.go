package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/digest"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// CommitState is a step of one notification attempt.
type CommitState string

const (
	StateIdle       CommitState = "idle"
	StateSending    CommitState = "sending"
	StateCommitting CommitState = "committing"
	StateDone       CommitState = "done"
	StateFailed     CommitState = "failed"
)

// Outcome reports where a notification attempt ended.
type Outcome struct {
	State    CommitState
	Eligible int
	Notified int
}

// CommitterOptions tune digest selection.
type CommitterOptions struct {
	WindowDays    int
	Location      *time.Location
	SubjectPrefix string
}

// Committer delivers eligible records and marks them notified only after the
// notifier confirms delivery.
type Committer struct {
	store    ports.RecordStore
	notifier ports.Notifier
	opts     CommitterOptions
	logger   *slog.Logger
}

// NewCommitter wires the store with a notifier.
func NewCommitter(store ports.RecordStore, notifier ports.Notifier, opts CommitterOptions, log *slog.Logger) *Committer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Committer{store: store, notifier: notifier, opts: opts, logger: log}
}

// Commit selects eligible records as of now, delivers them as one digest and
// persists the Notified status. A failed delivery leaves the store untouched.
func (c *Committer) Commit(ctx context.Context, now time.Time) (Outcome, error) {
	outcome := Outcome{State: StateIdle}

	records, err := c.store.LoadAll(ctx)
	if err != nil {
		return outcome, err
	}

	eligible := SelectEligible(records, now, c.opts.WindowDays, c.opts.Location)
	outcome.Eligible = len(eligible)
	if len(eligible) == 0 {
		c.logger.Info("no eligible records", "window_days", c.opts.WindowDays)
		outcome.State = StateDone
		return outcome, nil
	}

	if c.notifier == nil {
		outcome.State = StateFailed
		return outcome, &domain.DeliveryError{Err: errors.New("no notifier configured")}
	}

	outcome.State = StateSending
	d := digest.Build(c.opts.SubjectPrefix, now, c.opts.Location, eligible)
	c.logger.Info("delivering digest", "subject", d.Subject, "records", len(eligible))

	if err := c.notifier.Deliver(ctx, d); err != nil {
		outcome.State = StateFailed
		var deliveryErr *domain.DeliveryError
		if errors.As(err, &deliveryErr) {
			return outcome, err
		}
		return outcome, &domain.DeliveryError{Err: err}
	}

	outcome.State = StateCommitting
	notified, err := c.markNotified(ctx, d.Links())
	if err != nil {
		c.logger.Error("digest delivered but status not persisted", "records", len(eligible), "error", err)
		return outcome, err
	}

	outcome.State = StateDone
	outcome.Notified = notified
	c.logger.Info("digest committed", "notified", notified)
	return outcome, nil
}

// markNotified reloads the store so records ingested since selection are kept,
// then flips only the delivered links.
func (c *Committer) markNotified(ctx context.Context, links []string) (int, error) {
	current, err := c.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reload before commit: %w", err)
	}

	delivered := make(map[string]struct{}, len(links))
	for _, link := range links {
		delivered[link] = struct{}{}
	}

	notified := 0
	for i := range current {
		if _, ok := delivered[current[i].Link]; !ok {
			continue
		}
		if current[i].Status != domain.StatusNotified {
			current[i].Status = domain.StatusNotified
			notified++
		}
		delete(delivered, current[i].Link)
	}

	if err := c.store.RewriteAll(ctx, current); err != nil {
		return 0, err
	}
	return notified, nil
}
