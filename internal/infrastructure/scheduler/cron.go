package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsDigest/internal/ports"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Options configure the cron driver.
type Options struct {
	Expression string
	Location   *time.Location
	RunOnStart bool
}

// CronScheduler triggers jobs on a standard five-field cron expression.
// Overlapping triggers are skipped while a run is still in progress.
type CronScheduler struct {
	opts   Options
	parser cron.Parser
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates the expression and builds a stopped scheduler.
func NewCronScheduler(opts Options, log *slog.Logger) (*CronScheduler, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(opts.Expression); err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", opts.Expression, err)
	}

	return &CronScheduler{opts: opts, parser: parser, logger: log}, nil
}

// Next reports the first trigger after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	schedule, err := c.parser.Parse(c.opts.Expression)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(t.In(c.opts.Location))
}

// Start registers job and begins triggering. With RunOnStart the job also
// runs once immediately, subject to the same overlap guard.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return ErrAlreadyStarted
	}

	cronLog := cron.PrintfLogger(slog.NewLogLogger(c.logger.Handler(), slog.LevelInfo))
	runner := cron.New(
		cron.WithParser(c.parser),
		cron.WithLocation(c.opts.Location),
		cron.WithLogger(cronLog),
	)

	schedule, err := c.parser.Parse(c.opts.Expression)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.opts.Expression, err)
	}

	wrapped := cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(func() {
		job(time.Now().In(c.opts.Location))
	}))
	runner.Schedule(schedule, wrapped)
	runner.Start()
	c.cron = runner

	c.logger.Info("scheduler started",
		"expression", c.opts.Expression,
		"timezone", c.opts.Location.String(),
		"next_run", c.Next(time.Now()).Format(time.RFC3339))

	if c.opts.RunOnStart {
		go wrapped.Run()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts triggering and waits for a running job to finish or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := runner.Stop()
	select {
	case <-done.Done():
		c.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
