package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/email"
	"NewsDigest/internal/infrastructure/notify"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    ports.RecordStore
	db       *sql.DB
	pipeline *usecase.Pipeline
}

// Option adjusts how the application is assembled.
type Option func(*options)

type options struct {
	delivery bool
	source   ports.ListingSource
	notifier ports.Notifier
}

// WithDelivery builds the configured notification channels. Commands that
// only read or ingest leave it off so they run without credentials.
func WithDelivery() Option {
	return func(o *options) { o.delivery = true }
}

// WithSource replaces the HTTP listing source.
func WithSource(source ports.ListingSource) Option {
	return func(o *options) { o.source = source }
}

// WithNotifier replaces the configured notification channels.
func WithNotifier(n ports.Notifier) Option {
	return func(o *options) {
		o.delivery = true
		o.notifier = n
	}
}

// New builds the application from validated configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	origin, err := url.Parse(cfg.Source.OriginURL())
	if err != nil {
		return nil, fmt.Errorf("config: source origin: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	source := o.source
	if source == nil {
		source = parser.NewStrategySource(scanner.DefaultRegistry(), nil, cfg.Source, baseLogger.With("component", "source"))
	}

	notifier := o.notifier
	if o.delivery && notifier == nil {
		if err := cfg.ValidateNotifications(); err != nil {
			_ = a.Close()
			return nil, err
		}
		notifier, err = buildNotifier(cfg.Notifications, baseLogger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	ingestor := usecase.NewIngestor(source, a.store, cfg.Keywords, origin, baseLogger.With("component", "ingest"))
	committer := usecase.NewCommitter(a.store, notifier, usecase.CommitterOptions{
		WindowDays:    cfg.Eligibility.WindowDays,
		Location:      cfg.Scheduler.Location(),
		SubjectPrefix: cfg.Notifications.SubjectPrefix,
	}, baseLogger.With("component", "committer"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Ingestor:  ingestor,
		Committer: committer,
		Logger:    baseLogger.With("component", "pipeline"),
	})
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	log := a.logger.With("component", "store")

	switch a.cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := storage.OpenPostgres(ctx, a.cfg.Store.DSN)
		if err != nil {
			return &domain.StoreError{Op: domain.StoreRead, Err: err}
		}
		store := storage.NewPostgresStore(db, a.cfg.Store.Table, log)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return err
		}
		a.db = db
		a.store = store
	default:
		a.store = storage.NewCSVStore(a.cfg.Store.Path, log)
	}
	return nil
}

func buildNotifier(cfg config.NotificationConfig, log *slog.Logger) (ports.Notifier, error) {
	var channels []notify.Channel
	for _, name := range cfg.Channels {
		switch name {
		case config.ChannelEmail:
			n, err := email.NewNotifier(cfg.Email, log.With("component", "notifier.email"))
			if err != nil {
				return nil, fmt.Errorf("config: email channel: %w", err)
			}
			channels = append(channels, notify.Channel{Name: name, Notifier: n})
		case config.ChannelTelegram:
			n, err := telegram.NewNotifier(cfg.Telegram)
			if err != nil {
				return nil, fmt.Errorf("config: telegram channel: %w", err)
			}
			channels = append(channels, notify.Channel{Name: name, Notifier: n})
		default:
			return nil, fmt.Errorf("config: unknown notification channel %q", name)
		}
	}
	if len(channels) == 0 {
		return nil, errors.New("config: no notification channels configured")
	}
	return notify.NewFanout(log.With("component", "notifier"), channels...), nil
}

// Pipeline exposes the orchestration use case.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Records loads every stored record.
func (a *Application) Records(ctx context.Context) ([]domain.Record, error) {
	return a.store.LoadAll(ctx)
}

// Eligible lists the records a digest sent at now would contain.
func (a *Application) Eligible(ctx context.Context, now time.Time) ([]domain.Record, error) {
	records, err := a.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return usecase.SelectEligible(records, now, a.cfg.Eligibility.WindowDays, a.cfg.Scheduler.Location()), nil
}

// Schedule runs the pipeline on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(scheduler.Options{
		Expression: a.cfg.Scheduler.CronExpression,
		Location:   a.cfg.Scheduler.Location(),
		RunOnStart: a.cfg.Scheduler.RunOnStart,
	}, a.logger.With("component", "scheduler"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	runner := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := runner.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return runner.Stop(stopCtx)
}

// Close releases the database connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
