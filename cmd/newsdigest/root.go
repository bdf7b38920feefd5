package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
)

// cli carries state resolved by the root command for its subcommands.
type cli struct {
	out io.Writer

	configPath string
	logLevel   string
	nowFlag    string

	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
	now    time.Time
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "newsdigest",
		Short:         "Harvest keyword news from a listing page and mail a digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.closer != nil {
				return c.closer.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $NEWSDIGEST_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.nowFlag, "now", "", "reference time as RFC 3339 or YYYY-MM-DD (default: current time)")

	root.AddCommand(
		c.ingestCommand(),
		c.notifyCommand(),
		c.runCommand(),
		c.scheduleCommand(),
		c.pendingCommand(),
		c.listCommand(),
	)
	return root
}

func (c *cli) setup() error {
	_ = godotenv.Load()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now, err := parseNow(c.nowFlag, time.Now(), cfg.Scheduler.Location())
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.now = now
	c.logger, c.closer = logging.FromConfig(cfg.Logging)
	return nil
}

// parseNow reads the --now flag. A bare date means midnight in loc.
func parseNow(raw string, fallback time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(domain.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: want RFC 3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
