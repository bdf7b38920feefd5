package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/domain"
)

func (c *cli) application(ctx context.Context, opts ...app.Option) (*app.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return app.New(ctx, c.cfg, c.logger, opts...)
}

func (c *cli) ingestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the listing and store new matching items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Pipeline().Ingest(cmd.Context())
			if err != nil {
				var fetchErr *domain.FetchError
				if errors.As(err, &fetchErr) {
					c.logger.Warn("listing unavailable, nothing ingested", "error", err)
					return nil
				}
				return err
			}
			fmt.Fprintf(c.out, "fetched %d, matched %d, rejected %d, duplicates %d, ingested %d\n",
				report.Fetched, report.Matched, report.Rejected, report.Duplicates, report.Ingested)
			return nil
		},
	}
}

func (c *cli) notifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Deliver the digest of eligible items and mark them notified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context(), app.WithDelivery())
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Pipeline().Notify(cmd.Context(), c.now)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "eligible %d, notified %d\n", outcome.Eligible, outcome.Notified)
			return nil
		},
	}
}

func (c *cli) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest, then deliver the digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context(), app.WithDelivery())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Pipeline().Run(cmd.Context(), c.now)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "run %s: ingested %d, eligible %d, notified %d\n",
				report.RunID, report.Ingest.Ingested, report.Outcome.Eligible, report.Outcome.Notified)
			return nil
		},
	}
}

func (c *cli) scheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron expression until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.application(ctx, app.WithDelivery())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Schedule(ctx)
		},
	}
}

func (c *cli) pendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show the items the next digest would contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Eligible(cmd.Context(), c.now)
			if err != nil {
				return err
			}
			c.renderRecords(records, fmt.Sprintf("Window: %d days", c.cfg.Eligibility.WindowDays))
			return nil
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every stored item with its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Records(cmd.Context())
			if err != nil {
				return err
			}
			c.renderRecords(records, "")
			return nil
		},
	}
}

func (c *cli) renderRecords(records []domain.Record, note string) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Date", "Status", "Title", "Link"})

	for i, rec := range records {
		t.AppendRow(table.Row{i + 1, rec.DateString(), statusLabel(rec), rec.Title, rec.Link})
	}

	t.AppendFooter(table.Row{"Total", len(records), note, "", ""})
	t.Render()
}

func statusLabel(rec domain.Record) string {
	switch {
	case !rec.Valid():
		return "malformed"
	case rec.IsPending():
		return "pending"
	default:
		return string(rec.Status)
	}
}
