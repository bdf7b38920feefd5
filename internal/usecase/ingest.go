package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// IngestReport summarizes one ingest pass.
type IngestReport struct {
	Fetched    int
	Matched    int
	Rejected   int
	Duplicates int
	Ingested   int
}

// Ingestor turns listing candidates into new store records.
type Ingestor struct {
	source   ports.ListingSource
	store    ports.RecordStore
	keywords []string
	origin   *url.URL
	logger   *slog.Logger
}

// NewIngestor wires the listing source with the record store.
func NewIngestor(source ports.ListingSource, store ports.RecordStore, keywords []string, origin *url.URL, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Ingestor{
		source:   source,
		store:    store,
		keywords: keywords,
		origin:   origin,
		logger:   log,
	}
}

// Ingest fetches the listing once and appends every new matching candidate.
// A fetch failure returns before the store is touched.
func (i *Ingestor) Ingest(ctx context.Context) (IngestReport, error) {
	candidates, err := i.source.FetchCandidates(ctx)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return IngestReport{}, err
		}
		return IngestReport{}, fmt.Errorf("fetch candidates: %w", err)
	}

	existing, err := i.store.LoadAll(ctx)
	if err != nil {
		return IngestReport{}, err
	}

	fresh, report := SelectNew(candidates, existing, i.keywords, i.origin, i.logger)
	if len(fresh) == 0 {
		i.logger.Info("nothing new to ingest",
			"fetched", report.Fetched,
			"matched", report.Matched,
			"duplicates", report.Duplicates)
		return report, nil
	}

	if err := i.store.AppendNew(ctx, fresh); err != nil {
		return report, err
	}

	report.Ingested = len(fresh)
	i.logger.Info("ingest complete",
		"fetched", report.Fetched,
		"matched", report.Matched,
		"rejected", report.Rejected,
		"duplicates", report.Duplicates,
		"ingested", report.Ingested)
	return report, nil
}

// SelectNew applies normalization, the keyword filter, date extraction and
// dedup to candidates. Records come back in first-seen order; a link repeated
// inside the batch keeps its first position and the last candidate's fields.
func SelectNew(candidates []domain.Candidate, existing []domain.Record, keywords []string, origin *url.URL, log *slog.Logger) ([]domain.Record, IngestReport) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	report := IngestReport{Fetched: len(candidates)}
	persisted := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		if rec.Link != "" {
			persisted[rec.Link] = struct{}{}
		}
	}

	needles := lowerKeywords(keywords)
	var fresh []domain.Record
	position := map[string]int{}

	for _, cand := range candidates {
		link, err := domain.NormalizeLink(cand.Link, origin)
		if err != nil {
			report.Rejected++
			log.Warn("drop candidate", "error", &domain.ParseError{Link: cand.Link, Reason: "link", Err: err})
			continue
		}

		title := strings.TrimSpace(cand.Title)
		if !matchesAny(title, needles) {
			continue
		}
		report.Matched++

		if title == "" {
			report.Rejected++
			log.Warn("drop candidate", "error", &domain.ParseError{Link: link, Reason: "empty title"})
			continue
		}

		published, err := domain.ExtractDate(link, cand.RawDate)
		if err != nil {
			report.Rejected++
			log.Warn("drop candidate", "error", &domain.ParseError{Link: link, Reason: "date", Err: err})
			continue
		}

		if _, known := persisted[link]; known {
			report.Duplicates++
			continue
		}

		rec := domain.NewRecord(title, link, published)
		if idx, seen := position[link]; seen {
			report.Duplicates++
			fresh[idx] = rec
			continue
		}
		position[link] = len(fresh)
		fresh = append(fresh, rec)
	}

	return fresh, report
}

func lowerKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func matchesAny(title string, needles []string) bool {
	lowered := strings.ToLower(title)
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			return true
		}
	}
	return false
}
