package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements ListingSource by fetching the configured page
// and handing it to the registered parser strategy.
type StrategySource struct {
	registry  *scanner.Registry
	client    *http.Client
	pageURL   string
	parser    string
	userAgent string
	logger    *slog.Logger
}

var _ ports.ListingSource = (*StrategySource)(nil)

// NewStrategySource wires the parser registry with the configured source.
// A nil client gets one bounded by the configured timeout.
func NewStrategySource(reg *scanner.Registry, client *http.Client, cfg config.SourceConfig, log *slog.Logger) *StrategySource {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &StrategySource{
		registry:  reg,
		client:    client,
		pageURL:   cfg.URL,
		parser:    cfg.Parser,
		userAgent: userAgent,
		logger:    log,
	}
}

// FetchCandidates downloads the listing page once and extracts candidates.
// Every failure is reported as a FetchError; nothing is retried.
func (s *StrategySource) FetchCandidates(ctx context.Context) ([]domain.Candidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("parser registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.parser)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.pageURL, err)
	}

	s.debug("fetch listing", "url", s.pageURL, "parser", strategy.Name())

	doc, err := fetchDocument(ctx, s.client, s.pageURL, s.userAgent)
	if err != nil {
		return nil, &domain.FetchError{URL: s.pageURL, Err: err}
	}

	candidates, err := strategy.Parse(doc)
	if err != nil {
		return nil, &domain.FetchError{URL: s.pageURL, Err: fmt.Errorf("parse listing: %w", err)}
	}

	s.debug("listing parsed", "candidates", len(candidates))
	return candidates, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
