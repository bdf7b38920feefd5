package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// CSVStore persists records in a single CSV table. Every write replaces the
// file through a temp file and rename, so readers never observe a partial table.
//
// The store does not lock: at most one run may use a given path at a time.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

var _ ports.RecordStore = (*CSVStore)(nil)

// NewCSVStore wires a file-backed store at path.
func NewCSVStore(path string, log *slog.Logger) *CSVStore {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CSVStore{path: path, logger: log}
}

// Path returns the table location.
func (s *CSVStore) Path() string {
	return s.path
}

// LoadAll returns every persisted record in file order. A missing file is an empty store.
func (s *CSVStore) LoadAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: err}
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: err}
	}

	records, err := decodeTable(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("%s: %w", s.path, err)}
	}

	malformed := 0
	for _, rec := range records {
		if !rec.Valid() {
			malformed++
		}
	}
	if malformed > 0 {
		s.logger.Warn("store holds malformed rows", "path", s.path, "rows", malformed)
	}

	return records, nil
}

// AppendNew adds records whose links are not yet persisted. Links already in
// the table, or repeated within the batch, are skipped so the existing row wins.
func (s *CSVStore) AppendNew(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}

	seen := linkSet(existing)
	combined := existing
	added := 0
	for _, rec := range records {
		if _, dup := seen[rec.Link]; dup {
			s.logger.Warn("skip append of known link", "link", rec.Link)
			continue
		}
		seen[rec.Link] = struct{}{}
		combined = append(combined, rec)
		added++
	}

	if added == 0 {
		return nil
	}

	return s.writeVerified(ctx, combined)
}

// RewriteAll replaces the table with records. Persisted rows missing from
// records are kept, and a persisted Notified status is never reverted to Pending.
func (s *CSVStore) RewriteAll(ctx context.Context, records []domain.Record) error {
	current, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}

	merged := mergeForRewrite(current, records, s.logger)
	return s.writeVerified(ctx, merged)
}

func (s *CSVStore) writeVerified(ctx context.Context, records []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: err}
	}

	data, err := encodeTable(records)
	if err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.StoreError{Op: domain.StoreWrite, Err: err}
		}
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: fmt.Errorf("replace %s: %w", s.path, err)}
	}

	written, err := s.LoadAll(ctx)
	if err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: fmt.Errorf("read back: %w", err)}
	}
	if err := verifyWritten(records, written); err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: err}
	}

	s.logger.Debug("store written", "path", s.path, "records", len(records))
	return nil
}

// mergeForRewrite applies the store's rewrite rules: incoming rows keep their
// order, duplicate links keep the first row, status never regresses, and
// persisted rows absent from incoming are carried over at the end.
func mergeForRewrite(current, incoming []domain.Record, log *slog.Logger) []domain.Record {
	currentByLink := make(map[string]domain.Record, len(current))
	for _, rec := range current {
		if rec.Link == "" {
			continue
		}
		if _, ok := currentByLink[rec.Link]; !ok {
			currentByLink[rec.Link] = rec
		}
	}

	merged := make([]domain.Record, 0, len(incoming))
	written := map[string]struct{}{}
	for _, rec := range incoming {
		if rec.Link != "" {
			if _, dup := written[rec.Link]; dup {
				log.Warn("drop duplicate link on rewrite", "link", rec.Link)
				continue
			}
			written[rec.Link] = struct{}{}
		}

		if prev, ok := currentByLink[rec.Link]; ok && prev.Status == domain.StatusNotified && rec.Status == domain.StatusPending {
			log.Warn("keep notified status on rewrite", "link", rec.Link)
			rec.Status = domain.StatusNotified
		}
		merged = append(merged, rec)
	}

	for _, rec := range current {
		if rec.Link == "" {
			continue
		}
		if _, ok := written[rec.Link]; ok {
			continue
		}
		log.Warn("carry over record missing from rewrite", "link", rec.Link)
		written[rec.Link] = struct{}{}
		merged = append(merged, rec)
	}

	return merged
}

func verifyWritten(want, got []domain.Record) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: wrote %d records, read back %d", domain.ErrStoreMalformed, len(want), len(got))
	}
	for i := range want {
		if want[i].Link != got[i].Link || want[i].Status != got[i].Status {
			return fmt.Errorf("%w: record %d (%s) differs after write", domain.ErrStoreMalformed, i, want[i].Link)
		}
	}
	return nil
}

func linkSet(records []domain.Record) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Link != "" {
			set[rec.Link] = struct{}{}
		}
	}
	return set
}
