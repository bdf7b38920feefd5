package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const defaultTable = "news_records"

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	link         TEXT NOT NULL UNIQUE,
	published_on DATE,
	raw_date     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore persists records into Postgres. Each write runs in one
// transaction, which gives the all-or-nothing rewrite the CSV store gets from rename.
type PostgresStore struct {
	db     *sql.DB
	table  string
	psql   sq.StatementBuilderType
	logger *slog.Logger
}

var _ ports.RecordStore = (*PostgresStore)(nil)

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB, table string, log *slog.Logger) *PostgresStore {
	if table == "" {
		table = defaultTable
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PostgresStore{
		db:     db,
		table:  table,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: log,
	}
}

// EnsureSchema creates the records table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schemaTemplate, s.table)); err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: fmt.Errorf("create table %s: %w", s.table, err)}
	}
	return nil
}

// LoadAll returns every record in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]domain.Record, error) {
	query, args, err := s.psql.
		Select("title", "link", "published_on", "raw_date", "status").
		From(s.table).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("build select: %w", err)}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("query records: %w", err)}
	}

	var records []domain.Record
	for rows.Next() {
		var (
			rec       domain.Record
			published sql.NullTime
			status    string
		)
		if err := rows.Scan(&rec.Title, &rec.Link, &published, &rec.RawDate, &status); err != nil {
			_ = rows.Close()
			return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("scan record: %w", err)}
		}
		if published.Valid {
			rec.Published = domain.DateOf(published.Time)
		}
		rec.Status = domain.ParseStatus(status)
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("rows iteration: %w", rowsErr)}
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, &domain.StoreError{Op: domain.StoreRead, Err: fmt.Errorf("close rows: %w", closeErr)}
	}

	return records, nil
}

// AppendNew inserts records, ignoring links that already exist.
func (s *PostgresStore) AppendNew(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			query, args, err := s.psql.
				Insert(s.table).
				Columns("title", "link", "published_on", "raw_date", "status").
				Values(rec.Title, rec.Link, publishedValue(rec), rec.RawDate, string(rec.Status)).
				Suffix("ON CONFLICT (link) DO NOTHING").
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert %s: %w", rec.Link, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				s.logger.Warn("skip append of known link", "link", rec.Link)
			}
		}
		return nil
	})
}

// RewriteAll upserts every record. A stored Notified status is never reverted.
func (s *PostgresStore) RewriteAll(ctx context.Context, records []domain.Record) error {
	statusGuard := fmt.Sprintf(
		"ON CONFLICT (link) DO UPDATE SET title = EXCLUDED.title, published_on = EXCLUDED.published_on, "+
			"raw_date = EXCLUDED.raw_date, "+
			"status = CASE WHEN %[1]s.status = '%[2]s' AND EXCLUDED.status = '' THEN %[1]s.status ELSE EXCLUDED.status END, "+
			"updated_at = NOW()",
		s.table, domain.StatusNotified)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			if rec.Link == "" {
				continue
			}
			query, args, err := s.psql.
				Insert(s.table).
				Columns("title", "link", "published_on", "raw_date", "status").
				Values(rec.Title, rec.Link, publishedValue(rec), rec.RawDate, string(rec.Status)).
				Suffix(statusGuard).
				ToSql()
			if err != nil {
				return fmt.Errorf("build upsert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert %s: %w", rec.Link, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: fmt.Errorf("begin: %w", err)}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return &domain.StoreError{Op: domain.StoreWrite, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: domain.StoreWrite, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func publishedValue(rec domain.Record) sql.NullTime {
	if rec.Published.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: rec.Published, Valid: true}
}
