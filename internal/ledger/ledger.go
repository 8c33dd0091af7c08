package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelcache/internal/enrichment"
	"reelcache/internal/media"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FileName is the ledger database name inside the cache directory.
const FileName = "runs.db"

const (
	outcomeUnmatched = "unmatched"
	outcomeFailed    = "failed"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run summarizes one recorded batch.
type Run struct {
	ID              string    `json:"id"`
	Source          string    `json:"source,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Total           int       `json:"total"`
	Matched         int       `json:"matched"`
	Unmatched       int       `json:"unmatched"`
	Failed          int       `json:"failed"`
	SearchCalls     int       `json:"search_calls"`
	SearchCacheHits int       `json:"search_cache_hits"`
}

// Duration returns how long the batch ran.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedQuery is a recorded failure.
type FailedQuery struct {
	Query media.Query `json:"query"`
	Stage string      `json:"stage"`
	Error string      `json:"error"`
}

// Ledger manages run history backed by SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

// Path returns the ledger location inside cacheDir.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, FileName)
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return l.createSchema(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset run history)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

func (l *Ledger) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record stores a finished batch and its unmatched and failed queries.
func (l *Ledger) Record(ctx context.Context, source string, result enrichment.Result) error {
	if strings.TrimSpace(result.RunID) == "" {
		return errors.New("run id is empty")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, source, started_at, finished_at, total, matched, unmatched, failed,
                search_calls, search_cache_hits
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID,
			nullableString(source),
			result.StartedAt.UTC().Format(timeLayout),
			result.FinishedAt.UTC().Format(timeLayout),
			result.Total(),
			len(result.Matched),
			len(result.Unmatched),
			len(result.Failed),
			result.SearchCalls,
			result.SearchCacheHits,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_queries (run_id, title, year, outcome, stage, error_message) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare query insert: %w", err)
		}
		defer stmt.Close()

		for _, q := range result.Unmatched {
			if _, err := stmt.ExecContext(ctx, result.RunID, q.Title, nullableYear(q.Year), outcomeUnmatched, nil, nil); err != nil {
				return fmt.Errorf("insert unmatched query: %w", err)
			}
		}
		for _, f := range result.Failed {
			if _, err := stmt.ExecContext(ctx, result.RunID, f.Query.Title, nullableYear(f.Query.Year), outcomeFailed, string(f.Stage), f.Error()); err != nil {
				return fmt.Errorf("insert failed query: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run. ok is false when no run is recorded.
func (l *Ledger) Latest(ctx context.Context) (Run, bool, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// Failures returns the failed queries recorded for runID.
func (l *Ledger) Failures(ctx context.Context, runID string) ([]FailedQuery, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT title, year, stage, error_message FROM run_queries WHERE run_id = ? AND outcome = ? ORDER BY id`,
		runID, outcomeFailed)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []FailedQuery
	for rows.Next() {
		var (
			title string
			year  sql.NullInt64
			stage sql.NullString
			msg   sql.NullString
		)
		if err := rows.Scan(&title, &year, &stage, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, FailedQuery{
			Query: media.Query{Title: title, Year: int(year.Int64)},
			Stage: stage.String,
			Error: msg.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return out, nil
}

// Unmatched returns the unmatched queries recorded for runID.
func (l *Ledger) Unmatched(ctx context.Context, runID string) ([]media.Query, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT title, year FROM run_queries WHERE run_id = ? AND outcome = ? ORDER BY id`,
		runID, outcomeUnmatched)
	if err != nil {
		return nil, fmt.Errorf("query unmatched: %w", err)
	}
	defer rows.Close()

	var out []media.Query
	for rows.Next() {
		var (
			title string
			year  sql.NullInt64
		)
		if err := rows.Scan(&title, &year); err != nil {
			return nil, fmt.Errorf("scan unmatched: %w", err)
		}
		out = append(out, media.Query{Title: title, Year: int(year.Int64)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unmatched: %w", err)
	}
	return out, nil
}

// LastFailed returns the most recent run and the queries that failed in it.
// ok is false when no run is recorded.
func (l *Ledger) LastFailed(ctx context.Context) (Run, []media.Query, bool, error) {
	run, ok, err := l.Latest(ctx)
	if err != nil || !ok {
		return Run{}, nil, ok, err
	}
	failures, err := l.Failures(ctx, run.ID)
	if err != nil {
		return Run{}, nil, false, err
	}
	queries := make([]media.Query, 0, len(failures))
	for _, f := range failures {
		queries = append(queries, f.Query)
	}
	return run, queries, true, nil
}

const runColumns = `id, source, started_at, finished_at, total, matched, unmatched, failed, search_calls, search_cache_hits`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		source   sql.NullString
		started  string
		finished string
	)
	if err := row.Scan(&run.ID, &source, &started, &finished, &run.Total, &run.Matched,
		&run.Unmatched, &run.Failed, &run.SearchCalls, &run.SearchCacheHits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Source = source.String
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableYear(year int) any {
	if year <= 0 {
		return nil
	}
	return year
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
