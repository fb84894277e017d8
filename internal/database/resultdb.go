package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/contactscan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "contactscan.db"

// ErrNoResults is returned when a query matches nothing that can be saved.
var ErrNoResults = errors.New("no results to save")

// ResultDB stores crawl results grouped by run.
type ResultDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Run describes one saved batch.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	WithEmails  int
	EmailsFound int
}

// SiteRecord is one stored site result together with the run it belongs to.
type SiteRecord struct {
	RunID  string
	Result model.CrawlResult
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

func (rdb *ResultDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total INTEGER NOT NULL,
		with_emails INTEGER NOT NULL,
		emails_found INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS site_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		seed TEXT NOT NULL,
		url TEXT NOT NULL,
		emails_json TEXT NOT NULL,
		pages_visited INTEGER NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_site_results_url ON site_results(url);
	CREATE INDEX IF NOT EXISTS idx_site_results_run ON site_results(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores results as a new run and returns the run ID.
// Results are written in one transaction and keep their batch order.
func (rdb *ResultDB) SaveRun(ctx context.Context, results []model.CrawlResult) (string, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}

	runID := uuid.NewString()
	started, finished := runBounds(results)
	summary := model.Summarize(results)

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, total, with_emails, emails_found)
	VALUES (?, ?, ?, ?, ?, ?)
	`, runID, formatTimestamp(started), formatTimestamp(finished),
		summary.Total, summary.WithEmails, summary.EmailsFound); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO site_results
		(run_id, position, seed, url, emails_json, pages_visited, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		emails := r.Emails
		if emails == nil {
			emails = []string{}
		}
		emailsJSON, err := json.Marshal(emails)
		if err != nil {
			return "", fmt.Errorf("failed to marshal emails: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			runID,
			i,
			r.Seed,
			siteKey(r),
			string(emailsJSON),
			r.PagesVisited,
			r.Error,
			formatTimestamp(r.StartedAt),
			formatTimestamp(r.FinishedAt),
		); err != nil {
			return "", fmt.Errorf("failed to insert result for %s: %w", r.Seed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetLatestResult returns the most recent stored result for site, or nil
// when the site was never saved.
func (rdb *ResultDB) GetLatestResult(ctx context.Context, site string) (*SiteRecord, error) {
	records, err := rdb.GetHistory(ctx, site, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// GetHistory returns stored results for site, newest first.
// A limit of zero or less returns every record.
func (rdb *ResultDB) GetHistory(ctx context.Context, site string, limit int) ([]SiteRecord, error) {
	query := `
	SELECT run_id, seed, url, emails_json, pages_visited, error, started_at, finished_at
	FROM site_results
	WHERE url = ?
	ORDER BY started_at DESC, id DESC
	`
	args := []any{model.NormalizeSeed(site)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []SiteRecord
	for rows.Next() {
		rec, err := scanSiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRunResults returns the results of one run in batch order.
func (rdb *ResultDB) GetRunResults(ctx context.Context, runID string) ([]model.CrawlResult, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT run_id, seed, url, emails_json, pages_visited, error, started_at, finished_at
	FROM site_results
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run results: %w", err)
	}
	defer rows.Close()

	var results []model.CrawlResult
	for rows.Next() {
		rec, err := scanSiteRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec.Result)
	}
	return results, rows.Err()
}

// ListSites returns every stored site URL in lexical order.
func (rdb *ResultDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT url FROM site_results ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// ListRuns returns saved runs, newest first.
// A limit of zero or less returns every run.
func (rdb *ResultDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, started_at, finished_at, total, with_emails, emails_found
	FROM runs
	ORDER BY started_at DESC, created_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &started, &finished, &run.Total, &run.WithEmails, &run.EmailsFound); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSiteRecord(rows rowScanner) (SiteRecord, error) {
	var (
		rec        SiteRecord
		emailsJSON string
		errText    sql.NullString
		started    string
		finished   string
	)
	if err := rows.Scan(
		&rec.RunID,
		&rec.Result.Seed,
		&rec.Result.URL,
		&emailsJSON,
		&rec.Result.PagesVisited,
		&errText,
		&started,
		&finished,
	); err != nil {
		return SiteRecord{}, fmt.Errorf("failed to scan result: %w", err)
	}

	if err := json.Unmarshal([]byte(emailsJSON), &rec.Result.Emails); err != nil {
		return SiteRecord{}, fmt.Errorf("failed to parse emails for %s: %w", rec.Result.URL, err)
	}
	if rec.Result.Emails == nil {
		rec.Result.Emails = []string{}
	}
	rec.Result.Error = errText.String
	rec.Result.StartedAt = parseTimestamp(started)
	rec.Result.FinishedAt = parseTimestamp(finished)
	return rec, nil
}

func siteKey(r model.CrawlResult) string {
	if r.URL != "" {
		return r.URL
	}
	return model.NormalizeSeed(r.Seed)
}

func runBounds(results []model.CrawlResult) (time.Time, time.Time) {
	started, finished := results[0].StartedAt, results[0].FinishedAt
	for _, r := range results[1:] {
		if !r.StartedAt.IsZero() && (started.IsZero() || r.StartedAt.Before(started)) {
			started = r.StartedAt
		}
		if r.FinishedAt.After(finished) {
			finished = r.FinishedAt
		}
	}
	return started, finished
}

// timestampLayout is a fixed-width UTC layout. Stored timestamps are
// compared as text in ORDER BY, so the fraction must never be trimmed.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
