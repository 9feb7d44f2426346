package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists episode run outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timeLayout = time.RFC3339Nano
)

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one episode outcome.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.RunID == "" {
		return errors.New("history record: run id required")
	}
	if entry.Status == "" {
		return errors.New("history record: status required")
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO unit_runs (
			run_id, episode, title, status, segments, chunks, fallbacks, normalized,
			chars, elapsed_ms, output_path, error_message, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID,
			entry.Episode,
			entry.Title,
			string(entry.Status),
			entry.Segments,
			entry.Chunks,
			entry.Fallbacks,
			entry.Normalized,
			entry.Chars,
			entry.Elapsed.Milliseconds(),
			nullableString(entry.OutputPath),
			nullableString(entry.Error),
			formatTime(entry.StartedAt),
			formatTime(entry.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
		return nil
	})
}

const entryColumns = `id, run_id, episode, title, status, segments, chunks, fallbacks, normalized,
	chars, elapsed_ms, output_path, error_message, started_at, finished_at`

// Recent returns up to limit entries, newest first. A non-positive limit returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM unit_runs ORDER BY finished_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForEpisode returns every recorded run of one episode, newest first.
func (s *Store) ForEpisode(ctx context.Context, episode int) ([]Entry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM unit_runs WHERE episode = ? ORDER BY finished_at DESC, id DESC`, episode)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry      Entry
		status     string
		elapsedMS  int64
		outputPath sql.NullString
		errMessage sql.NullString
		startedAt  string
		finishedAt string
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.Episode,
		&entry.Title,
		&status,
		&entry.Segments,
		&entry.Chunks,
		&entry.Fallbacks,
		&entry.Normalized,
		&entry.Chars,
		&elapsedMS,
		&outputPath,
		&errMessage,
		&startedAt,
		&finishedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	entry.Status = Status(status)
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	entry.OutputPath = outputPath.String
	entry.Error = errMessage.String
	entry.StartedAt = parseTime(startedAt)
	entry.FinishedAt = parseTime(finishedAt)
	return entry, nil
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

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
