package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mmt/internal/config"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

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

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Begin records the start of a run.
func (s *Store) Begin(ctx context.Context, runID, source string, size int64, mtime time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (run_id, source, source_size, source_mtime, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, source, size, mtime.UnixNano(), formatTime(time.Now()), string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AddOutput records a placed output for runID.
func (s *Store) AddOutput(ctx context.Context, runID string, out Output) error {
	if _, err := s.exec(ctx,
		`INSERT INTO outputs (run_id, tier, path, size_bytes) VALUES (?, ?, ?, ?)`,
		runID, out.Tier, out.Path, out.Size,
	); err != nil {
		return fmt.Errorf("insert output: %w", err)
	}
	return nil
}

// Finish sets the terminal status of runID.
func (s *Store) Finish(ctx context.Context, runID string, status Status, runErr error) error {
	var message sql.NullString
	if runErr != nil {
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE run_id = ?`,
		string(status), formatTime(time.Now()), message, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: not found", runID)
	}
	return nil
}

// MarkInterrupted flags runs left running by a previous process.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		string(StatusInterrupted), formatTime(time.Now()), string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Completed reports whether source already finished with the same size
// and modification time.
func (s *Store) Completed(ctx context.Context, source string, size int64, mtime time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM runs WHERE source = ? AND status = ? AND source_size = ? AND source_mtime = ?`,
		source, string(StatusCompleted), size, mtime.UnixNano(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query completed runs: %w", err)
	}
	return count > 0, nil
}

// IsOutput reports whether path was written by an earlier run.
func (s *Store) IsOutput(ctx context.Context, path string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM outputs WHERE path = ?`, path).Scan(&count); err != nil {
		return false, fmt.Errorf("query outputs: %w", err)
	}
	return count > 0, nil
}

// Recent returns up to limit runs, newest first, with their outputs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, source, source_size, source_mtime, started_at, finished_at, status, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	index := make(map[string]int)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		index[run.RunID] = len(runs)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(runs)), ",")
	args := make([]any, 0, len(runs))
	for _, run := range runs {
		args = append(args, run.RunID)
	}
	outRows, err := s.db.QueryContext(ctx,
		`SELECT run_id, tier, path, size_bytes FROM outputs WHERE run_id IN (`+placeholders+`) ORDER BY tier DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer outRows.Close()
	for outRows.Next() {
		var (
			runID string
			out   Output
		)
		if err := outRows.Scan(&runID, &out.Tier, &out.Path, &out.Size); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		if i, ok := index[runID]; ok {
			runs[i].Outputs = append(runs[i].Outputs, out)
		}
	}
	return runs, outRows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		mtime       int64
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		message     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.RunID, &run.Source, &run.SourceSize, &mtime, &startedRaw, &finishedRaw, &status, &message); err != nil {
		return Run{}, err
	}
	run.SourceMTime = time.Unix(0, mtime)
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw.String)
	run.Status = Status(status)
	run.Error = message.String
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
