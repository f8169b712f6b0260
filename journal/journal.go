// Package journal stores one row per invocation in a SQLite database.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/oapi/invoke"
	"github.com/chazu/oapi/native"
)

// Journal is an invoke.Journal backed by SQLite.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS invocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		method TEXT NOT NULL,
		args INTEGER NOT NULL,
		code INTEGER NOT NULL,
		error TEXT,
		elapsed_us INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record implements invoke.Journal.
func (j *Journal) Record(e invoke.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var errText sql.NullString
	if e.Err != nil {
		errText = sql.NullString{String: e.Err.Error(), Valid: true}
	}
	_, err := j.db.Exec(
		"INSERT INTO invocations (at, method, args, code, error, elapsed_us) VALUES (?, ?, ?, ?, ?, ?)",
		e.At.UnixNano(), e.Method, e.Args, int32(e.Code), errText, e.Elapsed.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording invocation: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]invoke.Entry, error) {
	rows, err := j.db.Query(
		"SELECT at, method, args, code, error, elapsed_us FROM invocations ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	var entries []invoke.Entry
	for rows.Next() {
		var (
			at, elapsed int64
			code        int32
			errText     sql.NullString
			e           invoke.Entry
		)
		if err := rows.Scan(&at, &e.Method, &e.Args, &code, &errText, &elapsed); err != nil {
			return nil, fmt.Errorf("scanning invocation: %w", err)
		}
		e.At = time.Unix(0, at)
		e.Code = native.Code(code)
		e.Elapsed = time.Duration(elapsed) * time.Microsecond
		if errText.Valid {
			e.Err = errors.New(errText.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MethodStats summarizes the journal for one method.
type MethodStats struct {
	Method   string
	Calls    int
	Failures int // nonzero code or no code at all
	Errors   int // no code at all
}

// Stats returns per-method totals ordered by method name.
func (j *Journal) Stats() ([]MethodStats, error) {
	rows, err := j.db.Query(`SELECT method, COUNT(*),
		SUM(CASE WHEN code != 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END)
		FROM invocations GROUP BY method ORDER BY method`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var stats []MethodStats
	for rows.Next() {
		var s MethodStats
		if err := rows.Scan(&s.Method, &s.Calls, &s.Failures, &s.Errors); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
