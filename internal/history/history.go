package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quantmind-br/pkgtx/internal/core"
	_ "modernc.org/sqlite"
)

// ErrDatabase marks failures of the history database itself
var ErrDatabase = errors.New("history database error")

// ErrNotFound is returned when a transaction id is not in the journal
var ErrNotFound = errors.New("transaction not found")

// Status is the final status of a journaled invocation
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusNothingToDo Status = "nothing-to-do"
	StatusFailed      Status = "failed"
)

// Entry is one journaled run
type Entry struct {
	ID         int64                 `json:"id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Backend    string                `json:"backend"`
	Requests   []core.PackageRequest `json:"requests"`
	Status     Status                `json:"status"`
	Error      string                `json:"error,omitempty"`
	Outcomes   []core.PackageOutcome `json:"outcomes"`
}

// DB is the transaction journal with separate read/write pools
type DB struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// New opens (creating if needed) the journal at dbPath
func New(ctx context.Context, dbPath string) (*DB, error) {
	// Connection string with pragmas
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	// Write pool: MUST be 1 connection only
	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: open write connection: %w", ErrDatabase, err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("%w: open read connection: %w", ErrDatabase, err)
	}
	read.SetMaxOpenConns(4)
	read.SetMaxIdleConns(2)
	read.SetConnMaxIdleTime(time.Minute)

	db := &DB{
		write: write,
		read:  read,
		path:  dbPath,
	}

	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %w", ErrDatabase, err)
	}

	return db, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Close closes both database connections
func (db *DB) Close() error {
	writeErr := db.write.Close()
	readErr := db.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    backend TEXT NOT NULL,
    requests TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    outcomes TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    description TEXT
);

INSERT OR IGNORE INTO schema_migrations (version, description) VALUES (1, 'transactions journal');
	`

	if _, err := db.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record journals an entry and sets its ID
func (db *DB) Record(ctx context.Context, entry *Entry) error {
	requests := entry.Requests
	if requests == nil {
		requests = []core.PackageRequest{}
	}
	requestsJSON, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("marshal requests: %w", err)
	}
	outcomes := entry.Outcomes
	if outcomes == nil {
		outcomes = []core.PackageOutcome{}
	}
	outcomesJSON, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}

	query := `
INSERT INTO transactions (started_at, finished_at, backend, requests, status, error, outcomes)
VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.write.ExecContext(ctx, query,
		entry.StartedAt.UnixMilli(),
		entry.FinishedAt.UnixMilli(),
		entry.Backend,
		string(requestsJSON),
		string(entry.Status),
		entry.Error,
		string(outcomesJSON),
	)
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %w", ErrDatabase, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: read transaction id: %w", ErrDatabase, err)
	}
	entry.ID = id
	return nil
}

const selectColumns = `SELECT id, started_at, finished_at, backend, requests, status, error, outcomes FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry                  Entry
		started, finished      int64
		status                 string
		requestsJSON, outcomes string
	)
	if err := row.Scan(&entry.ID, &started, &finished, &entry.Backend, &requestsJSON, &status, &entry.Error, &outcomes); err != nil {
		return nil, err
	}
	entry.StartedAt = time.UnixMilli(started)
	entry.FinishedAt = time.UnixMilli(finished)
	entry.Status = Status(status)

	if err := json.Unmarshal([]byte(requestsJSON), &entry.Requests); err != nil {
		return nil, fmt.Errorf("unmarshal requests: %w", err)
	}
	if err := json.Unmarshal([]byte(outcomes), &entry.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	return &entry, nil
}

// Get retrieves one entry by id
func (db *DB) Get(ctx context.Context, id int64) (*Entry, error) {
	entry, err := scanEntry(db.read.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query transaction: %w", ErrDatabase, err)
	}
	return entry, nil
}

// List returns the most recent entries first. A limit <= 0 returns all entries.
func (db *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %w", ErrDatabase, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %w", ErrDatabase, err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows error: %w", ErrDatabase, err)
	}

	return entries, nil
}
