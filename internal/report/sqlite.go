package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sweeps (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	planned     INTEGER NOT NULL,
	row_count   INTEGER NOT NULL,
	ok          INTEGER NOT NULL,
	aborted     TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sweeps_started_at ON sweeps (started_at);
`

// timeLayout is fixed-width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps sweeps in a single SQLite database file. The summary
// columns are denormalised from the JSON payload so List does not decode
// every sweep.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces s.
func (s *SQLiteStore) Save(sw *Sweep) error {
	payload, err := json.Marshal(sw)
	if err != nil {
		return fmt.Errorf("marshalling sweep %s: %w", sw.ID, err)
	}
	sum := sw.Summary()

	var finished any
	if !sw.FinishedAt.IsZero() {
		finished = sw.FinishedAt.Format(timeLayout)
	}
	_, err = s.db.Exec(`
		INSERT INTO sweeps (id, started_at, finished_at, planned, row_count, ok, aborted, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			planned     = excluded.planned,
			row_count   = excluded.row_count,
			ok          = excluded.ok,
			aborted     = excluded.aborted,
			payload     = excluded.payload`,
		sw.ID, sw.StartedAt.Format(timeLayout), finished,
		sum.Planned, sum.Rows, sum.OK, sum.Aborted, string(payload),
	)
	if err != nil {
		return fmt.Errorf("saving sweep %s: %w", sw.ID, err)
	}
	return nil
}

// Load reads the sweep with the given ID.
func (s *SQLiteStore) Load(id string) (*Sweep, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM sweeps WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sweep %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading sweep %s: %w", id, err)
	}

	var sw Sweep
	if err := json.Unmarshal([]byte(payload), &sw); err != nil {
		return nil, fmt.Errorf("unmarshalling sweep %s: %w", id, err)
	}
	return &sw, nil
}

// List summarises stored sweeps, newest first.
func (s *SQLiteStore) List() ([]Summary, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, planned, row_count, ok, aborted
		FROM sweeps ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sweeps: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			started string
		)
		if err := rows.Scan(&sum.ID, &started, &sum.Planned, &sum.Rows, &sum.OK, &sum.Aborted); err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		sum.StartedAt, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("sweep %s: started_at: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
