package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"EGXTicker/internal/model"
)

// SQLiteRecorder journals snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the history endpoint read while the feed writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			outcome      TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			reason       TEXT,
			payload      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Name() string { return "sqlite" }

// Publish journals one delivered result.
func (r *SQLiteRecorder) Publish(ctx context.Context, res model.Result) error {
	snap := res.Snapshot
	if snap == nil {
		snap = model.Snapshot{}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ts := res.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO snapshots
		(id, timestamp, outcome, record_count, reason, payload)
		VALUES (?,?,?,?,?,?)`,
		res.ID, ts.UnixMilli(), res.Outcome.String(), len(res.Snapshot), res.Reason, string(payload),
	)
	return err
}

// Recent returns up to n journaled entries, newest first.
func (r *SQLiteRecorder) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, outcome, record_count, reason, payload
		FROM snapshots ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			ms      int64
			outcome string
			reason  sql.NullString
			payload string
		)
		if err := rows.Scan(&e.ID, &ms, &outcome, &e.Count, &reason, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		e.Timestamp = time.UnixMilli(ms)
		if err := e.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		if err := json.Unmarshal([]byte(payload), &e.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
