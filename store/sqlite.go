package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/concolic-go/concolic/emit"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store: a single-file database good for
// local runs and CI, with WAL mode enabled for concurrent reads while
// the engine's workers write results.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS constraint_nodes (
			run_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			parent_id INTEGER NOT NULL,
			expr_smt TEXT NOT NULL,
			result INTEGER NOT NULL,
			has_predicate INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			inputs TEXT NOT NULL,
			solving_time REAL NOT NULL,
			branch_id TEXT NOT NULL,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_constraint_nodes_run ON constraint_nodes(run_id)`,
		`CREATE TABLE IF NOT EXISTS events_outbox (
			id TEXT NOT NULL PRIMARY KEY,
			run_id TEXT NOT NULL,
			event_data TEXT NOT NULL,
			emitted_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_pending ON events_outbox(emitted_at, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTree(ctx context.Context, runID string, nodes []NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM constraint_nodes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("store: clear tree: %w", err)
	}
	for _, n := range nodes {
		inputsJSON, err := json.Marshal(n.Inputs)
		if err != nil {
			return fmt.Errorf("store: marshal inputs: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO constraint_nodes
			(run_id, id, parent_id, expr_smt, result, has_predicate, processed, inputs, solving_time, branch_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, n.ID, n.ParentID, n.ExprSMT, boolToInt(n.Result), boolToInt(n.HasPredicate),
			boolToInt(n.Processed), string(inputsJSON), n.SolvingTime, n.BranchID)
		if err != nil {
			return fmt.Errorf("store: insert node %d: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadTree(ctx context.Context, runID string) ([]NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store: closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, expr_smt, result, has_predicate, processed, inputs, solving_time, branch_id
		FROM constraint_nodes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query tree: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []NodeRecord
	for rows.Next() {
		var n NodeRecord
		var result, hasPredicate, processed int
		var inputsJSON string
		if err := rows.Scan(&n.ID, &n.ParentID, &n.ExprSMT, &result, &hasPredicate, &processed, &inputsJSON, &n.SolvingTime, &n.BranchID); err != nil {
			return nil, fmt.Errorf("store: scan node: %w", err)
		}
		n.Result, n.HasPredicate, n.Processed = result != 0, hasPredicate != 0, processed != 0
		if err := json.Unmarshal([]byte(inputsJSON), &n.Inputs); err != nil {
			return nil, fmt.Errorf("store: unmarshal inputs: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *SQLiteStore) SaveEvents(ctx context.Context, runID string, events []emit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("store: marshal event: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO events_outbox (id, run_id, event_data) VALUES (?, ?, ?)`,
			uuid.NewString(), runID, string(data))
		if err != nil {
			return fmt.Errorf("store: insert event: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) PendingEvents(ctx context.Context, limit int) ([]PendingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store: closed")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, event_data FROM events_outbox
		WHERE emitted_at IS NULL ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query outbox: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PendingEvent
	for rows.Next() {
		var pe PendingEvent
		var data string
		if err := rows.Scan(&pe.ID, &pe.RunID, &data); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &pe.Event); err != nil {
			return nil, fmt.Errorf("store: unmarshal event: %w", err)
		}
		out = append(out, pe)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkEventsEmitted(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `UPDATE events_outbox SET emitted_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: mark emitted: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
