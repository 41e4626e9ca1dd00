package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/concolic-go/concolic/emit"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQLStore is a MySQL/MariaDB-backed Store, for sharing one
// exploration run's results across multiple engine processes (e.g. a
// fleet of workers exploring the same program from different seeds).
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// schema exists. dsn follows the go-sql-driver/mysql format, e.g.
// "user:pass@tcp(localhost:3306)/concolic?parseTime=true".
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS constraint_nodes (
			run_id VARCHAR(64) NOT NULL,
			id INT NOT NULL,
			parent_id INT NOT NULL,
			expr_smt TEXT NOT NULL,
			result TINYINT NOT NULL,
			has_predicate TINYINT NOT NULL,
			processed TINYINT NOT NULL,
			inputs TEXT NOT NULL,
			solving_time DOUBLE NOT NULL,
			branch_id VARCHAR(255) NOT NULL,
			PRIMARY KEY (run_id, id),
			INDEX idx_constraint_nodes_run (run_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS events_outbox (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL,
			event_data TEXT NOT NULL,
			emitted_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_events_pending (emitted_at, created_at)
		) ENGINE=InnoDB`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) SaveTree(ctx context.Context, runID string, nodes []NodeRecord) error {
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

func (s *MySQLStore) LoadTree(ctx context.Context, runID string) ([]NodeRecord, error) {
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

func (s *MySQLStore) SaveEvents(ctx context.Context, runID string, events []emit.Event) error {
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

func (s *MySQLStore) PendingEvents(ctx context.Context, limit int) ([]PendingEvent, error) {
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

func (s *MySQLStore) MarkEventsEmitted(ctx context.Context, ids []string) error {
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

func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
