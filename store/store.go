// Package store provides persistence for exploration runs: the
// constraint tree reached by a run, and a transactional outbox for
// reliably delivering the events an Emitter produces.
package store

import (
	"context"
	"errors"

	"github.com/concolic-go/concolic/emit"
)

// ErrNotFound is returned when a requested run ID does not exist.
var ErrNotFound = errors.New("store: not found")

// NodeRecord is the flattened, JSON/SQL-friendly form of one
// constraint.Constraint node, keyed by the run it belongs to.
type NodeRecord struct {
	ID          int
	ParentID    int // -1 for the root
	ExprSMT     string
	Result      bool
	HasPredicate bool // false only for the root, whose Predicate is nil
	Processed   bool
	Inputs      map[string]interface{}
	SolvingTime float64
	BranchID    string
}

// Store persists exploration runs: the shape of the constraint tree a
// run discovered, and the outbox of events waiting to be delivered to
// an external sink.
//
// Implementations: MemStore (tests), SQLiteStore (single-process local
// persistence), MySQLStore (shared, multi-worker persistence).
type Store interface {
	// SaveTree overwrites the persisted snapshot of runID's constraint
	// tree with nodes. Called periodically by the engine (or once at the
	// end of Explore), not per-node, since the tree is rebuilt from
	// scratch each time rather than diffed.
	SaveTree(ctx context.Context, runID string, nodes []NodeRecord) error

	// LoadTree retrieves the most recently saved snapshot for runID.
	// Returns ErrNotFound if runID was never saved.
	LoadTree(ctx context.Context, runID string) ([]NodeRecord, error)

	// SaveEvents appends events to runID's outbox.
	SaveEvents(ctx context.Context, runID string, events []emit.Event) error

	// PendingEvents retrieves up to limit not-yet-emitted events, across
	// all runs, ordered by arrival.
	PendingEvents(ctx context.Context, limit int) ([]PendingEvent, error)

	// MarkEventsEmitted marks the given outbox ids as delivered so
	// PendingEvents stops returning them.
	MarkEventsEmitted(ctx context.Context, ids []string) error

	Close() error
}

// PendingEvent pairs an outbox-assigned id with the event it wraps, so
// callers can mark it emitted afterwards.
type PendingEvent struct {
	ID    string
	RunID string
	Event emit.Event
}
