// Package emit provides pluggable, structured event emission for the
// exploration engine: one Event per iteration, worker dispatch, worker
// result, prune decision, and replay mismatch.
package emit

import (
	"context"
	"time"
)

// Event is one structured log line. NodeID carries a constraint's
// branch_id when the event concerns a specific tree node.
type Event struct {
	RunID string
	Step  int
	NodeID string
	Msg   string
	Meta  map[string]interface{}
	At    time.Time
}

// Emitter is implemented by every event sink the engine can be pointed
// at: a text/JSON log writer, an OpenTelemetry tracer, or a no-op.
type Emitter interface {
	Emit(e Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
