package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into a zero-duration span on a tracer,
// so an exploration run can be viewed end to end in any OpenTelemetry
// backend: one span per iteration, worker dispatch, and result.
type OTelEmitter struct {
	tracer trace.Tracer
}

func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(e Event) {
	_, span := o.tracer.Start(context.Background(), e.Msg, trace.WithAttributes(
		attribute.String("run_id", e.RunID),
		attribute.Int("step", e.Step),
		attribute.String("node_id", e.NodeID),
	))
	for k, v := range e.Meta {
		span.SetAttributes(attribute.String(k, fmt.Sprint(v)))
	}
	span.End()
}

func (o *OTelEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		o.Emit(e)
	}
	return nil
}

func (o *OTelEmitter) Flush(context.Context) error { return nil }
