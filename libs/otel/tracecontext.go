package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceCarrier is the W3C trace context persisted next to an outbox row, so the
// publisher can continue the trace of the request that wrote it.
type TraceCarrier struct {
	Traceparent string
	Tracestate  string
}

func CaptureTrace(ctx context.Context) TraceCarrier {
	m := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, m)
	return TraceCarrier{Traceparent: m["traceparent"], Tracestate: m["tracestate"]}
}

func (t TraceCarrier) Restore(ctx context.Context) context.Context {
	if t.Traceparent == "" {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": t.Traceparent,
		"tracestate":  t.Tracestate,
	})
}
