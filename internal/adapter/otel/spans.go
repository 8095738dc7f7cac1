package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "focustodo"

// StartGenerationSpan starts a span for one intent dispatched to a provider.
func StartGenerationSpan(ctx context.Context, intent string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ai.generate",
		trace.WithAttributes(attribute.String("ai.intent", intent)),
	)
}

// StartProbeSpan starts a span for a local provider liveness probe.
func StartProbeSpan(ctx context.Context, baseURL string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ai.probe",
		trace.WithAttributes(attribute.String("ai.local.base_url", baseURL)),
	)
}

// StartFlowSpan starts a span for a store-mutating AI flow such as organize.
func StartFlowSpan(ctx context.Context, flow string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ai.flow",
		trace.WithAttributes(attribute.String("ai.flow", flow)),
	)
}
