// Tracing instrumentation for supervised runs.
package supervisor

import (
	"context"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startRunSpan starts a span for one supervised run.
func (s *Supervisor) startRunSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "supervisor.run")
	span.SetAttributes(
		attribute.Int("run.max_turns", s.cfg.MaxTurns),
		attribute.Int("run.max_tool_calls", s.cfg.MaxToolCalls),
	)
	return ctx, span
}

// endRunSpan ends the run span with outcome info.
func (s *Supervisor) endRunSpan(span trace.Span, d Details, err error) {
	span.SetAttributes(
		attribute.String("run.phase", string(d.Phase)),
		attribute.Int("run.tool_calls", d.ToolCalls),
		attribute.Int("run.turns", d.Turns),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
