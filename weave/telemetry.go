/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/wandb/weave-sub006/weave/usage"
)

const instrumentationName = "github.com/wandb/weave-sub006/weave"

// telemetry mirrors calls as OpenTelemetry spans and counts the tokens
// reported by op outputs.
type telemetry struct {
	tracer           oteltrace.Tracer
	calls            metric.Int64Counter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
}

// newTelemetry degrades to no-op counters when an instrument cannot be created.
// A nil tp uses the global tracer provider.
func newTelemetry(ctx context.Context, tp oteltrace.TracerProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	log := clog.FromContext(ctx)
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationVersion(Version))

	calls, err := meter.Int64Counter("weave.calls",
		metric.WithDescription("The number of finished op calls"),
		metric.WithUnit("{calls}"))
	if err != nil {
		log.Warn("Failed to create calls counter, metrics will be disabled", "error", err)
		calls = noop.Int64Counter{}
	}
	promptTokens, err := meter.Int64Counter("weave.token.prompt",
		metric.WithDescription("The number of prompt tokens reported by op outputs"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		log.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err)
		promptTokens = noop.Int64Counter{}
	}
	completionTokens, err := meter.Int64Counter("weave.token.completion",
		metric.WithDescription("The number of completion tokens reported by op outputs"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		log.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err)
		completionTokens = noop.Int64Counter{}
	}

	return &telemetry{
		tracer: tp.Tracer(instrumentationName,
			oteltrace.WithInstrumentationVersion(Version)),
		calls:            calls,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
	}
}

// startSpan starts the span mirroring c as a child of the span in ctx and
// returns the context carrying it.
func (t *telemetry) startSpan(ctx context.Context, c *Call) (context.Context, oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("weave.call.id", c.ID),
		attribute.String("weave.trace.id", c.TraceID),
		attribute.String("weave.op", c.OpName),
	}
	if c.ParentID != "" {
		attrs = append(attrs, attribute.String("weave.parent.id", c.ParentID))
	}
	if c.DisplayName != "" {
		attrs = append(attrs, attribute.String("weave.display_name", c.DisplayName))
	}
	return t.tracer.Start(ctx, "weave.call", oteltrace.WithAttributes(attrs...))
}

func (t *telemetry) endSpan(ctx context.Context, c *Call, callErr error, model string, ownUsage map[string]any) {
	status := "success"
	if callErr != nil {
		status = "error"
	}
	t.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", opBaseName(c.OpName)),
		attribute.String("status", status),
	))

	var in, out int64
	if ownUsage != nil {
		in, out = usage.Tokens(ownUsage)
		modelAttr := metric.WithAttributes(attribute.String("model", model))
		t.promptTokens.Add(ctx, in, modelAttr)
		t.completionTokens.Add(ctx, out, modelAttr)
	}

	span := c.span
	if span == nil {
		return
	}
	if ownUsage != nil {
		span.SetAttributes(
			attribute.String("model", model),
			attribute.Int64("tokens.input", in),
			attribute.Int64("tokens.output", out),
			attribute.Int64("tokens.total", in+out),
		)
	}
	if callErr != nil {
		span.RecordError(callErr)
		span.SetStatus(codes.Error, callErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
