/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

func newRecordingClient(t *testing.T) (context.Context, *Client, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, client, _ := newTestClient(t, WithTracerProvider(tp))
	return ctx, client, rec
}

// spansByCall indexes ended spans by their weave.call.id attribute.
func spansByCall(rec *tracetest.SpanRecorder) map[string]sdktrace.ReadOnlySpan {
	out := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range rec.Ended() {
		for _, kv := range s.Attributes() {
			if kv.Key == "weave.call.id" {
				out[kv.Value.AsString()] = s
			}
		}
	}
	return out
}

func TestCallSpansAreNested(t *testing.T) {
	ctx, _, rec := newRecordingClient(t)

	var innerSpans []oteltrace.SpanContext
	inner := NewOp("inner", func(ctx context.Context, x int) (int, error) {
		innerSpans = append(innerSpans, oteltrace.SpanContextFromContext(ctx))
		return x, nil
	})
	outer := NewOp("outer", func(ctx context.Context, x int) (int, error) {
		if _, err := inner.Run(ctx, x); err != nil {
			return 0, err
		}
		return inner.Run(ctx, x)
	})

	_, outerCall, err := outer.Call(ctx, 1)
	require.NoError(t, err)
	if oteltrace.SpanContextFromContext(ctx).IsValid() {
		t.Error("the caller's context gained a span")
	}

	spans := spansByCall(rec)
	require.Len(t, spans, 3)
	root, ok := spans[outerCall.ID]
	require.True(t, ok, "no span for the outer call")
	if root.Parent().IsValid() {
		t.Errorf("root span parent: got = %v, wanted none", root.Parent().SpanID())
	}
	for id, s := range spans {
		if id == outerCall.ID {
			continue
		}
		if got, want := s.Parent().SpanID(), root.SpanContext().SpanID(); got != want {
			t.Errorf("parent of %s: got = %v, wanted = %v", id, got, want)
		}
		if got, want := s.SpanContext().TraceID(), root.SpanContext().TraceID(); got != want {
			t.Errorf("trace of %s: got = %v, wanted = %v", id, got, want)
		}
	}

	require.Len(t, innerSpans, 2)
	for i, sc := range innerSpans {
		if sc.SpanID() == root.SpanContext().SpanID() {
			t.Errorf("inner call %d ran under the outer span", i)
		}
	}
	if innerSpans[0].SpanID() == innerSpans[1].SpanID() {
		t.Error("sibling calls share a span")
	}
}

func TestFinishCallRestoresOuterSpan(t *testing.T) {
	ctx, client, rec := newRecordingClient(t)

	first, a, err := client.CreateCall(ctx, "a", nil)
	require.NoError(t, err)
	after, err := client.FinishCall(first, a, nil, nil)
	require.NoError(t, err)
	if oteltrace.SpanContextFromContext(after).IsValid() {
		t.Error("FinishCall returned a context carrying the finished span")
	}

	next, b, err := client.CreateCall(after, "b", nil)
	require.NoError(t, err)
	_, err = client.FinishCall(next, b, nil, nil)
	require.NoError(t, err)

	if b.ParentID != "" {
		t.Errorf("b parent: got = %s, wanted none", b.ParentID)
	}
	spans := spansByCall(rec)
	require.Len(t, spans, 2)
	if spans[b.ID].Parent().IsValid() {
		t.Errorf("b span parent: got = %v, wanted none", spans[b.ID].Parent().SpanID())
	}
}

func TestConcurrentChildCalls(t *testing.T) {
	ctx, _, rec := newRecordingClient(t)
	const n = 20

	llm := NewOp("llm", func(_ context.Context, i int) (map[string]any, error) {
		return map[string]any{
			"model": "gpt-test",
			"usage": map[string]any{"prompt_tokens": 2, "completion_tokens": 1},
			"n":     i,
		}, nil
	})
	fanout := NewOp("fanout", func(ctx context.Context, n int) (int, error) {
		var eg errgroup.Group
		for i := range n {
			eg.Go(func() error {
				_, err := llm.Run(ctx, i)
				return err
			})
		}
		return n, eg.Wait()
	})

	_, root, err := fanout.Call(ctx, n)
	require.NoError(t, err)

	want := map[string]any{SummaryUsage: map[string]any{
		"gpt-test": map[string]any{"requests": int64(n), "prompt_tokens": int64(2 * n), "completion_tokens": int64(n)},
	}}
	if diff := cmp.Diff(want, root.Summary); diff != "" {
		t.Errorf("rollup summary (-want +got):\n%s", diff)
	}

	children, err := root.Children().Collect(ctx)
	require.NoError(t, err)
	require.Len(t, children, n)
	for _, c := range children {
		if c.ParentID != root.ID {
			t.Errorf("parent of %s: got = %s, wanted = %s", c.ID, c.ParentID, root.ID)
		}
		if c.TraceID != root.TraceID {
			t.Errorf("trace of %s: got = %s, wanted = %s", c.ID, c.TraceID, root.TraceID)
		}
	}

	spans := spansByCall(rec)
	require.Len(t, spans, n+1)
	rootSpan := spans[root.ID].SpanContext().SpanID()
	for _, c := range children {
		if got := spans[c.ID].Parent().SpanID(); got != rootSpan {
			t.Errorf("span parent of %s: got = %v, wanted = %v", c.ID, got, rootSpan)
		}
	}
}
