/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/wandb/weave-sub006/weave/callctx"
	"github.com/wandb/weave-sub006/weave/serialize"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// CallOption configures a single call created by CreateCall.
type CallOption func(*callConfig)

type callConfig struct {
	parent      *Call
	parentSet   bool
	attributes  map[string]any
	displayName string
	noStack     bool
}

// WithParent makes p the parent of the call instead of the current call in
// the context. A nil p starts a new trace.
func WithParent(p *Call) CallOption {
	return func(cfg *callConfig) {
		cfg.parent = p
		cfg.parentSet = true
	}
}

// WithCallAttributes adds attributes to the call.
func WithCallAttributes(attrs map[string]any) CallOption {
	return func(cfg *callConfig) {
		if cfg.attributes == nil {
			cfg.attributes = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			cfg.attributes[k] = v
		}
	}
}

// WithDisplayName sets the call's display name.
func WithDisplayName(name string) CallOption {
	return func(cfg *callConfig) {
		cfg.displayName = name
	}
}

// WithoutStack keeps the call off the call stack, so calls made under the
// returned context do not become its children.
func WithoutStack() CallOption {
	return func(cfg *callConfig) {
		cfg.noStack = true
	}
}

// CreateCall records the start of a call of opName, which is an op ref URI
// or a free-form name. Nested objects in inputs are published first and
// replaced by their refs. Unless WithoutStack is given the returned context
// has the call pushed as the current call.
//
// On a nil client CreateCall returns ctx and a nil call.
func (c *Client) CreateCall(ctx context.Context, opName string, inputs map[string]any, opts ...CallOption) (context.Context, *Call, error) {
	if c == nil {
		return ctx, nil, nil
	}
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	parent := cfg.parent
	if !cfg.parentSet {
		parent = CurrentCall(ctx)
	}

	runID, err := c.checkRun(ctx)
	if err != nil {
		return ctx, nil, err
	}

	attrs, err := NewAttributes(contextAttributes(ctx))
	if err != nil {
		return ctx, nil, err
	}
	for k, v := range cfg.attributes {
		if err := attrs.Set(k, v); err != nil {
			return ctx, nil, err
		}
	}
	for k, v := range defaultSystemAttributes() {
		attrs.setSystem(k, v)
	}

	mapped, err := c.mapper(ctx).MapToRefs(inputs)
	if err != nil {
		return ctx, nil, fmt.Errorf("create call %s: %w", opName, err)
	}
	inputs, mapped = c.redactor.redactInputs(inputs, mapped)
	wireInputs, _ := serialize.Encode(mapped).(map[string]any)
	if wireInputs == nil {
		wireInputs = make(map[string]any)
	}

	call := &Call{
		ID:          newID(),
		OpName:      opName,
		DisplayName: cfg.displayName,
		Inputs:      withTopLevelRefs(inputs, mapped),
		Summary:     make(map[string]any),
		Attributes:  attrs,
		StartedAt:   c.now(),
		WBRunID:     runID,
		client:      c,
		useStack:    !cfg.noStack,
	}
	if parent != nil {
		call.ParentID = parent.ID
		call.TraceID = parent.TraceID
	} else {
		call.TraceID = newID()
	}
	attrs.freeze()

	spanCtx, span := c.tel.startSpan(ctx, call)
	call.span = span
	call.outer = oteltrace.SpanFromContext(ctx)
	_, err = c.server.CallStart(ctx, &tsi.CallStartReq{Start: tsi.StartedCallSchemaForInsert{
		ProjectID:   c.ProjectID(),
		ID:          call.ID,
		OpName:      call.OpName,
		DisplayName: call.DisplayName,
		TraceID:     call.TraceID,
		ParentID:    call.ParentID,
		StartedAt:   call.StartedAt,
		Attributes:  attrs.Map(),
		Inputs:      wireInputs,
		WBRunID:     call.WBRunID,
	}})
	if err != nil {
		err = fmt.Errorf("start call %s: %w", opName, err)
		c.tel.endSpan(ctx, call, err, "", nil)
		return ctx, nil, err
	}

	if parent != nil {
		parent.addChild(call)
	} else if c.settings.PrintCallLink {
		clog.FromContext(ctx).Info("Started trace", "op", opBaseName(opName), "url", call.UIURL())
	}
	if call.useStack {
		ctx = callctx.Push(spanCtx, call)
	}
	return ctx, call, nil
}

// withTopLevelRefs returns inputs with each value that was published as its
// own object replaced by its ref.
func withTopLevelRefs(inputs map[string]any, mapped serialize.Value) map[string]any {
	m, ok := mapped.(serialize.Mapping)
	if !ok {
		return inputs
	}
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}
	for _, e := range m.Entries {
		if rv, ok := e.Value.(serialize.RefValue); ok {
			out[e.Key] = rv.Ref
		}
	}
	return out
}

// FinishCall records the end of call with output or, when callErr is set,
// with callErr as its exception. It computes the call's summary, sends the
// end record and returns the context that was current before the call was
// pushed.
//
// A failed end record or an output that cannot be serialized is reported,
// but the call is still finished and popped so the stack stays consistent.
func (c *Client) FinishCall(ctx context.Context, call *Call, output any, callErr error) (context.Context, error) {
	if c == nil || call == nil {
		return ctx, nil
	}
	call.mu.Lock()
	if call.finished {
		call.mu.Unlock()
		return ctx, fmt.Errorf("finish call %s: already finished", call.ID)
	}
	call.finished = true
	call.mu.Unlock()

	var errs []error
	recorded := output
	var wireOut any
	if mapped, err := c.mapper(ctx).MapToRefs(output); err != nil {
		errs = append(errs, fmt.Errorf("finish call %s: %w", call.ID, err))
		if callErr == nil {
			callErr = err
		}
		recorded = nil
	} else {
		wireOut = serialize.Encode(mapped)
		if rv, ok := mapped.(serialize.RefValue); ok {
			recorded = rv.Ref
		}
	}

	var (
		summary  map[string]any
		model    string
		ownUsage map[string]any
	)
	if call.hasChildren() {
		summary = rollupSummary(call.childSummaries())
	} else if s, m, ok := usageSummary(output); ok {
		summary, model = s, m
		ownUsage = s[SummaryUsage].(map[string]any)[m].(map[string]any)
	} else {
		summary = make(map[string]any)
	}

	var exception *string
	if callErr != nil {
		msg := callErr.Error()
		exception = &msg
	}
	ended := c.now()
	if _, err := c.server.CallEnd(ctx, &tsi.CallEndReq{End: tsi.EndedCallSchemaForInsert{
		ProjectID: c.ProjectID(),
		ID:        call.ID,
		EndedAt:   ended,
		Exception: exception,
		Output:    wireOut,
		Summary:   summary,
	}}); err != nil {
		errs = append(errs, fmt.Errorf("end call %s: %w", call.ID, err))
	}

	call.mu.Lock()
	call.Output = recorded
	if exception != nil {
		call.Exception = *exception
	}
	call.Summary = summary
	call.EndedAt = &ended
	call.mu.Unlock()

	c.tel.endSpan(ctx, call, callErr, model, ownUsage)

	if call.useStack {
		popped, err := callctx.Pop(ctx, call.ID)
		if err != nil {
			errs = append(errs, err)
		} else {
			ctx = oteltrace.ContextWithSpan(popped, call.outer)
		}
	}
	return ctx, errors.Join(errs...)
}
