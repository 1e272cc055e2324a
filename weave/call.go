/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/wandb/weave-sub006/weave/callctx"
	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// Call is one recorded invocation of an op.
//
// A call created by CreateCall is open until FinishCall, which fills in
// Output, Exception, Summary and EndedAt. Calls read back from the trace
// server are finished records and hold decoded wire values.
type Call struct {
	ID          string
	TraceID     string
	ParentID    string
	OpName      string
	DisplayName string
	Inputs      map[string]any
	Output      any
	// Exception is the error text of a failed call, or empty.
	Exception  string
	Summary    map[string]any
	Attributes *Attributes
	StartedAt  time.Time
	EndedAt    *time.Time
	DeletedAt  *time.Time
	WBRunID    string
	WBUserID   string

	client   *Client
	mu       sync.Mutex
	children []*Call
	span     oteltrace.Span
	// outer is the span that was current when the call started.
	outer    oteltrace.Span
	useStack bool
	finished bool
}

var _ callctx.Frame = (*Call)(nil)

// CallID implements callctx.Frame.
func (c *Call) CallID() string { return c.ID }

// Ref returns the call's ref in its project.
func (c *Call) Ref() refs.CallRef {
	if c.client == nil {
		return refs.CallRef{ID: c.ID}
	}
	return refs.NewCallRef(c.client.entity, c.client.project, c.ID)
}

// UIURL links to the call in the UI.
func (c *Call) UIURL() string {
	if c.client == nil {
		return ""
	}
	return c.client.callURL(c.ID)
}

// Failed reports whether the call finished with an exception.
func (c *Call) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Exception != ""
}

// Ended reports whether the call has finished.
func (c *Call) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.EndedAt != nil
}

// Latency is the time between start and end, or zero for open calls.
func (c *Call) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EndedAt == nil {
		return 0
	}
	return c.EndedAt.Sub(c.StartedAt)
}

// Children lists the calls recorded with c as their parent.
func (c *Call) Children() *CallsIter {
	return c.client.GetCalls(WithFilter(tsi.CallsFilter{ParentIDs: []string{c.ID}}))
}

// SetDisplayName renames the call.
func (c *Call) SetDisplayName(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("display name must not be empty, use RemoveDisplayName")
	}
	if err := c.updateDisplayName(ctx, name); err != nil {
		return err
	}
	c.mu.Lock()
	c.DisplayName = name
	c.mu.Unlock()
	return nil
}

// RemoveDisplayName clears the call's display name.
func (c *Call) RemoveDisplayName(ctx context.Context) error {
	if err := c.updateDisplayName(ctx, ""); err != nil {
		return err
	}
	c.mu.Lock()
	c.DisplayName = ""
	c.mu.Unlock()
	return nil
}

func (c *Call) updateDisplayName(ctx context.Context, name string) error {
	if c.client == nil {
		return ErrNoClient
	}
	_, err := c.client.server.CallUpdate(ctx, &tsi.CallUpdateReq{
		ProjectID:   c.client.ProjectID(),
		CallID:      c.ID,
		DisplayName: &name,
	})
	if err != nil {
		return notFound("update call "+c.ID, err)
	}
	return nil
}

// Delete removes the call and its descendants.
func (c *Call) Delete(ctx context.Context) error {
	if c.client == nil {
		return ErrNoClient
	}
	return c.client.DeleteCalls(ctx, c.ID)
}

func (c *Call) addChild(child *Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, child)
}

// childSummaries snapshots the summaries of the live children. A child
// that has not finished contributes whatever it holds right now.
func (c *Call) childSummaries() []map[string]any {
	c.mu.Lock()
	children := append([]*Call(nil), c.children...)
	c.mu.Unlock()

	out := make([]map[string]any, 0, len(children))
	for _, ch := range children {
		ch.mu.Lock()
		out = append(out, maps.Clone(ch.Summary))
		ch.mu.Unlock()
	}
	return out
}

func (c *Call) hasChildren() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children) > 0
}

// callFromSchema decodes a stored call.
func (cl *Client) callFromSchema(s *tsi.CallSchema) (*Call, error) {
	inputs := make(map[string]any, len(s.Inputs))
	for k, v := range s.Inputs {
		dv, err := cl.fromWire(v)
		if err != nil {
			return nil, fmt.Errorf("decode input %s of call %s: %w", k, s.ID, err)
		}
		inputs[k] = dv
	}
	output, err := cl.fromWire(s.Output)
	if err != nil {
		return nil, fmt.Errorf("decode output of call %s: %w", s.ID, err)
	}
	var exception string
	if s.Exception != nil {
		exception = *s.Exception
	}
	summary := s.Summary
	if summary == nil {
		summary = make(map[string]any)
	}
	return &Call{
		ID:          s.ID,
		TraceID:     s.TraceID,
		ParentID:    s.ParentID,
		OpName:      s.OpName,
		DisplayName: s.DisplayName,
		Inputs:      inputs,
		Output:      output,
		Exception:   exception,
		Summary:     summary,
		Attributes:  attributesFromWire(s.Attributes),
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		DeletedAt:   s.DeletedAt,
		WBRunID:     s.WBRunID,
		WBUserID:    s.WBUserID,
		client:      cl,
		finished:    s.EndedAt != nil,
	}, nil
}

// opBaseName extracts the op name from an op ref URI. Other strings are
// returned as is.
func opBaseName(opName string) string {
	if !refs.IsRefURI(opName) {
		return opName
	}
	r, err := refs.ParseOpRef(opName)
	if err != nil {
		return strings.TrimPrefix(opName, refs.Scheme+":///")
	}
	return r.Name
}
