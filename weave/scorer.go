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
	"slices"

	"github.com/wandb/weave-sub006/weave/serialize"
)

// OutputParam is the scorer parameter bound to the scored call's output.
const OutputParam = "output"

// Scorer turns a finished call into feedback.
type Scorer struct {
	// Op computes the score. Its parameters are bound by name from the
	// scored call's inputs, its output (as OutputParam) and extra arguments.
	Op Runnable `json:"op"`
	// ColumnMap renames sources for the Op's parameters: ColumnMap[param]
	// names the field that param is read from.
	ColumnMap map[string]string `json:"column_map,omitempty"`
	// Summarize aggregates the scorer's results over an evaluation. Nil
	// uses the default summary.
	Summarize func(results []any) any `json:"-"`
}

// Name returns the name of the scorer's op.
func (s Scorer) Name() string { return s.Op.Name() }

// bind selects the Op's arguments from available.
func (s Scorer) bind(available map[string]any) (map[string]any, error) {
	sig := s.Op.Signature()
	var unknown []string
	for p := range s.ColumnMap {
		if !sig.Has(p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, &OpCallError{Op: s.Op.Name(), Unknown: unknown, Reason: "column map names parameters the scorer does not take"}
	}

	args := make(map[string]any)
	if sig.Variadic {
		maps.Copy(args, available)
		for p, field := range s.ColumnMap {
			if v, ok := available[field]; ok {
				args[p] = v
			}
		}
		return args, nil
	}
	for _, p := range sig.Params {
		field := p
		if mapped, ok := s.ColumnMap[p]; ok {
			field = mapped
		}
		if v, ok := available[field]; ok {
			args[p] = v
		}
	}
	if missing := missingParams(sig, args); len(missing) > 0 {
		return nil, &OpCallError{Op: s.Op.Name(), Missing: missing,
			Reason: "not found among the call's inputs, output or extra arguments"}
	}
	return args, nil
}

// Score binds the scorer's parameters from available and runs it without
// attaching feedback anywhere.
func (s Scorer) Score(ctx context.Context, available map[string]any) (any, *Call, error) {
	args, err := s.bind(available)
	if err != nil {
		return nil, nil, err
	}
	return s.Op.Invoke(ctx, args)
}

// ApplyScorerResult is the outcome of Call.ApplyScorer.
type ApplyScorerResult struct {
	// Result is the scorer's return value.
	Result any
	// ScoreCall is the scorer's own call, or nil when untraced.
	ScoreCall *Call
	// FeedbackID identifies the feedback row attached to the scored call.
	FeedbackID string
}

// ApplyScorer runs s against the call and attaches its result as feedback
// of type "wandb.runnable.<scorer>". extra supplies arguments beyond the
// call's inputs and output and takes precedence over both.
//
// If the scorer's parameters cannot be bound an *OpCallError is returned and
// no feedback is written. A failing scorer's error is returned unchanged.
func (c *Call) ApplyScorer(ctx context.Context, s Scorer, extra map[string]any) (ApplyScorerResult, error) {
	if s.Op == nil {
		return ApplyScorerResult{}, errors.New("apply scorer: scorer has no op")
	}
	client := c.client
	if client == nil {
		return ApplyScorerResult{}, fmt.Errorf("apply scorer %s to call %s: %w", s.Name(), c.ID, ErrNoClient)
	}
	if ClientFromContext(ctx) != client {
		ctx = WithClient(ctx, client)
	}

	available := make(map[string]any, len(c.Inputs)+len(extra)+1)
	maps.Copy(available, c.Inputs)
	available[OutputParam] = c.Output
	maps.Copy(available, extra)
	result, scoreCall, err := s.Score(ctx, available)
	res := ApplyScorerResult{Result: result, ScoreCall: scoreCall}
	if err != nil {
		return res, err
	}

	ref, err := client.SaveOp(ctx, s.Op)
	if err != nil {
		return res, err
	}
	mapped, err := client.mapper(ctx).MapToRefs(result)
	if err != nil {
		return res, fmt.Errorf("apply scorer %s: %w", s.Name(), err)
	}
	req := FeedbackRequest{
		Type:        runnableFeedbackType(ref),
		Payload:     map[string]any{OutputParam: serialize.Plain(mapped)},
		RunnableRef: ref.URI(),
	}
	if scoreCall != nil {
		req.CallRef = scoreCall.Ref().URI()
	}
	id, err := c.Feedback().Add(ctx, req)
	if err != nil {
		return res, err
	}
	res.FeedbackID = id
	return res, nil
}
