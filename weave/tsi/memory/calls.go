/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/wandb/weave-sub006/weave/tsi"
)

// CallStart implements tsi.TraceServer.
func (s *Server) CallStart(_ context.Context, req *tsi.CallStartReq) (*tsi.CallStartRes, error) {
	start := req.Start
	if start.ProjectID == "" || start.OpName == "" {
		return nil, fmt.Errorf("call start: project_id and op_name are required")
	}
	attributes, err := normalizeMap(start.Attributes)
	if err != nil {
		return nil, fmt.Errorf("call start attributes: %w", err)
	}
	inputs, err := normalizeMap(start.Inputs)
	if err != nil {
		return nil, fmt.Errorf("call start inputs: %w", err)
	}
	if start.ID == "" {
		start.ID = newID()
	}
	if start.TraceID == "" {
		start.TraceID = newID()
	}
	if start.StartedAt.IsZero() {
		start.StartedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[start.ID]; ok {
		return nil, fmt.Errorf("call start: call %s already exists", start.ID)
	}
	s.calls[start.ID] = &tsi.CallSchema{
		ID:          start.ID,
		ProjectID:   start.ProjectID,
		OpName:      start.OpName,
		DisplayName: start.DisplayName,
		TraceID:     start.TraceID,
		ParentID:    start.ParentID,
		StartedAt:   start.StartedAt,
		Attributes:  attributes,
		Inputs:      inputs,
		WBUserID:    start.WBUserID,
		WBRunID:     start.WBRunID,
	}
	s.callOrder = append(s.callOrder, start.ID)
	return &tsi.CallStartRes{ID: start.ID, TraceID: start.TraceID}, nil
}

// CallEnd implements tsi.TraceServer.
func (s *Server) CallEnd(_ context.Context, req *tsi.CallEndReq) (*tsi.CallEndRes, error) {
	end := req.End
	output, err := normalize(end.Output)
	if err != nil {
		return nil, fmt.Errorf("call end output: %w", err)
	}
	summary, err := normalizeMap(end.Summary)
	if err != nil {
		return nil, fmt.Errorf("call end summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[end.ID]
	if !ok || c.ProjectID != end.ProjectID {
		return nil, fmt.Errorf("call end %s: %w", end.ID, tsi.ErrNotFound)
	}
	endedAt := end.EndedAt
	if endedAt.IsZero() {
		endedAt = s.now()
	}
	c.EndedAt = &endedAt
	c.Exception = end.Exception
	c.Output = output
	c.Summary = summary
	return &tsi.CallEndRes{}, nil
}

// CallRead implements tsi.TraceServer.
func (s *Server) CallRead(_ context.Context, req *tsi.CallReadReq) (*tsi.CallReadRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[req.ID]
	if !ok || c.ProjectID != req.ProjectID || c.DeletedAt != nil {
		return &tsi.CallReadRes{}, nil
	}
	return &tsi.CallReadRes{Call: copyCall(c)}, nil
}

// CallsQuery implements tsi.TraceServer.
func (s *Server) CallsQuery(_ context.Context, req *tsi.CallsQueryReq) (*tsi.CallsQueryRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.matchCalls(req.ProjectID, req.Filter, req.Query)
	if err != nil {
		return nil, err
	}
	sortCalls(matched, req.SortBy)
	matched = window(matched, req.Offset, req.Limit)

	res := &tsi.CallsQueryRes{Calls: make([]tsi.CallSchema, 0, len(matched))}
	for _, c := range matched {
		res.Calls = append(res.Calls, *copyCall(c))
	}
	return res, nil
}

// CallsQueryStream implements tsi.TraceServer.
func (s *Server) CallsQueryStream(ctx context.Context, req *tsi.CallsQueryReq) iter.Seq2[*tsi.CallSchema, error] {
	return func(yield func(*tsi.CallSchema, error) bool) {
		res, err := s.CallsQuery(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}
		for i := range res.Calls {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&res.Calls[i], nil) {
				return
			}
		}
	}
}

// CallsQueryStats implements tsi.TraceServer.
func (s *Server) CallsQueryStats(_ context.Context, req *tsi.CallsQueryStatsReq) (*tsi.CallsQueryStatsRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.matchCalls(req.ProjectID, req.Filter, req.Query)
	if err != nil {
		return nil, err
	}
	return &tsi.CallsQueryStatsRes{Count: len(matched)}, nil
}

// CallsDelete implements tsi.TraceServer. Descendants of deleted calls are
// deleted with them.
func (s *Server) CallsDelete(_ context.Context, req *tsi.CallsDeleteReq) (*tsi.CallsDeleteRes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]bool, len(req.CallIDs))
	for _, id := range req.CallIDs {
		if c, ok := s.calls[id]; ok && c.ProjectID == req.ProjectID {
			doomed[id] = true
		}
	}
	// Calls start after their parents, so one pass in start order reaches
	// every descendant.
	for _, id := range s.callOrder {
		c := s.calls[id]
		if c.ProjectID == req.ProjectID && doomed[c.ParentID] {
			doomed[id] = true
		}
	}
	now := s.now()
	for id := range doomed {
		s.calls[id].DeletedAt = &now
	}
	return &tsi.CallsDeleteRes{}, nil
}

// CallUpdate implements tsi.TraceServer.
func (s *Server) CallUpdate(_ context.Context, req *tsi.CallUpdateReq) (*tsi.CallUpdateRes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[req.CallID]
	if !ok || c.ProjectID != req.ProjectID || c.DeletedAt != nil {
		return nil, fmt.Errorf("call update %s: %w", req.CallID, tsi.ErrNotFound)
	}
	if req.DisplayName != nil {
		c.DisplayName = *req.DisplayName
	}
	return &tsi.CallUpdateRes{}, nil
}

func (s *Server) matchCalls(project string, f *tsi.CallsFilter, q *tsi.Query) ([]*tsi.CallSchema, error) {
	var out []*tsi.CallSchema
	for _, id := range s.callOrder {
		c := s.calls[id]
		if c.ProjectID != project || c.DeletedAt != nil || !matchFilter(c, f) {
			continue
		}
		if q != nil {
			row, err := callRow(c)
			if err != nil {
				return nil, err
			}
			ok, err := tsi.Match(q, func(field string) (any, bool) { return tsi.LookupPath(row, field) })
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func matchFilter(c *tsi.CallSchema, f *tsi.CallsFilter) bool {
	if f == nil {
		return true
	}
	if len(f.OpNames) > 0 && !slices.ContainsFunc(f.OpNames, func(pattern string) bool { return matchOpName(pattern, c.OpName) }) {
		return false
	}
	if !oneOf(f.ParentIDs, c.ParentID) || !oneOf(f.TraceIDs, c.TraceID) || !oneOf(f.CallIDs, c.ID) {
		return false
	}
	if !oneOf(f.WBUserIDs, c.WBUserID) || !oneOf(f.WBRunIDs, c.WBRunID) {
		return false
	}
	if f.TraceRootsOnly && c.ParentID != "" {
		return false
	}
	if len(f.InputRefs) > 0 && !anyRef(f.InputRefs, c.Inputs) {
		return false
	}
	if len(f.OutputRefs) > 0 {
		out, _ := c.Output.(string)
		if !slices.Contains(f.OutputRefs, out) {
			return false
		}
	}
	return true
}

// matchOpName treats a trailing ":*" as "any version".
func matchOpName(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(name, prefix+":")
	}
	return pattern == name
}

func oneOf(allowed []string, v string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, v)
}

func anyRef(allowed []string, inputs map[string]any) bool {
	for _, v := range inputs {
		if s, ok := v.(string); ok && slices.Contains(allowed, s) {
			return true
		}
	}
	return false
}

func callRow(c *tsi.CallSchema) (map[string]any, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func sortCalls(calls []*tsi.CallSchema, by []tsi.SortBy) {
	if len(by) == 0 {
		by = []tsi.SortBy{{Field: "started_at", Direction: "asc"}}
	}
	slices.SortStableFunc(calls, func(a, b *tsi.CallSchema) int {
		for _, sb := range by {
			c := compareCallField(a, b, sb.Field)
			if sb.Direction == "desc" {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareCallField(a, b *tsi.CallSchema, field string) int {
	switch field {
	case "started_at":
		return a.StartedAt.Compare(b.StartedAt)
	case "ended_at":
		return compareTimes(a.EndedAt, b.EndedAt)
	case "id":
		return cmp.Compare(a.ID, b.ID)
	case "op_name":
		return cmp.Compare(a.OpName, b.OpName)
	case "display_name":
		return cmp.Compare(a.DisplayName, b.DisplayName)
	case "trace_id":
		return cmp.Compare(a.TraceID, b.TraceID)
	}
	return 0
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func copyCall(c *tsi.CallSchema) *tsi.CallSchema {
	out := *c
	out.Attributes = copyMap(c.Attributes)
	out.Inputs = copyMap(c.Inputs)
	out.Output = copyValue(c.Output)
	out.Summary = copyMap(c.Summary)
	if c.EndedAt != nil {
		t := *c.EndedAt
		out.EndedAt = &t
	}
	if c.Exception != nil {
		e := *c.Exception
		out.Exception = &e
	}
	return &out
}
