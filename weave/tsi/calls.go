/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import "time"

// StartedCallSchemaForInsert is the record sent when a call starts.
type StartedCallSchemaForInsert struct {
	ProjectID   string         `json:"project_id"`
	ID          string         `json:"id,omitempty"`
	OpName      string         `json:"op_name"`
	DisplayName string         `json:"display_name,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	Attributes  map[string]any `json:"attributes"`
	Inputs      map[string]any `json:"inputs"`
	WBUserID    string         `json:"wb_user_id,omitempty"`
	WBRunID     string         `json:"wb_run_id,omitempty"`
}

// EndedCallSchemaForInsert is the record sent when a call finishes.
type EndedCallSchemaForInsert struct {
	ProjectID string         `json:"project_id"`
	ID        string         `json:"id"`
	EndedAt   time.Time      `json:"ended_at"`
	Exception *string        `json:"exception,omitempty"`
	Output    any            `json:"output"`
	Summary   map[string]any `json:"summary"`
}

// CallSchema is a stored call.
type CallSchema struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	OpName      string         `json:"op_name"`
	DisplayName string         `json:"display_name,omitempty"`
	TraceID     string         `json:"trace_id"`
	ParentID    string         `json:"parent_id,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	Exception   *string        `json:"exception,omitempty"`
	Attributes  map[string]any `json:"attributes"`
	Inputs      map[string]any `json:"inputs"`
	Output      any            `json:"output,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
	WBUserID    string         `json:"wb_user_id,omitempty"`
	WBRunID     string         `json:"wb_run_id,omitempty"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// CallStartReq wraps a started call.
type CallStartReq struct {
	Start StartedCallSchemaForInsert `json:"start"`
}

// CallStartRes returns the ids assigned to the call.
type CallStartRes struct {
	ID      string `json:"id"`
	TraceID string `json:"trace_id"`
}

// CallEndReq wraps an ended call.
type CallEndReq struct {
	End EndedCallSchemaForInsert `json:"end"`
}

// CallEndRes is empty.
type CallEndRes struct{}

// CallReadReq reads one call.
type CallReadReq struct {
	ProjectID    string `json:"project_id"`
	ID           string `json:"id"`
	IncludeCosts bool   `json:"include_costs,omitempty"`
}

// CallReadRes holds the call, or nil when it does not exist.
type CallReadRes struct {
	Call *CallSchema `json:"call"`
}

// CallsFilter narrows a calls query. Empty fields match everything.
type CallsFilter struct {
	OpNames        []string `json:"op_names,omitempty"`
	InputRefs      []string `json:"input_refs,omitempty"`
	OutputRefs     []string `json:"output_refs,omitempty"`
	ParentIDs      []string `json:"parent_ids,omitempty"`
	TraceIDs       []string `json:"trace_ids,omitempty"`
	CallIDs        []string `json:"call_ids,omitempty"`
	TraceRootsOnly bool     `json:"trace_roots_only,omitempty"`
	WBUserIDs      []string `json:"wb_user_ids,omitempty"`
	WBRunIDs       []string `json:"wb_run_ids,omitempty"`
}

// Clone returns a deep copy of f.
func (f *CallsFilter) Clone() *CallsFilter {
	if f == nil {
		return nil
	}
	return &CallsFilter{
		OpNames:        clone(f.OpNames),
		InputRefs:      clone(f.InputRefs),
		OutputRefs:     clone(f.OutputRefs),
		ParentIDs:      clone(f.ParentIDs),
		TraceIDs:       clone(f.TraceIDs),
		CallIDs:        clone(f.CallIDs),
		TraceRootsOnly: f.TraceRootsOnly,
		WBUserIDs:      clone(f.WBUserIDs),
		WBRunIDs:       clone(f.WBRunIDs),
	}
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// CallsQueryReq pages through calls.
type CallsQueryReq struct {
	ProjectID    string       `json:"project_id"`
	Filter       *CallsFilter `json:"filter,omitempty"`
	Query        *Query       `json:"query,omitempty"`
	Offset       int          `json:"offset,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	SortBy       []SortBy     `json:"sort_by,omitempty"`
	IncludeCosts bool         `json:"include_costs,omitempty"`
}

// CallsQueryRes holds one page of calls.
type CallsQueryRes struct {
	Calls []CallSchema `json:"calls"`
}

// CallsQueryStatsReq counts calls.
type CallsQueryStatsReq struct {
	ProjectID string       `json:"project_id"`
	Filter    *CallsFilter `json:"filter,omitempty"`
	Query     *Query       `json:"query,omitempty"`
}

// CallsQueryStatsRes holds the count.
type CallsQueryStatsRes struct {
	Count int `json:"count"`
}

// CallsDeleteReq soft-deletes calls and their descendants.
type CallsDeleteReq struct {
	ProjectID string   `json:"project_id"`
	CallIDs   []string `json:"call_ids"`
}

// CallsDeleteRes is empty.
type CallsDeleteRes struct{}

// CallUpdateReq changes mutable call fields. An empty DisplayName clears it.
type CallUpdateReq struct {
	ProjectID   string  `json:"project_id"`
	CallID      string  `json:"call_id"`
	DisplayName *string `json:"display_name,omitempty"`
}

// CallUpdateRes is empty.
type CallUpdateRes struct{}
