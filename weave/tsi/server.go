/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import (
	"context"
	"iter"
)

// TraceServer stores calls, objects, tables and feedback.
type TraceServer interface {
	EnsureProjectExists(ctx context.Context, req *EnsureProjectExistsReq) (*EnsureProjectExistsRes, error)

	CallStart(ctx context.Context, req *CallStartReq) (*CallStartRes, error)
	CallEnd(ctx context.Context, req *CallEndReq) (*CallEndRes, error)
	CallRead(ctx context.Context, req *CallReadReq) (*CallReadRes, error)
	CallsQuery(ctx context.Context, req *CallsQueryReq) (*CallsQueryRes, error)
	// CallsQueryStream yields matching calls one at a time. Iteration stops
	// at the first error, which is yielded with a nil call.
	CallsQueryStream(ctx context.Context, req *CallsQueryReq) iter.Seq2[*CallSchema, error]
	CallsQueryStats(ctx context.Context, req *CallsQueryStatsReq) (*CallsQueryStatsRes, error)
	CallsDelete(ctx context.Context, req *CallsDeleteReq) (*CallsDeleteRes, error)
	CallUpdate(ctx context.Context, req *CallUpdateReq) (*CallUpdateRes, error)

	ObjCreate(ctx context.Context, req *ObjCreateReq) (*ObjCreateRes, error)
	ObjRead(ctx context.Context, req *ObjReadReq) (*ObjReadRes, error)
	ObjsQuery(ctx context.Context, req *ObjQueryReq) (*ObjQueryRes, error)

	TableCreate(ctx context.Context, req *TableCreateReq) (*TableCreateRes, error)
	TableQuery(ctx context.Context, req *TableQueryReq) (*TableQueryRes, error)

	RefsReadBatch(ctx context.Context, req *RefsReadBatchReq) (*RefsReadBatchRes, error)

	FeedbackCreate(ctx context.Context, req *FeedbackCreateReq) (*FeedbackCreateRes, error)
	FeedbackQuery(ctx context.Context, req *FeedbackQueryReq) (*FeedbackQueryRes, error)
	FeedbackPurge(ctx context.Context, req *FeedbackPurgeReq) (*FeedbackPurgeRes, error)
}

// EnsureProjectExistsReq names a project to create if missing.
type EnsureProjectExistsReq struct {
	Entity  string `json:"entity"`
	Project string `json:"project"`
}

// EnsureProjectExistsRes carries the canonical project name.
type EnsureProjectExistsRes struct {
	ProjectName string `json:"project_name"`
}

// SortBy orders query results. Direction is "asc" or "desc".
type SortBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}
