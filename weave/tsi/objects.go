/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import "time"

// Object kinds.
const (
	KindObject = "object"
	KindOp     = "op"
)

// ObjSchemaForInsert is an object version to store.
type ObjSchemaForInsert struct {
	ProjectID string `json:"project_id"`
	ObjectID  string `json:"object_id"`
	Val       any    `json:"val"`
}

// ObjSchema is a stored object version.
type ObjSchema struct {
	ProjectID       string     `json:"project_id"`
	ObjectID        string     `json:"object_id"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	Digest          string     `json:"digest"`
	VersionIndex    int        `json:"version_index"`
	IsLatest        int        `json:"is_latest"`
	Kind            string     `json:"kind"`
	BaseObjectClass string     `json:"base_object_class,omitempty"`
	Val             any        `json:"val"`
}

// ObjCreateReq stores an object version.
type ObjCreateReq struct {
	Obj ObjSchemaForInsert `json:"obj"`
}

// ObjCreateRes carries the content digest of the stored version.
type ObjCreateRes struct {
	Digest string `json:"digest"`
}

// ObjReadReq reads one object version. Digest "latest" reads the newest.
type ObjReadReq struct {
	ProjectID string `json:"project_id"`
	ObjectID  string `json:"object_id"`
	Digest    string `json:"digest"`
}

// ObjReadRes holds the version.
type ObjReadRes struct {
	Obj ObjSchema `json:"obj"`
}

// ObjectVersionFilter narrows an objects query.
type ObjectVersionFilter struct {
	BaseObjectClasses []string `json:"base_object_classes,omitempty"`
	ObjectIDs         []string `json:"object_ids,omitempty"`
	IsOp              *bool    `json:"is_op,omitempty"`
	LatestOnly        *bool    `json:"latest_only,omitempty"`
}

// ObjQueryReq lists object versions.
type ObjQueryReq struct {
	ProjectID string               `json:"project_id"`
	Filter    *ObjectVersionFilter `json:"filter,omitempty"`
	Limit     int                  `json:"limit,omitempty"`
	Offset    int                  `json:"offset,omitempty"`
	SortBy    []SortBy             `json:"sort_by,omitempty"`
}

// ObjQueryRes holds matching versions.
type ObjQueryRes struct {
	Objs []ObjSchema `json:"objs"`
}

// TableSchemaForInsert is a table to store.
type TableSchemaForInsert struct {
	ProjectID string `json:"project_id"`
	Rows      []any  `json:"rows"`
}

// TableCreateReq stores a table.
type TableCreateReq struct {
	Table TableSchemaForInsert `json:"table"`
}

// TableCreateRes carries the table digest and the digest of each row.
type TableCreateRes struct {
	Digest     string   `json:"digest"`
	RowDigests []string `json:"row_digests"`
}

// TableRowSchema is a stored row.
type TableRowSchema struct {
	Digest string `json:"digest"`
	Val    any    `json:"val"`
}

// TableQueryReq pages through a table's rows.
type TableQueryReq struct {
	ProjectID string `json:"project_id"`
	Digest    string `json:"digest"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// TableQueryRes holds one page of rows.
type TableQueryRes struct {
	Rows []TableRowSchema `json:"rows"`
}

// RefsReadBatchReq resolves ref URIs, including extra paths.
type RefsReadBatchReq struct {
	Refs []string `json:"refs"`
}

// RefsReadBatchRes holds one value per requested ref, in order.
type RefsReadBatchRes struct {
	Vals []any `json:"vals"`
}
