/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"sync"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// Table is an ordered list of rows stored as its own content-addressed
// entity. Objects that hold a *Table refer to it by ref.
type Table struct {
	Rows []map[string]any

	mu         sync.Mutex
	ref        *refs.TableRef
	rowDigests []string
}

// NewTable returns a table holding rows.
func NewTable(rows []map[string]any) *Table {
	return &Table{Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Ref returns the ref of the saved table.
func (t *Table) Ref() (refs.TableRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ref == nil {
		return refs.TableRef{}, false
	}
	return *t.ref, true
}

// RowRef returns the ref of row i of the saved table.
func (t *Table) RowRef(i int) (refs.TableRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ref == nil || i < 0 || i >= len(t.rowDigests) {
		return refs.TableRef{}, false
	}
	return t.ref.WithItem(t.rowDigests[i]), true
}

// SaveTable stores t and returns its ref. A table already saved to this
// project is not stored again.
func (c *Client) SaveTable(ctx context.Context, t *Table) (refs.TableRef, error) {
	if r, ok := c.refs.Get(t); ok {
		if tr, ok := r.(refs.TableRef); ok && tr.ProjectID() == c.ProjectID() {
			return tr, nil
		}
	}
	m := c.mapper(ctx)
	rows := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		wire, err := m.ToWire(row)
		if err != nil {
			return refs.TableRef{}, fmt.Errorf("save table row %d: %w", i, err)
		}
		rows[i] = wire
	}
	res, err := c.server.TableCreate(ctx, &tsi.TableCreateReq{Table: tsi.TableSchemaForInsert{
		ProjectID: c.ProjectID(),
		Rows:      rows,
	}})
	if err != nil {
		return refs.TableRef{}, fmt.Errorf("save table: %w", err)
	}
	ref := refs.NewTableRef(c.entity, c.project, res.Digest)
	// Rows passed on to ops are recorded by their row ref.
	for i, row := range t.Rows {
		if i < len(res.RowDigests) {
			c.refs.Set(row, ref.WithItem(res.RowDigests[i]))
		}
	}
	t.mu.Lock()
	t.ref = &ref
	t.rowDigests = res.RowDigests
	t.mu.Unlock()
	c.refs.Set(t, ref)
	return ref, nil
}

// GetTable reads every row of a saved table, fetching pageSize rows per
// request.
func (c *Client) GetTable(ctx context.Context, ref refs.TableRef) (*Table, error) {
	pageSize := c.settings.CallsPageSize
	t := &Table{ref: &ref}
	for offset := 0; ; offset += pageSize {
		res, err := c.server.TableQuery(ctx, &tsi.TableQueryReq{
			ProjectID: c.ProjectID(),
			Digest:    ref.Digest,
			Offset:    offset,
			Limit:     pageSize,
		})
		if err != nil {
			return nil, notFound("read table "+ref.Digest, err)
		}
		for _, row := range res.Rows {
			v, err := c.fromWire(row.Val)
			if err != nil {
				return nil, fmt.Errorf("decode table row %s: %w", row.Digest, err)
			}
			m, ok := v.(map[string]any)
			if !ok {
				m = map[string]any{"value": v}
			}
			t.Rows = append(t.Rows, m)
			t.rowDigests = append(t.rowDigests, row.Digest)
		}
		if len(res.Rows) < pageSize {
			break
		}
	}
	c.refs.Set(t, ref)
	return t, nil
}
