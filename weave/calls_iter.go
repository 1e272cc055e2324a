/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/wandb/weave-sub006/weave/tsi"
)

// CallsOption configures a calls query.
type CallsOption func(*callsQuery)

type callsQuery struct {
	filter       tsi.CallsFilter
	query        *tsi.Query
	sortBy       []tsi.SortBy
	includeCosts bool
	pageSize     int
	offset       int
	limit        int
}

// WithFilter restricts the query to calls matching f. f is copied.
func WithFilter(f tsi.CallsFilter) CallsOption {
	return func(q *callsQuery) {
		q.filter = *f.Clone()
	}
}

// WithQuery restricts the query to calls matching a query expression.
func WithQuery(expr tsi.Operand) CallsOption {
	return func(q *callsQuery) {
		q.query = &tsi.Query{Expr: expr}
	}
}

// WithSortBy orders the calls by field, "asc" or "desc". It may be repeated.
func WithSortBy(field, direction string) CallsOption {
	return func(q *callsQuery) {
		q.sortBy = append(q.sortBy, tsi.SortBy{Field: field, Direction: direction})
	}
}

// WithIncludeCosts asks the server to attach cost information.
func WithIncludeCosts() CallsOption {
	return func(q *callsQuery) {
		q.includeCosts = true
	}
}

// WithPageSize overrides the number of calls fetched per request.
func WithPageSize(n int) CallsOption {
	return func(q *callsQuery) {
		q.pageSize = n
	}
}

// WithOffset skips the first n matching calls.
func WithOffset(n int) CallsOption {
	return func(q *callsQuery) {
		q.offset = n
	}
}

// WithLimit stops after n calls. Zero means no limit.
func WithLimit(n int) CallsOption {
	return func(q *callsQuery) {
		q.limit = n
	}
}

// CallsIter lazily pages through the calls matching a query. Pages are
// fetched on first use and memoized, so positions can be revisited without
// another request. It is safe for concurrent use.
type CallsIter struct {
	client *Client
	q      callsQuery

	mu    sync.Mutex
	pages map[int][]*Call
}

// GetCalls returns an iterator over the project's calls. Nothing is fetched
// until the iterator is used.
func (c *Client) GetCalls(opts ...CallsOption) *CallsIter {
	q := callsQuery{pageSize: c.settings.CallsPageSize}
	for _, opt := range opts {
		opt(&q)
	}
	if q.pageSize < 1 {
		q.pageSize = DefaultSettings().CallsPageSize
	}
	return &CallsIter{client: c, q: q, pages: make(map[int][]*Call)}
}

// GetCall reads one call by id.
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	res, err := c.server.CallRead(ctx, &tsi.CallReadReq{ProjectID: c.ProjectID(), ID: id})
	if err != nil {
		return nil, notFound("read call "+id, err)
	}
	if res.Call == nil {
		return nil, fmt.Errorf("read call %s: %w", id, ErrNotFound)
	}
	return c.callFromSchema(res.Call)
}

// DeleteCalls deletes calls and their descendants.
func (c *Client) DeleteCalls(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := c.server.CallsDelete(ctx, &tsi.CallsDeleteReq{ProjectID: c.ProjectID(), CallIDs: ids}); err != nil {
		return fmt.Errorf("delete calls: %w", err)
	}
	return nil
}

// page returns page i, fetching it on first use. A short page is the last.
func (it *CallsIter) page(ctx context.Context, i int) ([]*Call, error) {
	it.mu.Lock()
	if p, ok := it.pages[i]; ok {
		it.mu.Unlock()
		return p, nil
	}
	it.mu.Unlock()

	start := i * it.q.pageSize
	limit := it.q.pageSize
	if it.q.limit > 0 {
		if start >= it.q.limit {
			return nil, nil
		}
		limit = min(limit, it.q.limit-start)
	}

	filter := it.q.filter
	res, err := it.client.server.CallsQuery(ctx, &tsi.CallsQueryReq{
		ProjectID:    it.client.ProjectID(),
		Filter:       filter.Clone(),
		Query:        it.q.query,
		Offset:       it.q.offset + start,
		Limit:        limit,
		SortBy:       it.q.sortBy,
		IncludeCosts: it.q.includeCosts,
	})
	if err != nil {
		return nil, fmt.Errorf("query calls page %d: %w", i, err)
	}
	calls := make([]*Call, 0, len(res.Calls))
	for j := range res.Calls {
		call, err := it.client.callFromSchema(&res.Calls[j])
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	if p, ok := it.pages[i]; ok {
		return p, nil
	}
	it.pages[i] = calls
	return calls, nil
}

// At returns the call at position i.
func (it *CallsIter) At(ctx context.Context, i int) (*Call, error) {
	if i < 0 {
		return nil, fmt.Errorf("calls[%d]: %w", i, ErrNegativeIndex)
	}
	p, err := it.page(ctx, i/it.q.pageSize)
	if err != nil {
		return nil, err
	}
	j := i % it.q.pageSize
	if j >= len(p) {
		return nil, fmt.Errorf("calls[%d]: index out of range: %w", i, ErrNotFound)
	}
	return p[j], nil
}

// Slice returns the calls at positions [start, stop). It returns fewer
// calls when the query runs out.
func (it *CallsIter) Slice(ctx context.Context, start, stop int) ([]*Call, error) {
	if start < 0 || stop < 0 {
		return nil, fmt.Errorf("calls[%d:%d]: %w", start, stop, ErrNegativeIndex)
	}
	var out []*Call
	for i := start; i < stop; {
		p, err := it.page(ctx, i/it.q.pageSize)
		if err != nil {
			return out, err
		}
		j := i % it.q.pageSize
		if j >= len(p) {
			break
		}
		n := min(len(p)-j, stop-i)
		out = append(out, p[j:j+n]...)
		i += n
		if len(p) < it.q.pageSize {
			break
		}
	}
	return out, nil
}

// All yields every call in order. If a page cannot be fetched the error is
// yielded once with a nil call; calls already yielded stay valid.
func (it *CallsIter) All(ctx context.Context) iter.Seq2[*Call, error] {
	return func(yield func(*Call, error) bool) {
		for i := 0; ; i++ {
			p, err := it.page(ctx, i)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, c := range p {
				if !yield(c, nil) {
					return
				}
			}
			if len(p) < it.q.pageSize {
				return
			}
		}
	}
}

// Collect fetches every call.
func (it *CallsIter) Collect(ctx context.Context) ([]*Call, error) {
	var out []*Call
	for c, err := range it.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Len counts the matching calls with a single stats request.
func (it *CallsIter) Len(ctx context.Context) (int, error) {
	filter := it.q.filter
	res, err := it.client.server.CallsQueryStats(ctx, &tsi.CallsQueryStatsReq{
		ProjectID: it.client.ProjectID(),
		Filter:    filter.Clone(),
		Query:     it.q.query,
	})
	if err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	n := max(res.Count-it.q.offset, 0)
	if it.q.limit > 0 {
		n = min(n, it.q.limit)
	}
	return n, nil
}
