/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wandb/weave-sub006/weave/tsi"
)

// countingServer counts page requests and can start failing them.
type countingServer struct {
	tsi.TraceServer

	mu        sync.Mutex
	queries   int
	failAfter int
}

var errPageFailed = errors.New("page failed")

func (s *countingServer) CallsQuery(ctx context.Context, req *tsi.CallsQueryReq) (*tsi.CallsQueryRes, error) {
	s.mu.Lock()
	s.queries++
	n := s.queries
	s.mu.Unlock()
	if s.failAfter > 0 && n > s.failAfter {
		return nil, errPageFailed
	}
	return s.TraceServer.CallsQuery(ctx, req)
}

func (s *countingServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// seedCalls records n calls of predict with inputs 0..n-1 and returns a
// client reading through a countingServer.
func seedCalls(t *testing.T, n int) (context.Context, *Client, *countingServer) {
	t.Helper()
	ctx, _, srv := newTestClient(t)
	predict := addOne()
	for i := range n {
		_, err := predict.Run(ctx, xIn{X: i})
		require.NoError(t, err)
	}
	counting := &countingServer{TraceServer: srv}
	reader, err := NewClient(context.Background(), testProject, WithSettings(testSettings()), WithTraceServer(counting))
	require.NoError(t, err)
	return WithClient(context.Background(), reader), reader, counting
}

func inputX(t *testing.T, c *Call) float64 {
	t.Helper()
	x, ok := c.Inputs["x"].(float64)
	require.True(t, ok, "input x of %s is %T", c.ID, c.Inputs["x"])
	return x
}

func TestCallsIterPaging(t *testing.T) {
	ctx, client, srv := seedCalls(t, 5)
	it := client.GetCalls(WithPageSize(2))

	c, err := it.At(ctx, 3)
	require.NoError(t, err)
	if got := inputX(t, c); got != 3 {
		t.Errorf("At(3): got x = %v, wanted = 3", got)
	}
	if got := srv.count(); got != 1 {
		t.Errorf("requests after At(3): got = %d, wanted = 1", got)
	}

	// Position 2 lives on the page fetched for position 3.
	if _, err := it.At(ctx, 2); err != nil {
		t.Fatalf("At(2): %v", err)
	}
	if got := srv.count(); got != 1 {
		t.Errorf("requests after At(2): got = %d, wanted = 1", got)
	}

	calls, err := it.Slice(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, calls, 4)
	for i, c := range calls {
		if got := inputX(t, c); got != float64(i+1) {
			t.Errorf("Slice(1, 5)[%d]: got x = %v, wanted = %d", i, got, i+1)
		}
	}
	if got := srv.count(); got != 3 {
		t.Errorf("requests after Slice: got = %d, wanted = 3", got)
	}

	all, err := it.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	if got := srv.count(); got != 3 {
		t.Errorf("requests after Collect: got = %d, wanted = 3", got)
	}

	if _, err := it.At(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("At(5) error: got = %v, wanted ErrNotFound", err)
	}
}

func TestCallsIterRejectsNegativeIndexes(t *testing.T) {
	ctx, client, srv := seedCalls(t, 2)
	it := client.GetCalls()

	if _, err := it.At(ctx, -1); !errors.Is(err, ErrNegativeIndex) {
		t.Errorf("At(-1) error: got = %v, wanted ErrNegativeIndex", err)
	}
	if _, err := it.Slice(ctx, -2, 1); !errors.Is(err, ErrNegativeIndex) {
		t.Errorf("Slice(-2, 1) error: got = %v, wanted ErrNegativeIndex", err)
	}
	if got := srv.count(); got != 0 {
		t.Errorf("requests: got = %d, wanted = 0", got)
	}
}

func TestCallsIterPartialFailure(t *testing.T) {
	ctx, client, srv := seedCalls(t, 5)
	srv.failAfter = 1

	var (
		seen   int
		failed error
	)
	for c, err := range client.GetCalls(WithPageSize(2)).All(ctx) {
		if err != nil {
			failed = err
			break
		}
		if c == nil {
			t.Fatal("nil call without an error")
		}
		seen++
	}
	if seen != 2 {
		t.Errorf("calls before the failure: got = %d, wanted = 2", seen)
	}
	if !errors.Is(failed, errPageFailed) {
		t.Errorf("error: got = %v, wanted = %v", failed, errPageFailed)
	}
}

func TestCallsIterWindow(t *testing.T) {
	ctx, client, _ := seedCalls(t, 5)

	tests := []struct {
		name    string
		opts    []CallsOption
		wantLen int
		firstX  float64
	}{{
		name:    "limit",
		opts:    []CallsOption{WithLimit(3), WithPageSize(2)},
		wantLen: 3,
		firstX:  0,
	}, {
		name:    "offset",
		opts:    []CallsOption{WithOffset(1), WithPageSize(2)},
		wantLen: 4,
		firstX:  1,
	}, {
		name:    "descending",
		opts:    []CallsOption{WithSortBy("started_at", "desc")},
		wantLen: 5,
		firstX:  4,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := client.GetCalls(tt.opts...)
			calls, err := it.Collect(ctx)
			require.NoError(t, err)
			require.Len(t, calls, tt.wantLen)
			if got := inputX(t, calls[0]); got != tt.firstX {
				t.Errorf("first x: got = %v, wanted = %v", got, tt.firstX)
			}
			n, err := it.Len(ctx)
			require.NoError(t, err)
			if n != tt.wantLen {
				t.Errorf("Len(): got = %d, wanted = %d", n, tt.wantLen)
			}
		})
	}
}

func TestGetCallNotFound(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	if _, err := client.GetCall(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCall(missing) error: got = %v, wanted ErrNotFound", err)
	}
}

func TestDeleteCalls(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	inner := NewOp("inner", func(context.Context, int) (int, error) { return 1, nil })
	outer := NewOp("outer", func(ctx context.Context, x int) (int, error) { return inner.Run(ctx, x) })

	_, root, err := outer.Call(ctx, 1)
	require.NoError(t, err)
	_, keep, err := inner.Call(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, root.Delete(ctx))
	calls, err := client.GetCalls().Collect(ctx)
	require.NoError(t, err)
	require.Len(t, calls, 1, "deleting a call deletes its descendants")
	if calls[0].ID != keep.ID {
		t.Errorf("remaining call: got = %s, wanted = %s", calls[0].ID, keep.ID)
	}
}
