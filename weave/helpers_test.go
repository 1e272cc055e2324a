/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wandb/weave-sub006/weave/tsi/memory"
)

const testProject = "acme/demo"

// tickClock returns a clock that advances one second per reading, so call
// start times are strictly ordered.
func tickClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.PrintCallLink = false
	return s
}

// newTestClient returns a context carrying a client backed by a fresh
// in-memory trace server.
func newTestClient(t *testing.T, opts ...Option) (context.Context, *Client, *memory.Server) {
	t.Helper()
	srv := memory.New()
	base := []Option{WithSettings(testSettings()), WithTraceServer(srv), WithClock(tickClock())}
	c, err := NewClient(context.Background(), testProject, append(base, opts...)...)
	require.NoError(t, err, "failed to create client")
	return WithClient(context.Background(), c), c, srv
}

type xIn struct {
	X int `json:"x"`
}

func addOne() *Op[xIn, int] {
	return NewOp("predict", func(_ context.Context, in xIn) (int, error) {
		return in.X + 1, nil
	})
}
