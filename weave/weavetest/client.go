/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weavetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wandb/weave-sub006/weave"
	"github.com/wandb/weave-sub006/weave/tsi/memory"
)

// Project is the project test clients record into.
const Project = "test-entity/test-project"

// Clock returns a clock that starts at start and advances one second per
// reading, so calls recorded in order have strictly ordered start times.
func Clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// Settings returns the default settings without call links, which would
// otherwise be printed for every root call.
func Settings() weave.Settings {
	s := weave.DefaultSettings()
	s.PrintCallLink = false
	return s
}

// NewClient returns a context carrying a client backed by a fresh
// in-memory server, along with the client and the server. opts are applied
// after the defaults and may override them.
func NewClient(t testing.TB, opts ...weave.Option) (context.Context, *weave.Client, *memory.Server) {
	t.Helper()
	srv := memory.New()
	base := []weave.Option{
		weave.WithSettings(Settings()),
		weave.WithTraceServer(srv),
		weave.WithClock(Clock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))),
	}
	ctx := t.Context()
	client, err := weave.NewClient(ctx, Project, append(base, opts...)...)
	if err != nil {
		t.Fatalf("weave.NewClient() = %v", err)
	}
	return weave.WithClient(ctx, client), client, srv
}
