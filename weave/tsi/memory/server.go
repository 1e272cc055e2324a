/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package memory implements tsi.TraceServer in process.
//
// Every stored value is passed through a JSON round trip on the way in and
// copied on the way out, so callers observe the same shapes (numbers as
// float64, structs as maps) they would get back from a hosted server.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wandb/weave-sub006/weave/tsi"
)

// Server is an in-process trace server. The zero value is not usable; call New.
type Server struct {
	mu  sync.RWMutex
	now func() time.Time

	projects map[string]struct{}

	calls     map[string]*tsi.CallSchema
	callOrder []string

	objects map[objectKey][]*tsi.ObjSchema
	tables  map[tableKey][]string
	rows    map[tableKey]any

	feedback []tsi.Feedback
}

var _ tsi.TraceServer = (*Server)(nil)

type objectKey struct{ project, id string }

type tableKey struct{ project, digest string }

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the clock used for created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		now:      time.Now,
		projects: make(map[string]struct{}),
		calls:    make(map[string]*tsi.CallSchema),
		objects:  make(map[objectKey][]*tsi.ObjSchema),
		tables:   make(map[tableKey][]string),
		rows:     make(map[tableKey]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProjectExists implements tsi.TraceServer.
func (s *Server) EnsureProjectExists(_ context.Context, req *tsi.EnsureProjectExistsReq) (*tsi.EnsureProjectExistsRes, error) {
	if req.Entity == "" || req.Project == "" {
		return nil, fmt.Errorf("ensure project: entity and project are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[req.Entity+"/"+req.Project] = struct{}{}
	return &tsi.EnsureProjectExistsRes{ProjectName: req.Project}, nil
}

// normalize passes v through a JSON round trip.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	v, err := normalize(m)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// copyValue deep-copies normalized JSON data.
func copyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return copyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = copyValue(e)
	}
	return out
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func window[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
