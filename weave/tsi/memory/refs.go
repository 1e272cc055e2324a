/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// maxRefHops bounds how many nested refs one path may follow.
const maxRefHops = 64

// tableValue stands for a resolved table while walking a ref path, so that
// "id" edges can address rows by digest.
type tableValue struct {
	project string
	digests []string
}

// RefsReadBatch implements tsi.TraceServer. Ref strings met part way along
// an extra path are followed; ref strings inside the final value are
// returned as stored.
func (s *Server) RefsReadBatch(_ context.Context, req *tsi.RefsReadBatchReq) (*tsi.RefsReadBatchRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := &tsi.RefsReadBatchRes{Vals: make([]any, len(req.Refs))}
	for i, uri := range req.Refs {
		r, err := refs.Parse(uri)
		if err != nil {
			return nil, err
		}
		v, err := s.resolve(r, 0)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		res.Vals[i] = s.materialize(v)
	}
	return res, nil
}

func (s *Server) resolve(r refs.Ref, hops int) (any, error) {
	if hops > maxRefHops {
		return nil, fmt.Errorf("too many nested refs")
	}
	var root any
	switch tr := r.(type) {
	case refs.ObjectRef:
		v, err := s.findObject(tr.ProjectID(), tr.Name, tr.Digest)
		if err != nil {
			return nil, err
		}
		root = v.Val
	case refs.OpRef:
		v, err := s.findObject(tr.ProjectID(), tr.Name, tr.Digest)
		if err != nil {
			return nil, err
		}
		root = v.Val
	case refs.TableRef:
		digests, ok := s.tables[tableKey{tr.ProjectID(), tr.Digest}]
		if !ok {
			return nil, fmt.Errorf("table %s: %w", tr.Digest, tsi.ErrNotFound)
		}
		root = tableValue{project: tr.ProjectID(), digests: digests}
	case refs.CallRef:
		c, ok := s.calls[tr.ID]
		if !ok || c.ProjectID != tr.ProjectID() || c.DeletedAt != nil {
			return nil, fmt.Errorf("call %s: %w", tr.ID, tsi.ErrNotFound)
		}
		row, err := callRow(c)
		if err != nil {
			return nil, err
		}
		root = row
	default:
		return nil, fmt.Errorf("unsupported ref %T", r)
	}
	return s.walk(root, r.Extra(), hops)
}

func (s *Server) walk(v any, path []refs.Edge, hops int) (any, error) {
	for i, edge := range path {
		if str, ok := v.(string); ok && refs.IsRefURI(str) {
			nested, err := refs.Parse(str)
			if err != nil {
				return nil, err
			}
			if v, err = s.resolve(nested, hops+1); err != nil {
				return nil, err
			}
		}
		next, ok := s.step(v, edge)
		if !ok {
			return nil, fmt.Errorf("path %v: %w", path[:i+1], tsi.ErrNotFound)
		}
		v = next
	}
	return v, nil
}

func (s *Server) step(v any, edge refs.Edge) (any, bool) {
	switch edge.Type {
	case refs.EdgeKey, refs.EdgeAttr:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[edge.Token]
		return next, ok
	case refs.EdgeIndex:
		n, err := strconv.Atoi(edge.Token)
		if err != nil || n < 0 {
			return nil, false
		}
		switch tv := v.(type) {
		case []any:
			if n >= len(tv) {
				return nil, false
			}
			return tv[n], true
		case tableValue:
			if n >= len(tv.digests) {
				return nil, false
			}
			return s.rows[tableKey{tv.project, tv.digests[n]}], true
		}
	case refs.EdgeID:
		if tv, ok := v.(tableValue); ok {
			row, ok := s.rows[tableKey{tv.project, edge.Token}]
			return row, ok
		}
	}
	return nil, false
}

// materialize turns a resolved value into caller-owned JSON data.
func (s *Server) materialize(v any) any {
	if tv, ok := v.(tableValue); ok {
		rows := make([]any, len(tv.digests))
		for i, d := range tv.digests {
			rows[i] = copyValue(s.rows[tableKey{tv.project, d}])
		}
		return rows
	}
	return copyValue(v)
}
