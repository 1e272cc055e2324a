/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/wandb/weave-sub006/weave/serialize"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// opTypeName is the custom type name of persisted op definitions.
const opTypeName = "Op"

// ObjCreate implements tsi.TraceServer. Storing content identical to an
// existing version returns that version's digest.
func (s *Server) ObjCreate(_ context.Context, req *tsi.ObjCreateReq) (*tsi.ObjCreateRes, error) {
	obj := req.Obj
	if obj.ProjectID == "" || obj.ObjectID == "" {
		return nil, fmt.Errorf("obj create: project_id and object_id are required")
	}
	val, err := normalize(obj.Val)
	if err != nil {
		return nil, fmt.Errorf("obj create %s: %w", obj.ObjectID, err)
	}
	digest, err := serialize.Digest(val)
	if err != nil {
		return nil, fmt.Errorf("obj create %s: %w", obj.ObjectID, err)
	}

	kind, class := tsi.KindObject, ""
	if m, ok := val.(map[string]any); ok {
		if name, ok := serialize.CustomTypeName(m); ok && name == opTypeName {
			kind = tsi.KindOp
		} else if name, ok := serialize.ClassName(m); ok {
			class = name
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := objectKey{obj.ProjectID, obj.ObjectID}
	versions := s.objects[key]
	if slices.ContainsFunc(versions, func(v *tsi.ObjSchema) bool { return v.Digest == digest }) {
		return &tsi.ObjCreateRes{Digest: digest}, nil
	}
	for _, v := range versions {
		v.IsLatest = 0
	}
	s.objects[key] = append(versions, &tsi.ObjSchema{
		ProjectID:       obj.ProjectID,
		ObjectID:        obj.ObjectID,
		CreatedAt:       s.now(),
		Digest:          digest,
		VersionIndex:    len(versions),
		IsLatest:        1,
		Kind:            kind,
		BaseObjectClass: class,
		Val:             val,
	})
	return &tsi.ObjCreateRes{Digest: digest}, nil
}

// ObjRead implements tsi.TraceServer. Digest may also be "latest" or a
// version alias such as "v2".
func (s *Server) ObjRead(_ context.Context, req *tsi.ObjReadReq) (*tsi.ObjReadRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.findObject(req.ProjectID, req.ObjectID, req.Digest)
	if err != nil {
		return nil, err
	}
	return &tsi.ObjReadRes{Obj: copyObj(v)}, nil
}

func (s *Server) findObject(project, id, digest string) (*tsi.ObjSchema, error) {
	versions := s.objects[objectKey{project, id}]
	if len(versions) > 0 {
		switch {
		case digest == "latest":
			return versions[len(versions)-1], nil
		case strings.HasPrefix(digest, "v"):
			if n, err := strconv.Atoi(digest[1:]); err == nil && n >= 0 && n < len(versions) {
				return versions[n], nil
			}
		}
		for _, v := range versions {
			if v.Digest == digest {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("object %s:%s in %s: %w", id, digest, project, tsi.ErrNotFound)
}

// ObjsQuery implements tsi.TraceServer.
func (s *Server) ObjsQuery(_ context.Context, req *tsi.ObjQueryReq) (*tsi.ObjQueryRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*tsi.ObjSchema
	for key, versions := range s.objects {
		if key.project != req.ProjectID {
			continue
		}
		for _, v := range versions {
			if matchObject(v, req.Filter) {
				matched = append(matched, v)
			}
		}
	}
	slices.SortFunc(matched, func(a, b *tsi.ObjSchema) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(a.ObjectID, b.ObjectID); c != 0 {
			return c
		}
		return a.VersionIndex - b.VersionIndex
	})
	matched = window(matched, req.Offset, req.Limit)

	res := &tsi.ObjQueryRes{Objs: make([]tsi.ObjSchema, 0, len(matched))}
	for _, v := range matched {
		res.Objs = append(res.Objs, copyObj(v))
	}
	return res, nil
}

func matchObject(v *tsi.ObjSchema, f *tsi.ObjectVersionFilter) bool {
	if f == nil {
		return true
	}
	if len(f.ObjectIDs) > 0 && !slices.Contains(f.ObjectIDs, v.ObjectID) {
		return false
	}
	if len(f.BaseObjectClasses) > 0 && !slices.Contains(f.BaseObjectClasses, v.BaseObjectClass) {
		return false
	}
	if f.IsOp != nil && *f.IsOp != (v.Kind == tsi.KindOp) {
		return false
	}
	if f.LatestOnly != nil && *f.LatestOnly && v.IsLatest != 1 {
		return false
	}
	return true
}

func copyObj(v *tsi.ObjSchema) tsi.ObjSchema {
	out := *v
	out.Val = copyValue(v.Val)
	return out
}

// TableCreate implements tsi.TraceServer.
func (s *Server) TableCreate(_ context.Context, req *tsi.TableCreateReq) (*tsi.TableCreateRes, error) {
	project := req.Table.ProjectID
	if project == "" {
		return nil, fmt.Errorf("table create: project_id is required")
	}
	digests := make([]string, len(req.Table.Rows))
	vals := make([]any, len(req.Table.Rows))
	for i, row := range req.Table.Rows {
		val, err := normalize(row)
		if err != nil {
			return nil, fmt.Errorf("table create row %d: %w", i, err)
		}
		d, err := serialize.Digest(val)
		if err != nil {
			return nil, fmt.Errorf("table create row %d: %w", i, err)
		}
		digests[i], vals[i] = d, val
	}
	digest := serialize.TableDigest(digests)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range digests {
		s.rows[tableKey{project, d}] = vals[i]
	}
	s.tables[tableKey{project, digest}] = digests
	return &tsi.TableCreateRes{Digest: digest, RowDigests: slices.Clone(digests)}, nil
}

// TableQuery implements tsi.TraceServer.
func (s *Server) TableQuery(_ context.Context, req *tsi.TableQueryReq) (*tsi.TableQueryRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digests, ok := s.tables[tableKey{req.ProjectID, req.Digest}]
	if !ok {
		return nil, fmt.Errorf("table %s in %s: %w", req.Digest, req.ProjectID, tsi.ErrNotFound)
	}
	page := window(digests, req.Offset, req.Limit)
	res := &tsi.TableQueryRes{Rows: make([]tsi.TableRowSchema, 0, len(page))}
	for _, d := range page {
		res.Rows = append(res.Rows, tsi.TableRowSchema{
			Digest: d,
			Val:    copyValue(s.rows[tableKey{req.ProjectID, d}]),
		})
	}
	return res, nil
}
