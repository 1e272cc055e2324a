/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/serialize"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// Object is implemented by values that are published as their own versioned
// objects whenever they appear in call inputs or outputs, so calls refer to
// them by ref instead of embedding them.
type Object interface {
	ObjectName() string
}

// opTypeName is the custom type name of persisted op definitions.
const opTypeName = "Op"

// saver publishes the values that live as their own versions: tables, ops
// and Objects.
func (c *Client) saver(ctx context.Context) serialize.Saver {
	return func(v any) (refs.Ref, bool, error) {
		switch tv := v.(type) {
		case *Call:
			return tv.Ref(), true, nil
		case *Table:
			r, err := c.SaveTable(ctx, tv)
			return r, err == nil, err
		case Runnable:
			r, err := c.SaveOp(ctx, tv)
			return r, err == nil, err
		case Object:
			r, err := c.Publish(ctx, v, tv.ObjectName())
			return r, err == nil, err
		}
		return nil, false, nil
	}
}

// Publish stores v as a new version of the object name and returns its ref.
// An empty name is taken from an Object's ObjectName or derived from v's
// type. Publishing a value that already carries a ref to the same name in
// this project returns that ref without storing anything; equal content
// always yields the same digest.
func (c *Client) Publish(ctx context.Context, v any, name string) (refs.ObjectRef, error) {
	if name == "" {
		name = defaultObjectName(v)
	}
	name, err := refs.SanitizeName(name)
	if err != nil {
		return refs.ObjectRef{}, err
	}
	if r, ok := c.refs.Get(v); ok {
		if or, ok := r.(refs.ObjectRef); ok && or.Name == name && len(or.Path) == 0 &&
			(or.ProjectID() == c.ProjectID() || c.settings.AllowMixedProjectRefs) {
			return or, nil
		}
	}

	val, err := c.mapper(ctx).Expand(v)
	if err != nil {
		return refs.ObjectRef{}, fmt.Errorf("publish %s: %w", name, err)
	}
	res, err := c.server.ObjCreate(ctx, &tsi.ObjCreateReq{Obj: tsi.ObjSchemaForInsert{
		ProjectID: c.ProjectID(),
		ObjectID:  name,
		Val:       serialize.Encode(val),
	}})
	if err != nil {
		return refs.ObjectRef{}, fmt.Errorf("publish %s: %w", name, err)
	}
	ref := refs.NewObjectRef(c.entity, c.project, name, res.Digest)
	c.refs.Set(v, ref)
	return ref, nil
}

// SaveOp publishes the definition of op and returns its ref. Definitions
// are cached per op value.
func (c *Client) SaveOp(ctx context.Context, op Runnable) (refs.OpRef, error) {
	if r, ok := c.refs.Get(op); ok {
		if or, ok := r.(refs.OpRef); ok && or.ProjectID() == c.ProjectID() {
			return or, nil
		}
	}
	name, err := refs.SanitizeName(op.Name())
	if err != nil {
		return refs.OpRef{}, err
	}
	payload, err := jsonSafe(op.Definition())
	if err != nil {
		return refs.OpRef{}, fmt.Errorf("save op %s: %w", name, err)
	}
	res, err := c.server.ObjCreate(ctx, &tsi.ObjCreateReq{Obj: tsi.ObjSchemaForInsert{
		ProjectID: c.ProjectID(),
		ObjectID:  name,
		Val:       serialize.Encode(serialize.Custom{Type: opTypeName, Payload: payload}),
	}})
	if err != nil {
		return refs.OpRef{}, fmt.Errorf("save op %s: %w", name, err)
	}
	ref := refs.NewOpRef(c.entity, c.project, name, res.Digest)
	c.refs.Set(op, ref)
	return ref, nil
}

// RefOf returns the ref v was last published under by this client.
func (c *Client) RefOf(v any) (refs.Ref, bool) {
	return c.refs.Get(v)
}

// Get reads the value a ref points at, following its extra path. Refs
// nested in the value are returned as refs.Ref values and custom types
// are decoded through the client's registry.
func (c *Client) Get(ctx context.Context, ref refs.Ref) (any, error) {
	res, err := c.server.RefsReadBatch(ctx, &tsi.RefsReadBatchReq{Refs: []string{ref.URI()}})
	if err != nil {
		return nil, notFound("get "+ref.URI(), err)
	}
	if len(res.Vals) != 1 {
		return nil, fmt.Errorf("get %s: got %d values, wanted 1", ref.URI(), len(res.Vals))
	}
	return c.fromWire(res.Vals[0])
}

// ObjectVersion describes one stored version of an object.
type ObjectVersion struct {
	Ref       refs.ObjectRef
	Index     int
	Latest    bool
	Kind      string
	Class     string
	CreatedAt time.Time
}

// GetObjectVersions lists the versions of the object name, oldest first.
func (c *Client) GetObjectVersions(ctx context.Context, name string) ([]ObjectVersion, error) {
	name, err := refs.SanitizeName(name)
	if err != nil {
		return nil, err
	}
	res, err := c.server.ObjsQuery(ctx, &tsi.ObjQueryReq{
		ProjectID: c.ProjectID(),
		Filter:    &tsi.ObjectVersionFilter{ObjectIDs: []string{name}},
	})
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", name, err)
	}
	if len(res.Objs) == 0 {
		return nil, fmt.Errorf("list versions of %s: %w", name, ErrNotFound)
	}
	out := make([]ObjectVersion, 0, len(res.Objs))
	for _, o := range res.Objs {
		out = append(out, ObjectVersion{
			Ref:       refs.NewObjectRef(c.entity, c.project, o.ObjectID, o.Digest),
			Index:     o.VersionIndex,
			Latest:    o.IsLatest == 1,
			Kind:      o.Kind,
			Class:     o.BaseObjectClass,
			CreatedAt: o.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b ObjectVersion) int { return cmp.Compare(a.Index, b.Index) })
	return out, nil
}

func defaultObjectName(v any) string {
	if o, ok := v.(Object); ok {
		return o.ObjectName()
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "object"
	}
	return t.Name()
}

// jsonSafe converts v into plain JSON data.
func jsonSafe(v any) (any, error) {
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
