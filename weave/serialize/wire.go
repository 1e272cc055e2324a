/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"fmt"

	"github.com/wandb/weave-sub006/weave/refs"
)

// Wire envelope keys.
const (
	TypeKey       = "_type"
	ClassNameKey  = "_class_name"
	BasesKey      = "_bases"
	CustomType    = "CustomWeaveType"
	WeaveTypeKey  = "weave_type"
	CustomValKey  = "val"
	weaveTypeName = "type"
)

// Encode renders v in the JSON wire format. Records carry their class name
// and bases, custom values use the CustomWeaveType envelope and refs become
// their URI strings.
func Encode(v Value) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case Primitive:
		return tv.V
	case Sequence:
		out := make([]any, len(tv.Items))
		for i, item := range tv.Items {
			out[i] = Encode(item)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(tv.Entries))
		for _, e := range tv.Entries {
			out[e.Key] = Encode(e.Value)
		}
		return out
	case Record:
		out := make(map[string]any, len(tv.Fields)+3)
		for _, e := range tv.Fields {
			out[e.Key] = Encode(e.Value)
		}
		bases := make([]any, len(tv.Bases))
		for i, b := range tv.Bases {
			bases[i] = b
		}
		out[TypeKey] = tv.Class
		out[ClassNameKey] = tv.Class
		out[BasesKey] = bases
		return out
	case RefValue:
		return tv.Ref.URI()
	case Custom:
		return map[string]any{
			TypeKey:      CustomType,
			WeaveTypeKey: map[string]any{weaveTypeName: tv.Type},
			CustomValKey: tv.Payload,
		}
	}
	panic(fmt.Sprintf("serialize: unknown Value %T", v))
}

// Plain renders v as plain JSON-safe data: records become field maps, refs
// become URI strings and custom values collapse to their payload.
func Plain(v Value) any {
	switch tv := v.(type) {
	case Sequence:
		out := make([]any, len(tv.Items))
		for i, item := range tv.Items {
			out[i] = Plain(item)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(tv.Entries))
		for _, e := range tv.Entries {
			out[e.Key] = Plain(e.Value)
		}
		return out
	case Record:
		out := make(map[string]any, len(tv.Fields))
		for _, e := range tv.Fields {
			out[e.Key] = Plain(e.Value)
		}
		return out
	case Custom:
		return tv.Payload
	}
	return Encode(v)
}

// FromWire rebuilds Go values from wire data: ref URI strings become
// refs.Ref values and CustomWeaveType envelopes are decoded through reg.
// Envelopes of unknown custom types and records are returned as maps.
func FromWire(wire any, reg *Registry) (any, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	switch tv := wire.(type) {
	case string:
		if refs.IsRefURI(tv) {
			if r, err := refs.Parse(tv); err == nil {
				return r, nil
			}
		}
		return tv, nil
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			v, err := FromWire(item, reg)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		if name, ok := CustomTypeName(tv); ok {
			if ser, ok := reg.ByName(name); ok {
				v, err := ser.Decode(tv[CustomValKey])
				if err != nil {
					return nil, fmt.Errorf("decode %s: %w", name, err)
				}
				return v, nil
			}
			return tv, nil
		}
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			v, err := FromWire(item, reg)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return wire, nil
}

// CustomTypeName reports the weave_type name of a custom envelope.
func CustomTypeName(m map[string]any) (string, bool) {
	if m[TypeKey] != CustomType {
		return "", false
	}
	wt, ok := m[WeaveTypeKey].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := wt[weaveTypeName].(string)
	return name, ok
}

// ClassName reports the record class of a wire map.
func ClassName(m map[string]any) (string, bool) {
	name, ok := m[ClassNameKey].(string)
	return name, ok
}
