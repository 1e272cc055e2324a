/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wandb/weave-sub006/weave/refs"
)

const maxDepth = 256

// Saver persists v as its own versioned entity when v should live as one and
// returns the resulting ref. It returns ok=false for values that stay inline.
type Saver func(v any) (ref refs.Ref, ok bool, err error)

// Mapper converts arbitrary Go values into Values.
type Mapper struct {
	// Registry holds custom serializers. Nil means DefaultRegistry().
	Registry *Registry
	// Refs is the identity side table consulted before descending into a value.
	Refs *RefCache
	// Project is "entity/project". Cached refs from another project are
	// ignored unless AllowMixedProjects is set. Empty accepts every ref.
	Project            string
	AllowMixedProjects bool
	// Save, when set, is offered every nested value before it is expanded.
	Save Saver
}

// MapToRefs converts v, replacing v itself or any nested value that already
// carries a ref (or that Save persists) with that ref. Applying it to a Value
// returns the Value unchanged.
func (m *Mapper) MapToRefs(v any) (Value, error) {
	return m.convert(v, "$", 0, true)
}

// Expand converts v like MapToRefs but always expands v itself. Nested values
// may still be replaced by refs. It produces the record of an object that is
// about to be saved.
func (m *Mapper) Expand(v any) (Value, error) {
	return m.convert(v, "$", 0, false)
}

// ToWire is Encode(MapToRefs(v)).
func (m *Mapper) ToWire(v any) (any, error) {
	val, err := m.MapToRefs(v)
	if err != nil {
		return nil, err
	}
	return Encode(val), nil
}

func (m *Mapper) registry() *Registry {
	if m.Registry != nil {
		return m.Registry
	}
	return DefaultRegistry()
}

func (m *Mapper) cachedRef(v any) (refs.Ref, bool) {
	r, ok := m.Refs.Get(v)
	if !ok {
		return nil, false
	}
	if m.Project != "" && !m.AllowMixedProjects && r.ProjectID() != m.Project {
		return nil, false
	}
	return r, true
}

func (m *Mapper) convert(v any, path string, depth int, replace bool) (Value, error) {
	if depth > maxDepth {
		return nil, &Error{Path: path, Type: reflect.TypeOf(v), Reason: "maximum nesting depth exceeded"}
	}
	switch tv := v.(type) {
	case nil:
		return Primitive{}, nil
	case Value:
		return tv, nil
	case refs.Ref:
		return RefValue{Ref: tv}, nil
	}

	if replace {
		if r, ok := m.cachedRef(v); ok {
			return RefValue{Ref: r}, nil
		}
		if m.Save != nil {
			r, ok, err := m.Save(v)
			if err != nil {
				return nil, err
			}
			if ok {
				return RefValue{Ref: r}, nil
			}
		}
	}

	if ser, ok := m.registry().Lookup(v); ok {
		payload, err := ser.Encode(v)
		if err != nil {
			return nil, &Error{Path: path, Type: reflect.TypeOf(v), Reason: err.Error()}
		}
		return Custom{Type: ser.Name, Payload: payload}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Primitive{V: rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Primitive{V: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Primitive{V: rv.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &Error{Path: path, Type: rv.Type(), Reason: "non-finite float"}
		}
		return Primitive{V: f}, nil
	case reflect.String:
		return Primitive{V: rv.String()}, nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Primitive{}, nil
		}
		return m.convert(rv.Elem().Interface(), path, depth+1, replace)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Primitive{}, nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := m.convert(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]", depth+1, true)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return Sequence{Items: items}, nil

	case reflect.Map:
		if rv.IsNil() {
			return Primitive{}, nil
		}
		entries := make([]Entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := mapKey(iter.Key())
			if err != nil {
				return nil, &Error{Path: path, Type: rv.Type(), Reason: err.Error()}
			}
			val, err := m.convert(iter.Value().Interface(), path+"."+key, depth+1, true)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Value: val})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return Mapping{Entries: entries}, nil

	case reflect.Struct:
		return m.convertStruct(rv, path, depth)
	}

	return nil, &Error{Path: path, Type: rv.Type(), Reason: fmt.Sprintf("unsupported kind %s", rv.Kind())}
}

func (m *Mapper) convertStruct(rv reflect.Value, path string, depth int) (Value, error) {
	t := rv.Type()
	if marshaler, ok := rv.Interface().(json.Marshaler); ok {
		return m.convertMarshaler(marshaler, t, path, depth)
	}

	info := fieldsOf(t)
	entries := make([]Entry, 0, len(info.fields))
	for _, f := range info.fields {
		fv, ok := fieldByIndex(rv, f.index)
		if !ok || (f.omitEmpty && fv.IsZero()) {
			continue
		}
		val, err := m.convert(fv.Interface(), path+"."+f.name, depth+1, true)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: f.name, Value: val})
	}

	if t.Name() == "" {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return Mapping{Entries: entries}, nil
	}
	return Record{Class: t.Name(), Bases: info.bases, Fields: entries}, nil
}

// convertMarshaler handles types that own their JSON form, such as SDK
// response structs.
func (m *Mapper) convertMarshaler(j json.Marshaler, t reflect.Type, path string, depth int) (Value, error) {
	raw, err := j.MarshalJSON()
	if err != nil {
		return nil, &Error{Path: path, Type: t, Reason: err.Error()}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, &Error{Path: path, Type: t, Reason: err.Error()}
	}
	val, err := m.convert(normalizeNumbers(generic), path, depth+1, true)
	if err != nil {
		return nil, err
	}
	if mapping, ok := val.(Mapping); ok && t.Name() != "" {
		return Record{Class: t.Name(), Fields: mapping.Entries}, nil
	}
	return val, nil
}

func normalizeNumbers(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i
		}
		f, _ := tv.Float64()
		return f
	case map[string]any:
		for k, e := range tv {
			tv[k] = normalizeNumbers(e)
		}
		return tv
	case []any:
		for i, e := range tv {
			tv[i] = normalizeNumbers(e)
		}
		return tv
	}
	return v
}

func mapKey(k reflect.Value) (string, error) {
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type %v", k.Type())
}

type structField struct {
	name      string
	index     []int
	omitEmpty bool
}

type structInfo struct {
	fields []structField
	bases  []string
}

var fieldCache sync.Map // reflect.Type -> *structInfo

// fieldsOf lists the exported fields of t the way encoding/json names them,
// flattening untagged embedded structs.
func fieldsOf(t reflect.Type) *structInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{}
	collectFields(t, nil, info)
	actual, _ := fieldCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

func collectFields(t reflect.Type, prefix []int, info *structInfo) {
	for i := range t.NumField() {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if sf.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			info.bases = append(info.bases, ft.Name())
			collectFields(ft, index, info)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		info.fields = append(info.fields, structField{
			name:      name,
			index:     index,
			omitEmpty: strings.Contains(opts, "omitempty"),
		})
	}
}

// fieldByIndex walks index, reporting false when it crosses a nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}
