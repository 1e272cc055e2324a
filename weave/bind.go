/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/wandb/weave-sub006/weave/schema"
	"github.com/wandb/weave-sub006/weave/serialize"
)

// bindArgs binds named arguments onto a value of type T according to sig.
// Unknown names and missing required parameters are reported as an
// *OpCallError before anything is converted.
func bindArgs[T any](op string, sig schema.Signature, args map[string]any) (T, error) {
	var zero T
	if !sig.Variadic {
		var unknown, missing []string
		for k := range args {
			if !sig.Has(k) {
				unknown = append(unknown, k)
			}
		}
		for _, p := range sig.Required {
			if _, ok := args[p]; !ok {
				missing = append(missing, p)
			}
		}
		if len(unknown) > 0 || len(missing) > 0 {
			sort.Strings(unknown)
			sort.Strings(missing)
			return zero, &OpCallError{Op: op, Missing: missing, Unknown: unknown}
		}
	}

	switch {
	case sig.Single:
		v, err := convertTo[T](args[schema.SingleParam])
		if err != nil {
			return zero, &OpCallError{Op: op, Reason: err.Error()}
		}
		return v, nil
	case sig.Variadic:
		v, err := convertTo[T](maps.Clone(args))
		if err != nil {
			return zero, &OpCallError{Op: op, Reason: err.Error()}
		}
		return v, nil
	}

	t := reflect.TypeFor[T]()
	ptr := reflect.New(t)
	target := ptr.Elem()
	for target.Kind() == reflect.Pointer {
		target.Set(reflect.New(target.Type().Elem()))
		target = target.Elem()
	}
	for name, v := range args {
		field, ok := fieldByJSONName(target, name)
		if !ok {
			return zero, &OpCallError{Op: op, Unknown: []string{name}}
		}
		if err := assign(field, v); err != nil {
			return zero, &OpCallError{Op: op, Reason: "argument " + name + ": " + err.Error()}
		}
	}
	return ptr.Elem().Interface().(T), nil
}

// convertTo returns v as a T, converting through JSON when v has another type.
func convertTo[T any](v any) (T, error) {
	if tv, ok := v.(T); ok {
		return tv, nil
	}
	var out T
	if v == nil {
		return out, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

// assign stores v into field, converting through JSON when the types differ.
func assign(field reflect.Value, v any) error {
	if v == nil {
		field.SetZero()
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, field.Addr().Interface())
}

// fieldByJSONName finds the field encoding/json would use for name,
// descending into untagged embedded structs.
func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		tagName, _, _ := strings.Cut(tag, ",")
		fv := v.Field(i)
		if sf.Anonymous && tagName == "" {
			if fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct {
				if fv.IsNil() {
					if !fv.CanSet() {
						continue
					}
					fv.Set(reflect.New(fv.Type().Elem()))
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if f, ok := fieldByJSONName(fv, name); ok {
					return f, true
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if tagName == "" {
			tagName = sf.Name
		}
		if tagName == name {
			return fv, fv.CanSet()
		}
	}
	return reflect.Value{}, false
}

// inputsOf names the parts of an op's input the way bindArgs accepts them.
func inputsOf(sig schema.Signature, in any) map[string]any {
	switch {
	case sig.Single:
		return map[string]any{schema.SingleParam: in}
	case sig.Variadic:
		if m, ok := in.(map[string]any); ok {
			return maps.Clone(m)
		}
		rv := reflect.ValueOf(in)
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().Interface()
			}
			return out
		}
		if in == nil {
			return map[string]any{}
		}
		return map[string]any{schema.SingleParam: in}
	}
	_, values, ok := serialize.StructFields(in)
	if !ok {
		return map[string]any{}
	}
	return values
}

// missingParams lists the required parameters of sig absent from args.
func missingParams(sig schema.Signature, args map[string]any) []string {
	var out []string
	for _, p := range sig.Required {
		if _, ok := args[p]; !ok {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}
