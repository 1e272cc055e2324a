/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import "reflect"

// StructFields lists the fields of a struct (or pointer to one) under their
// JSON names, in declaration order, with the original Go values. It reports
// false for anything else, including nil pointers.
func StructFields(v any) (names []string, values map[string]any, ok bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, nil, false
	}
	info := fieldsOf(rv.Type())
	values = make(map[string]any, len(info.fields))
	for _, f := range info.fields {
		fv, ok := fieldByIndex(rv, f.index)
		if !ok || (f.omitEmpty && fv.IsZero()) {
			continue
		}
		names = append(names, f.name)
		values[f.name] = fv.Interface()
	}
	return names, values, true
}
