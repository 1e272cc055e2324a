/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"reflect"
	"slices"

	"github.com/wandb/weave-sub006/weave/serialize"
)

// Summary keys.
const (
	TrueCount    = "true_count"
	TrueFraction = "true_fraction"
	Mean         = "mean"
)

// AutoSummarize aggregates a column of results:
//   - booleans become {"true_count", "true_fraction"}
//   - numbers become {"mean"}
//   - mappings and structs are summarized per key
//
// Nil entries are ignored. Anything else, or a column mixing kinds, has no
// summary and yields nil.
func AutoSummarize(values []any) any {
	vals := make([]any, 0, len(values))
	for _, v := range values {
		if v = normalize(v); v != nil {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}

	switch vals[0].(type) {
	case bool:
		var n int64
		for _, v := range vals {
			b, ok := v.(bool)
			if !ok {
				return nil
			}
			if b {
				n++
			}
		}
		return map[string]any{TrueCount: n, TrueFraction: float64(n) / float64(len(vals))}

	case float64:
		var sum float64
		for _, v := range vals {
			f, ok := v.(float64)
			if !ok {
				return nil
			}
			sum += f
		}
		return map[string]any{Mean: sum / float64(len(vals))}

	case map[string]any:
		var keys []string
		for _, v := range vals {
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			for k := range m {
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			column := make([]any, 0, len(vals))
			for _, v := range vals {
				column = append(column, v.(map[string]any)[k])
			}
			if s := AutoSummarize(column); s != nil {
				out[k] = s
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

// normalize maps every number to float64 and every struct to its field
// mapping, so a column can be summarized without caring about Go types.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	switch tv := v.(type) {
	case bool, map[string]any:
		return tv
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		for iter := rv.MapRange(); iter.Next(); {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m
	}
	if _, fields, ok := serialize.StructFields(v); ok {
		return fields
	}
	return v
}

// gradeOf converts a scorer result into a grade.
func gradeOf(v any) (float64, bool) {
	switch tv := normalize(v).(type) {
	case bool:
		if tv {
			return 1, true
		}
		return 0, true
	case float64:
		return tv, true
	}
	return 0, false
}
