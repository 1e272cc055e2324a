/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"maps"
	"slices"
	"strings"

	"github.com/wandb/weave-sub006/weave/serialize"
)

// Redacted replaces the value of every sensitive key.
const Redacted = "REDACTED"

var defaultRedactKeys = []string{"api_key", "auth_headers", "authorization"}

// redactor scrubs sensitive keys from mapped values. It runs after
// MapToRefs, so typed maps and struct fields are covered the same way as
// map[string]any, and values already stored under a ref are left alone.
type redactor struct {
	keys map[string]struct{}
}

func newRedactor(extra []string) *redactor {
	r := &redactor{keys: make(map[string]struct{})}
	for _, k := range slices.Concat(defaultRedactKeys, extra) {
		if k = strings.TrimSpace(k); k != "" {
			r.keys[strings.ToLower(k)] = struct{}{}
		}
	}
	return r
}

func (r *redactor) sensitive(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// redact returns v with the values of sensitive Mapping keys and Record
// fields replaced, and whether anything changed. Nothing reachable from v
// is modified; changed containers are copied.
func (r *redactor) redact(v serialize.Value) (serialize.Value, bool) {
	switch tv := v.(type) {
	case serialize.Mapping:
		entries, changed := r.redactEntries(tv.Entries)
		if !changed {
			return tv, false
		}
		return serialize.Mapping{Entries: entries}, true

	case serialize.Record:
		fields, changed := r.redactEntries(tv.Fields)
		if !changed {
			return tv, false
		}
		return serialize.Record{Class: tv.Class, Bases: tv.Bases, Fields: fields}, true

	case serialize.Sequence:
		var out []serialize.Value
		for i, item := range tv.Items {
			nv, changed := r.redact(item)
			if !changed {
				continue
			}
			if out == nil {
				out = slices.Clone(tv.Items)
			}
			out[i] = nv
		}
		if out == nil {
			return tv, false
		}
		return serialize.Sequence{Items: out}, true
	}
	return v, false
}

func (r *redactor) redactEntries(entries []serialize.Entry) ([]serialize.Entry, bool) {
	var out []serialize.Entry
	for i, e := range entries {
		nv, changed := r.redactEntry(e)
		if !changed {
			continue
		}
		if out == nil {
			out = slices.Clone(entries)
		}
		out[i].Value = nv
	}
	if out == nil {
		return entries, false
	}
	return out, true
}

func (r *redactor) redactEntry(e serialize.Entry) (serialize.Value, bool) {
	if _, ok := e.Value.(serialize.RefValue); ok {
		return e.Value, false
	}
	if r.sensitive(e.Key) {
		return serialize.Primitive{V: Redacted}, true
	}
	return r.redact(e.Value)
}

// redactInputs scrubs the mapped inputs of a call. It returns the redacted
// mapping and the in-memory inputs with every changed top-level value
// replaced by its redacted wire form.
func (r *redactor) redactInputs(inputs map[string]any, mapped serialize.Value) (map[string]any, serialize.Value) {
	m, ok := mapped.(serialize.Mapping)
	if !ok {
		redacted, _ := r.redact(mapped)
		return inputs, redacted
	}
	var out map[string]any
	entries := m.Entries
	for i, e := range m.Entries {
		nv, changed := r.redactEntry(e)
		if !changed {
			continue
		}
		if out == nil {
			out = maps.Clone(inputs)
			entries = slices.Clone(m.Entries)
		}
		entries[i].Value = nv
		out[e.Key] = serialize.Encode(nv)
	}
	if out == nil {
		return inputs, mapped
	}
	return out, serialize.Mapping{Entries: entries}
}
