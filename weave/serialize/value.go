/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"github.com/wandb/weave-sub006/weave/refs"
)

// Value is the closed set of shapes a traced value takes once mapped.
// The concrete types are Primitive, Sequence, Mapping, Record, RefValue
// and Custom.
type Value interface {
	isValue()
}

// Primitive holds nil, bool, int64, uint64, float64 or string.
type Primitive struct {
	V any
}

// Sequence is an ordered list of values.
type Sequence struct {
	Items []Value
}

// Entry is one key/value pair of a Mapping or one field of a Record.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is a string-keyed map. Entries are sorted by key.
type Mapping struct {
	Entries []Entry
}

// Record is the canonical structural form of a named struct: its type name,
// the names of embedded struct types and its fields in declaration order.
type Record struct {
	Class  string
	Bases  []string
	Fields []Entry
}

// RefValue stands in for a value that already has a persisted ref.
type RefValue struct {
	Ref refs.Ref
}

// Custom is a value encoded by a registered Serializer.
type Custom struct {
	Type    string
	Payload any
}

func (Primitive) isValue() {}
func (Sequence) isValue()  {}
func (Mapping) isValue()   {}
func (Record) isValue()    {}
func (RefValue) isValue()  {}
func (Custom) isValue()    {}

// Field returns the value of the named field and whether it exists.
func (r Record) Field(name string) (Value, bool) {
	for _, e := range r.Fields {
		if e.Key == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Get returns the value stored under key and whether it exists.
func (m Mapping) Get(key string) (Value, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
