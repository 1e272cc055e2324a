/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package serialize maps Go values onto the JSON wire format persisted by a
// trace server.
//
// Conversion happens in two steps. A Mapper turns an arbitrary value into a
// Value tree, replacing anything that already has a ref with a RefValue and
// dispatching registered types to their Serializer. Encode then renders the
// tree as wire data:
//
//	m := &serialize.Mapper{Refs: cache, Project: "acme/demo"}
//	v, err := m.MapToRefs(input)
//	if err != nil {
//		return err
//	}
//	wire := serialize.Encode(v)
//	digest, err := serialize.Digest(wire)
//
// Named structs become records carrying their type name and the names of
// embedded struct types, so two independently built but equal structs hash to
// the same digest. Functions, channels, complex numbers and non-finite floats
// are rejected with an *Error rather than encoded lossily.
package serialize
