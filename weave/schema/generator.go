/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with project defaults.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator wired with the defaults we need for op
// signatures: every field without omitempty is a required parameter.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			ExpandedStruct:            true,
			AllowAdditionalProperties: true,
			DoNotReference:            true,
		},
	}
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.ReflectFromType(reflect.TypeOf(v))
}

// ReflectFromType returns the JSON schema for t. Only named structs have a
// definition to expand; every other type is reflected inline.
func (g *Generator) ReflectFromType(t reflect.Type) *jsonschema.Schema {
	if t == nil {
		return &jsonschema.Schema{}
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Struct && base.Name() != "" {
		return g.reflector.ReflectFromType(t)
	}
	r := g.reflector
	r.ExpandedStruct = false
	return r.ReflectFromType(t)
}

// Reflect derives the JSON schema for the provided value using a default generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ReflectType allocates a zero value of T and reflects it to a schema.
func ReflectType[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}
