/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"reflect"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"
)

// SingleParam names the parameter of an op whose input is not a struct or map.
const SingleParam = "input"

// Signature describes the named parameters an op accepts.
type Signature struct {
	// Params lists parameter names in declaration order.
	Params []string
	// Required lists the parameters a caller must supply.
	Required []string
	// Variadic is set for map inputs, which accept any keys.
	Variadic bool
	// Single is set when the whole input binds to the SingleParam parameter.
	Single bool
	// Schema is the reflected input schema. It is nil for variadic inputs.
	Schema *jsonschema.Schema
}

// Has reports whether name is a declared parameter.
func (s Signature) Has(name string) bool {
	return s.Variadic || slices.Contains(s.Params, name)
}

// IsRequired reports whether name must be supplied.
func (s Signature) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

var signatures sync.Map // reflect.Type -> Signature

// SignatureFor derives the signature of an op taking values of type t.
// Struct inputs (or pointers to them) expose their JSON fields as
// parameters, maps keyed by string are variadic and anything else is a
// single required parameter.
func SignatureFor(t reflect.Type) Signature {
	if cached, ok := signatures.Load(t); ok {
		return cached.(Signature)
	}
	sig := derive(t)
	signatures.Store(t, sig)
	return sig
}

// SignatureOf is SignatureFor the type argument.
func SignatureOf[T any]() Signature {
	return SignatureFor(reflect.TypeFor[T]())
}

func derive(t reflect.Type) Signature {
	if t == nil {
		return Signature{Variadic: true}
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch {
	case base.Kind() == reflect.Map && base.Key().Kind() == reflect.String:
		return Signature{Variadic: true}
	case base.Kind() == reflect.Interface:
		return Signature{Variadic: true}
	case base.Kind() != reflect.Struct:
		return Signature{
			Params:   []string{SingleParam},
			Required: []string{SingleParam},
			Single:   true,
			Schema:   NewGenerator().ReflectFromType(base),
		}
	}

	s := NewGenerator().ReflectFromType(base)
	sig := Signature{Schema: s, Required: slices.Clone(s.Required)}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			sig.Params = append(sig.Params, pair.Key)
		}
	}
	return sig
}
