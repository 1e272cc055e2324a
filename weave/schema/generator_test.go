/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wandb/weave-sub006/weave/schema"
)

func TestReflect(t *testing.T) {
	type nested struct {
		Value string `json:"value" jsonschema:"description=Nested value"`
	}
	type sample struct {
		Name   string  `json:"name" jsonschema:"description=Name"`
		Count  int     `json:"count,omitempty"`
		Nested *nested `json:"nested,omitempty"`
	}

	s := schema.Reflect(&sample{})
	if s == nil {
		t.Fatal("expected schema")
	}

	if len(s.Required) != 1 || s.Required[0] != "name" {
		t.Fatalf("unexpected required: %#v", s.Required)
	}

	name, ok := s.Properties.Get("name")
	if !ok {
		t.Fatal("missing name property")
	}
	if name.Description != "Name" {
		t.Fatalf("unexpected description: %q", name.Description)
	}

	nestedSchema, ok := s.Properties.Get("nested")
	if !ok {
		t.Fatal("missing nested property")
	}
	valueSchema, ok := nestedSchema.Properties.Get("value")
	if !ok {
		t.Fatal("missing nested value property")
	}
	if valueSchema.Description != "Nested value" {
		t.Fatalf("unexpected nested description: %q", valueSchema.Description)
	}
}

func TestReflectNonStruct(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{{
		name: "string",
		typ:  reflect.TypeFor[string](),
		want: "string",
	}, {
		name: "pointer to int",
		typ:  reflect.TypeFor[*int](),
		want: "integer",
	}, {
		name: "slice",
		typ:  reflect.TypeFor[[]float64](),
		want: "array",
	}, {
		name: "anonymous struct",
		typ:  reflect.TypeFor[struct{ A string }](),
		want: "object",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schema.NewGenerator().ReflectFromType(tt.typ)
			if s == nil {
				t.Fatal("expected schema")
			}
			if s.Type != tt.want {
				t.Errorf("type: got = %q, wanted = %q", s.Type, tt.want)
			}
		})
	}

	if got := schema.Reflect("text").Type; got != "string" {
		t.Errorf("Reflect(string) type: got = %q, wanted = string", got)
	}
}

func TestSignatureFor(t *testing.T) {
	type scoreArgs struct {
		Expected string `json:"expected"`
		Output   string `json:"output"`
		Strict   bool   `json:"strict,omitempty"`
	}
	// An alias keeps the struct unnamed.
	type promptArgs = struct {
		Prompt string `json:"prompt"`
	}

	tests := []struct {
		name string
		typ  reflect.Type
		want schema.Signature
	}{{
		name: "struct",
		typ:  reflect.TypeFor[scoreArgs](),
		want: schema.Signature{
			Params:   []string{"expected", "output", "strict"},
			Required: []string{"expected", "output"},
		},
	}, {
		name: "pointer to struct",
		typ:  reflect.TypeFor[*scoreArgs](),
		want: schema.Signature{
			Params:   []string{"expected", "output", "strict"},
			Required: []string{"expected", "output"},
		},
	}, {
		name: "map",
		typ:  reflect.TypeFor[map[string]any](),
		want: schema.Signature{Variadic: true},
	}, {
		name: "scalar",
		typ:  reflect.TypeFor[string](),
		want: schema.Signature{
			Params:   []string{schema.SingleParam},
			Required: []string{schema.SingleParam},
			Single:   true,
		},
	}, {
		name: "anonymous struct",
		typ:  reflect.TypeFor[promptArgs](),
		want: schema.Signature{
			Params:   []string{"prompt"},
			Required: []string{"prompt"},
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schema.SignatureFor(tt.typ)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(schema.Signature{}, "Schema")); diff != "" {
				t.Errorf("SignatureFor() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSignatureHas(t *testing.T) {
	type args struct {
		A int `json:"a"`
	}
	sig := schema.SignatureOf[args]()
	if !sig.Has("a") {
		t.Error("Has(a): got = false, wanted = true")
	}
	if sig.Has("b") {
		t.Error("Has(b): got = true, wanted = false")
	}
	if !schema.SignatureOf[map[string]any]().Has("anything") {
		t.Error("variadic Has: got = false, wanted = true")
	}
}
