/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package refs

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestURIRoundTrip(t *testing.T) {
	obj := NewObjectRef("acme", "agents", "my model", "abc123")
	tests := []struct {
		name string
		ref  Ref
		want string
	}{{
		name: "object",
		ref:  NewObjectRef("acme", "agents", "Dataset", "d1gest"),
		want: "weave:///acme/agents/object/Dataset:d1gest",
	}, {
		name: "object name needing escapes",
		ref:  obj,
		want: "weave:///acme/agents/object/my%20model:abc123",
	}, {
		name: "object with extra",
		ref:  obj.WithKey("a/b").WithIndex(3).WithAttr("field"),
		want: "weave:///acme/agents/object/my%20model:abc123/key/a%2Fb/ndx/3/atr/field",
	}, {
		name: "op",
		ref:  NewOpRef("acme", "agents", "predict", "xyz"),
		want: "weave:///acme/agents/op/predict:xyz",
	}, {
		name: "table row",
		ref:  NewTableRef("acme", "agents", "tbl").WithItem("row1"),
		want: "weave:///acme/agents/table/tbl/id/row1",
	}, {
		name: "call",
		ref:  NewCallRef("acme", "agents", "0192-abc"),
		want: "weave:///acme/agents/call/0192-abc",
	}, {
		name: "call with extra",
		ref:  NewCallRef("acme", "agents", "c1").WithExtra(Edge{EdgeKey, "output"}),
		want: "weave:///acme/agents/call/c1/key/output",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.URI(); got != tt.want {
				t.Errorf("URI: got = %q, wanted = %q", got, tt.want)
			}
			parsed, err := Parse(tt.ref.URI())
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.ref, parsed, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse(URI()) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptyExtraRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		ref  Ref
	}{{
		name: "object",
		ref:  NewObjectRef("acme", "agents", "cfg", "abc").WithExtra(),
	}, {
		name: "op",
		ref:  NewOpRef("acme", "agents", "predict", "xyz").WithExtra(),
	}, {
		name: "call",
		ref:  NewCallRef("acme", "agents", "c1").WithExtra(),
	}, {
		name: "unicode name",
		ref:  NewObjectRef("acme", "agents", "модель.v2", "abc").WithExtra(),
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.ref.URI())
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.ref, parsed); diff != "" {
				t.Errorf("Parse(URI()) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, uri := range []string{
		"",
		"wandb-artifact:///acme/agents/object/x:1",
		"weave:///acme/agents",
		"weave:///acme/agents/widget/x:1",
		"weave:///acme/agents/object/nodigest",
		"weave:///acme/agents/object/x:1/key",
		"weave:///acme/agents/object/x:1/bogus/a",
		"weave:///acme/agents/table/",
	} {
		if _, err := Parse(uri); !errors.Is(err, ErrInvalidURI) {
			t.Errorf("Parse(%q): got = %v, wanted = ErrInvalidURI", uri, err)
		}
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	base := NewObjectRef("e", "p", "n", "d").WithKey("a")
	left := base.WithKey("left")
	right := base.WithKey("right")

	if got := len(base.Path); got != 1 {
		t.Errorf("base path length: got = %d, wanted = 1", got)
	}
	if left.Path[1].Token != "left" || right.Path[1].Token != "right" {
		t.Errorf("siblings share storage: left = %v, right = %v", left.Path, right.Path)
	}
}

func TestIsDescendedFrom(t *testing.T) {
	root := NewObjectRef("e", "p", "n", "d")
	child := root.WithKey("a")
	grandchild := child.WithIndex(0)
	other := NewObjectRef("e", "p", "n", "other").WithKey("a")

	tests := []struct {
		name  string
		r, of ObjectRef
		want  bool
	}{
		{"child of root", child, root, true},
		{"grandchild of root", grandchild, root, true},
		{"grandchild of child", grandchild, child, true},
		{"self is not strict", child, child, false},
		{"root of child", root, child, false},
		{"different digest", other, root, false},
		{"diverging path", root.WithKey("b").WithIndex(0), child, false},
	}
	for _, tt := range tests {
		if got := tt.r.IsDescendedFrom(tt.of); got != tt.want {
			t.Errorf("%s: got = %v, wanted = %v", tt.name, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"my dataset", "my-dataset"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"a//b::c", "a-b-c"},
		{"keep.dots_and_underscores", "keep.dots_and_underscores"},
		{"collapse..__--separators", "collapse-separators"},
		{"__private__", "private"},
		{"Model(v2)", "Model-v2"},
		{"gpt-4o.mini", "gpt-4o.mini"},
		{".hidden.", ".hidden."},
		{"-_edge_-", "edge"},
		{"données d'été", "données-d-été"},
		{"模型 v1", "模型-v1"},
		{"ǅemal²", "ǅemal²"},
	}
	for _, tt := range tests {
		got, err := SanitizeName(tt.in)
		if err != nil {
			t.Errorf("SanitizeName(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SanitizeName(%q): got = %q, wanted = %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeNameTruncates(t *testing.T) {
	got, err := SanitizeName(strings.Repeat("a", 300))
	if err != nil {
		t.Fatalf("SanitizeName: %v", err)
	}
	if len(got) != MaxNameLength {
		t.Errorf("length: got = %d, wanted = %d", len(got), MaxNameLength)
	}

	got, err = SanitizeName(strings.Repeat("é", 300))
	if err != nil {
		t.Fatalf("SanitizeName: %v", err)
	}
	if n := utf8.RuneCountInString(got); n != MaxNameLength {
		t.Errorf("rune length: got = %d, wanted = %d", n, MaxNameLength)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a character: %q", got)
	}
}

func TestSanitizeNameEmpty(t *testing.T) {
	for _, in := range []string{"", "!!!", "---", "  "} {
		_, err := SanitizeName(in)
		var nameErr *InvalidNameError
		if !errors.As(err, &nameErr) {
			t.Errorf("SanitizeName(%q): got = %v, wanted = *InvalidNameError", in, err)
		}
	}
}
