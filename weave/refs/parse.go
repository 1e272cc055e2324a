/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package refs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURI is returned (wrapped) for any string that is not a ref URI.
var ErrInvalidURI = errors.New("invalid ref uri")

func invalid(uri, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidURI, uri, reason)
}

// IsRefURI reports whether s looks like a ref URI. It does not validate the path.
func IsRefURI(s string) bool {
	return strings.HasPrefix(s, Scheme+":///")
}

// Parse is the inverse of Ref.URI for every ref kind.
func Parse(uri string) (Ref, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+":///")
	if !ok {
		return nil, invalid(uri, "unrecognized scheme")
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 4 {
		return nil, invalid(uri, "expected entity/project/kind/identifier")
	}
	entity, err := unquote(parts[0])
	if err != nil || entity == "" {
		return nil, invalid(uri, "bad entity")
	}
	project, err := unquote(parts[1])
	if err != nil || project == "" {
		return nil, invalid(uri, "bad project")
	}
	extra, err := parseExtra(parts[4:])
	if err != nil {
		return nil, invalid(uri, err.Error())
	}

	switch kind := Kind(parts[2]); kind {
	case KindObject, KindOp:
		name, digest, ok := strings.Cut(parts[3], ":")
		if !ok || digest == "" {
			return nil, invalid(uri, "expected name:digest")
		}
		if name, err = unquote(name); err != nil || name == "" {
			return nil, invalid(uri, "bad name")
		}
		obj := ObjectRef{Entity: entity, Project: project, Name: name, Digest: digest, Path: extra}
		if kind == KindOp {
			return OpRef{ObjectRef: obj}, nil
		}
		return obj, nil
	case KindTable:
		if parts[3] == "" {
			return nil, invalid(uri, "empty table digest")
		}
		return TableRef{Entity: entity, Project: project, Digest: parts[3], Path: extra}, nil
	case KindCall:
		id, err := unquote(parts[3])
		if err != nil || id == "" {
			return nil, invalid(uri, "bad call id")
		}
		return CallRef{Entity: entity, Project: project, ID: id, Path: extra}, nil
	default:
		return nil, invalid(uri, fmt.Sprintf("unknown kind %q", kind))
	}
}

// ParseObjectRef parses uri and requires an object or op ref.
func ParseObjectRef(uri string) (ObjectRef, error) {
	r, err := Parse(uri)
	if err != nil {
		return ObjectRef{}, err
	}
	switch r := r.(type) {
	case ObjectRef:
		return r, nil
	case OpRef:
		return r.ObjectRef, nil
	}
	return ObjectRef{}, invalid(uri, "not an object ref")
}

// ParseOpRef parses uri and requires an op ref.
func ParseOpRef(uri string) (OpRef, error) {
	r, err := Parse(uri)
	if err != nil {
		return OpRef{}, err
	}
	if op, ok := r.(OpRef); ok {
		return op, nil
	}
	return OpRef{}, invalid(uri, "not an op ref")
}

// ParseCallRef parses uri and requires a call ref.
func ParseCallRef(uri string) (CallRef, error) {
	r, err := Parse(uri)
	if err != nil {
		return CallRef{}, err
	}
	if c, ok := r.(CallRef); ok {
		return c, nil
	}
	return CallRef{}, invalid(uri, "not a call ref")
}

func parseExtra(parts []string) ([]Edge, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts)%2 != 0 {
		return nil, errors.New("extra path must be edge/token pairs")
	}
	edges := make([]Edge, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		et := EdgeType(parts[i])
		if !et.valid() {
			return nil, fmt.Errorf("unknown edge type %q", parts[i])
		}
		tok, err := unquote(parts[i+1])
		if err != nil {
			return nil, fmt.Errorf("bad token %q", parts[i+1])
		}
		edges = append(edges, Edge{Type: et, Token: tok})
	}
	return edges, nil
}
