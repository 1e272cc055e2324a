/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package refs

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Scheme is the URI scheme shared by every ref.
const Scheme = "weave"

// Kind identifies which entity a ref points at.
type Kind string

const (
	KindObject Kind = "object"
	KindOp     Kind = "op"
	KindTable  Kind = "table"
	KindCall   Kind = "call"
)

// EdgeType names one step of an extra path.
type EdgeType string

const (
	// EdgeKey descends into a mapping by key.
	EdgeKey EdgeType = "key"
	// EdgeIndex descends into a sequence by position.
	EdgeIndex EdgeType = "ndx"
	// EdgeAttr descends into a record by field name.
	EdgeAttr EdgeType = "atr"
	// EdgeID descends into a table by row digest.
	EdgeID EdgeType = "id"
)

func (e EdgeType) valid() bool {
	switch e {
	case EdgeKey, EdgeIndex, EdgeAttr, EdgeID:
		return true
	}
	return false
}

// Edge is a single (edge type, token) pair of an extra path.
type Edge struct {
	Type  EdgeType `json:"type"`
	Token string   `json:"token"`
}

// Ref is the common behaviour of every ref kind.
type Ref interface {
	// URI is the single serialized form of the ref's identity.
	URI() string
	// Kind reports which entity the ref points at.
	Kind() Kind
	// ProjectID returns "entity/project".
	ProjectID() string
	// Extra returns a copy of the extra path.
	Extra() []Edge

	fmt.Stringer
}

// ObjectRef points at a versioned object, optionally descending into it.
type ObjectRef struct {
	Entity  string
	Project string
	Name    string
	Digest  string
	Path    []Edge
}

var _ Ref = ObjectRef{}

// NewObjectRef constructs an ObjectRef without an extra path.
func NewObjectRef(entity, project, name, digest string) ObjectRef {
	return ObjectRef{Entity: entity, Project: project, Name: name, Digest: digest}
}

// Kind implements Ref.
func (r ObjectRef) Kind() Kind { return KindObject }

// ProjectID implements Ref.
func (r ObjectRef) ProjectID() string { return r.Entity + "/" + r.Project }

// Extra implements Ref.
func (r ObjectRef) Extra() []Edge { return slices.Clone(r.Path) }

// URI implements Ref.
func (r ObjectRef) URI() string {
	return buildURI(r.Entity, r.Project, KindObject, quote(r.Name)+":"+r.Digest, r.Path)
}

// String implements fmt.Stringer.
func (r ObjectRef) String() string { return r.URI() }

// WithExtra returns a new ref with the given edges appended.
func (r ObjectRef) WithExtra(edges ...Edge) ObjectRef {
	r.Path = appendEdges(r.Path, edges)
	return r
}

// WithKey returns a new ref descending into the mapping key k.
func (r ObjectRef) WithKey(k string) ObjectRef { return r.WithExtra(Edge{EdgeKey, k}) }

// WithAttr returns a new ref descending into the field name.
func (r ObjectRef) WithAttr(name string) ObjectRef { return r.WithExtra(Edge{EdgeAttr, name}) }

// WithIndex returns a new ref descending into position i.
func (r ObjectRef) WithIndex(i int) ObjectRef {
	return r.WithExtra(Edge{EdgeIndex, strconv.Itoa(i)})
}

// WithItem returns a new ref descending into the table row with the given digest.
func (r ObjectRef) WithItem(rowDigest string) ObjectRef {
	return r.WithExtra(Edge{EdgeID, rowDigest})
}

// IsDescendedFrom reports whether r extends other's extra path on the same
// object version. The extension must be strict.
func (r ObjectRef) IsDescendedFrom(other ObjectRef) bool {
	if r.Entity != other.Entity || r.Project != other.Project ||
		r.Name != other.Name || r.Digest != other.Digest {
		return false
	}
	return isStrictPrefix(other.Path, r.Path)
}

// OpRef points at a versioned op definition.
type OpRef struct {
	ObjectRef
}

var _ Ref = OpRef{}

// NewOpRef constructs an OpRef.
func NewOpRef(entity, project, name, digest string) OpRef {
	return OpRef{ObjectRef: NewObjectRef(entity, project, name, digest)}
}

// Kind implements Ref.
func (r OpRef) Kind() Kind { return KindOp }

// URI implements Ref.
func (r OpRef) URI() string {
	return buildURI(r.Entity, r.Project, KindOp, quote(r.Name)+":"+r.Digest, r.Path)
}

// String implements fmt.Stringer.
func (r OpRef) String() string { return r.URI() }

// WithExtra returns a new op ref with the given edges appended.
func (r OpRef) WithExtra(edges ...Edge) OpRef {
	r.Path = appendEdges(r.Path, edges)
	return r
}

// TableRef points at a content-addressed table.
type TableRef struct {
	Entity  string
	Project string
	Digest  string
	Path    []Edge
}

var _ Ref = TableRef{}

// NewTableRef constructs a TableRef.
func NewTableRef(entity, project, digest string) TableRef {
	return TableRef{Entity: entity, Project: project, Digest: digest}
}

// Kind implements Ref.
func (r TableRef) Kind() Kind { return KindTable }

// ProjectID implements Ref.
func (r TableRef) ProjectID() string { return r.Entity + "/" + r.Project }

// Extra implements Ref.
func (r TableRef) Extra() []Edge { return slices.Clone(r.Path) }

// URI implements Ref.
func (r TableRef) URI() string {
	return buildURI(r.Entity, r.Project, KindTable, r.Digest, r.Path)
}

// String implements fmt.Stringer.
func (r TableRef) String() string { return r.URI() }

// WithItem returns a new ref pointing at a single row.
func (r TableRef) WithItem(rowDigest string) TableRef {
	r.Path = appendEdges(r.Path, []Edge{{EdgeID, rowDigest}})
	return r
}

// WithIndex returns a new ref pointing at the row at position i.
func (r TableRef) WithIndex(i int) TableRef {
	r.Path = appendEdges(r.Path, []Edge{{EdgeIndex, strconv.Itoa(i)}})
	return r
}

// CallRef points at a recorded call.
type CallRef struct {
	Entity  string
	Project string
	ID      string
	Path    []Edge
}

var _ Ref = CallRef{}

// NewCallRef constructs a CallRef.
func NewCallRef(entity, project, id string) CallRef {
	return CallRef{Entity: entity, Project: project, ID: id}
}

// Kind implements Ref.
func (r CallRef) Kind() Kind { return KindCall }

// ProjectID implements Ref.
func (r CallRef) ProjectID() string { return r.Entity + "/" + r.Project }

// Extra implements Ref.
func (r CallRef) Extra() []Edge { return slices.Clone(r.Path) }

// URI implements Ref.
func (r CallRef) URI() string {
	return buildURI(r.Entity, r.Project, KindCall, quote(r.ID), r.Path)
}

// String implements fmt.Stringer.
func (r CallRef) String() string { return r.URI() }

// WithExtra returns a new ref with the given edges appended.
func (r CallRef) WithExtra(edges ...Edge) CallRef {
	r.Path = appendEdges(r.Path, edges)
	return r
}

func buildURI(entity, project string, kind Kind, ident string, extra []Edge) string {
	var sb strings.Builder
	sb.WriteString(Scheme)
	sb.WriteString(":///")
	sb.WriteString(quote(entity))
	sb.WriteByte('/')
	sb.WriteString(quote(project))
	sb.WriteByte('/')
	sb.WriteString(string(kind))
	sb.WriteByte('/')
	sb.WriteString(ident)
	for _, e := range extra {
		sb.WriteByte('/')
		sb.WriteString(string(e.Type))
		sb.WriteByte('/')
		sb.WriteString(quote(e.Token))
	}
	return sb.String()
}

// appendEdges never aliases the receiver's backing array. An empty path is
// nil, the same as a parsed ref without extra edges.
func appendEdges(base, edges []Edge) []Edge {
	if len(base)+len(edges) == 0 {
		return nil
	}
	out := make([]Edge, 0, len(base)+len(edges))
	out = append(out, base...)
	return append(out, edges...)
}

func isStrictPrefix(prefix, full []Edge) bool {
	if len(full) <= len(prefix) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}

// quote percent-encodes a single URI token, including '/' and ':'.
func quote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func unquote(s string) (string, error) {
	return url.PathUnescape(s)
}
