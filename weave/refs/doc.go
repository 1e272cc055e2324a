/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package refs implements content-addressed identifiers for persisted objects,
ops, tables and calls.

# URI grammar

	weave:///{entity}/{project}/object/{name}:{digest}[/{edge}/{token}]*
	weave:///{entity}/{project}/op/{name}:{digest}[/{edge}/{token}]*
	weave:///{entity}/{project}/table/{digest}[/id/{row digest}]*
	weave:///{entity}/{project}/call/{id}[/{edge}/{token}]*

Edges are one of key, ndx, atr and id. Names and tokens are percent-encoded
token by token, never over the whole URI, so Parse(r.URI()) always returns a
ref equal to r.

Refs are values. Every With* method returns a new ref and never shares the
receiver's extra path:

	ref := refs.NewObjectRef("acme", "agents", "config", digest)
	model := ref.WithKey("models").WithIndex(0)
	model.IsDescendedFrom(ref) // true
*/
package refs
