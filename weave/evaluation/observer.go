/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"path"
	"slices"
	"sync"
	"sync/atomic"
)

// Observer follows an evaluation as it runs. Methods are called from
// concurrent row workers and must be safe for concurrent use.
type Observer interface {
	// Increment is called once per evaluated row.
	Increment()
	// Fail records a row whose prediction or scoring failed.
	Fail(msg string)
	// Grade records a numeric score for a row. Booleans are graded 0 or 1.
	Grade(score float64, reasoning string)
	// Log records progress messages.
	Log(msg string)
	// Total returns the number of rows observed.
	Total() int64
}

// Namespacer is implemented by observers that keep a separate child per
// scorer. Evaluations grade each scorer's results on Namespace(scorer).
type Namespacer interface {
	Namespace(name string) Observer
}

// namespace returns the child of obs for name. It returns obs itself and
// false when obs keeps no children.
func namespace(obs Observer, name string) (Observer, bool) {
	if ns, ok := obs.(Namespacer); ok {
		return ns.Namespace(name), true
	}
	return obs, false
}

type discard struct{ n atomic.Int64 }

func (d *discard) Increment()          { d.n.Add(1) }
func (*discard) Fail(string)           {}
func (*discard) Grade(float64, string) {}
func (*discard) Log(string)            {}
func (d *discard) Total() int64        { return d.n.Load() }

// NamespacedObserver is a tree of observers, one per namespace path. The
// root is "/" and an evaluation's scorers live at "/<scorer>".
type NamespacedObserver[T Observer] struct {
	name    string
	inner   T
	factory func(string) T

	mu       sync.Mutex
	children map[string]*NamespacedObserver[T]
}

var _ Namespacer = (*NamespacedObserver[Observer])(nil)

// NewNamespacedObserver creates a root whose nodes are built by factory,
// which receives each node's path.
func NewNamespacedObserver[T Observer](factory func(string) T) *NamespacedObserver[T] {
	return &NamespacedObserver[T]{
		name:     "/",
		inner:    factory("/"),
		factory:  factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
}

func (n *NamespacedObserver[T]) Increment()                      { n.inner.Increment() }
func (n *NamespacedObserver[T]) Fail(msg string)                 { n.inner.Fail(msg) }
func (n *NamespacedObserver[T]) Grade(score float64, why string) { n.inner.Grade(score, why) }
func (n *NamespacedObserver[T]) Log(msg string)                  { n.inner.Log(msg) }
func (n *NamespacedObserver[T]) Total() int64                    { return n.inner.Total() }

// Name returns the node's path.
func (n *NamespacedObserver[T]) Name() string { return n.name }

// Inner returns the node's own observer.
func (n *NamespacedObserver[T]) Inner() T { return n.inner }

// Child returns the child namespace called name, creating it on first use.
func (n *NamespacedObserver[T]) Child(name string) *NamespacedObserver[T] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if child, ok := n.children[name]; ok {
		return child
	}
	p := path.Join(n.name, name)
	child := &NamespacedObserver[T]{
		name:     p,
		inner:    n.factory(p),
		factory:  n.factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
	n.children[name] = child
	return child
}

// Namespace implements Namespacer.
func (n *NamespacedObserver[T]) Namespace(name string) Observer {
	return n.Child(name)
}

// Walk visits the node and then its children depth first, in name order.
func (n *NamespacedObserver[T]) Walk(visit func(string, T)) {
	visit(n.name, n.inner)

	n.mu.Lock()
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	n.mu.Unlock()
	slices.Sort(names)

	for _, name := range names {
		n.mu.Lock()
		child := n.children[name]
		n.mu.Unlock()
		child.Walk(visit)
	}
}
