/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package callctx carries the stack of open calls on a context.Context.
//
// The stack is persistent: Push returns a derived context and never modifies
// the context it was given, so goroutines started from the same parent each
// see their own stack and no locking is needed.
package callctx

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyStack is returned when popping from a context with no open calls.
	ErrEmptyStack = errors.New("call stack is empty")
	// ErrStackMismatch is returned when the call being popped is not on top.
	ErrStackMismatch = errors.New("call stack mismatch")
)

// Frame is an open call.
type Frame interface {
	CallID() string
}

type node struct {
	frame  Frame
	parent *node
	depth  int
}

type stackKey struct{}

func top(ctx context.Context) *node {
	n, _ := ctx.Value(stackKey{}).(*node)
	return n
}

// Push returns a context whose current call is f.
func Push(ctx context.Context, f Frame) context.Context {
	parent := top(ctx)
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	return context.WithValue(ctx, stackKey{}, &node{frame: f, parent: parent, depth: depth})
}

// Pop returns the context as it was before the call with the given id was
// pushed. The call must be on top of the stack.
func Pop(ctx context.Context, id string) (context.Context, error) {
	n := top(ctx)
	if n == nil {
		return ctx, fmt.Errorf("pop %s: %w", id, ErrEmptyStack)
	}
	if got := n.frame.CallID(); got != id {
		return ctx, fmt.Errorf("pop %s: top of stack is %s: %w", id, got, ErrStackMismatch)
	}
	return context.WithValue(ctx, stackKey{}, n.parent), nil
}

// Current returns the innermost open call, or nil.
func Current(ctx context.Context) Frame {
	if n := top(ctx); n != nil {
		return n.frame
	}
	return nil
}

// Depth reports the number of open calls.
func Depth(ctx context.Context) int {
	if n := top(ctx); n != nil {
		return n.depth
	}
	return 0
}

// Frames lists the open calls from outermost to innermost.
func Frames(ctx context.Context) []Frame {
	n := top(ctx)
	if n == nil {
		return nil
	}
	out := make([]Frame, n.depth)
	for ; n != nil; n = n.parent {
		out[n.depth-1] = n.frame
	}
	return out
}

// Run calls fn with f pushed as the current call. The caller's context is
// untouched, so the prior stack is in effect again once Run returns, whether
// fn returned an error or panicked.
func Run(ctx context.Context, f Frame, fn func(context.Context) error) error {
	return fn(Push(ctx, f))
}
