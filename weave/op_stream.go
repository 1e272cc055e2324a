/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"iter"
	"reflect"
)

// StreamFunc produces a sequence of items. A non-nil error ends the stream.
type StreamFunc[In, T any] func(ctx context.Context, in In) iter.Seq2[T, error]

// StreamState is the lifecycle state of a Stream.
type StreamState int

const (
	StreamNotStarted StreamState = iota
	StreamRunning
	StreamIterating
	StreamSucceeded
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamNotStarted:
		return "not_started"
	case StreamRunning:
		return "running"
	case StreamIterating:
		return "iterating"
	case StreamSucceeded:
		return "succeeded"
	case StreamFailed:
		return "failed"
	}
	return fmt.Sprintf("StreamState(%d)", int(s))
}

// StreamOp is an op whose function yields items. Its call stays open while
// the items are consumed and is finished with the accumulated output once
// the sequence ends, fails or is closed.
type StreamOp[In, T any] struct {
	opCore
	fn         StreamFunc[In, T]
	accumulate func(acc any, item T) any
	onYield    func(ctx context.Context, item T)
}

var _ Runnable = (*StreamOp[any, any])(nil)

// NewStreamOp wraps fn as a streaming op. An empty name uses the function's name.
func NewStreamOp[In, T any](name string, fn StreamFunc[In, T], opts ...OpOption) *StreamOp[In, T] {
	return &StreamOp[In, T]{
		opCore: newOpCore(name, fn, reflect.TypeFor[In](), opts),
		fn:     fn,
	}
}

// Accumulate replaces how items are folded into the call's output. acc
// starts out nil. By default the output is the slice of all items.
func (o *StreamOp[In, T]) Accumulate(f func(acc any, item T) any) *StreamOp[In, T] {
	o.accumulate = f
	return o
}

// OnYield installs a hook run for each item before the consumer sees it.
func (o *StreamOp[In, T]) OnYield(f func(ctx context.Context, item T)) *StreamOp[In, T] {
	o.onYield = f
	return o
}

// Start creates the call and returns the stream of items. The function
// does not run until the first call to Next.
func (o *StreamOp[In, T]) Start(ctx context.Context, in In, opts ...CallOption) (*Stream[T], error) {
	inner, call, err := o.begin(ctx, o, inputsOf(o.sig, in), opts)
	if err != nil {
		return nil, err
	}
	s := &Stream[T]{
		op:         &o.opCore,
		ctx:        inner,
		call:       call,
		state:      StreamRunning,
		accumulate: o.accumulate,
		onYield:    o.onYield,
	}
	if s.accumulate == nil {
		s.acc = []T{}
		s.accumulate = func(acc any, item T) any {
			items, _ := acc.([]T)
			return append(items, item)
		}
	}
	s.next, s.stop = iter.Pull2(o.fn(inner, in))
	return s, nil
}

// Bind converts named arguments to the op's input type.
func (o *StreamOp[In, T]) Bind(args map[string]any) (In, error) {
	return bindArgs[In](o.name, o.sig, args)
}

// Invoke implements Runnable. It drains the stream and returns the
// accumulated output.
func (o *StreamOp[In, T]) Invoke(ctx context.Context, args map[string]any) (any, *Call, error) {
	in, err := o.Bind(args)
	if err != nil {
		return nil, nil, err
	}
	s, err := o.Start(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	for s.Next() {
	}
	if err := s.Err(); err != nil {
		return nil, s.Call(), err
	}
	return s.Output(), s.Call(), nil
}

// Stream iterates over the items of one StreamOp call. Items already
// returned by Next stay valid when the function later fails. A Stream is
// not safe for concurrent use.
type Stream[T any] struct {
	op   *opCore
	ctx  context.Context
	call *Call

	next func() (T, error, bool)
	stop func()

	state      StreamState
	item       T
	err        error
	acc        any
	accumulate func(acc any, item T) any
	onYield    func(ctx context.Context, item T)
}

// Next advances to the next item. It returns false once the stream has
// ended, after which Err reports how.
func (s *Stream[T]) Next() bool {
	if s.state == StreamSucceeded || s.state == StreamFailed {
		return false
	}
	s.state = StreamIterating
	defer func() {
		if r := recover(); r != nil {
			s.finish(fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	item, err, ok := s.next()
	switch {
	case !ok:
		s.finish(nil)
		return false
	case err != nil:
		s.finish(err)
		return false
	}
	if s.onYield != nil {
		s.onYield(s.ctx, item)
	}
	s.acc = s.accumulate(s.acc, item)
	s.item = item
	return true
}

// Item returns the item Next advanced to.
func (s *Stream[T]) Item() T { return s.item }

// Err returns the function's error, or the error finishing the call.
func (s *Stream[T]) Err() error { return s.err }

// State returns the stream's lifecycle state.
func (s *Stream[T]) State() StreamState { return s.state }

// Call returns the recorded call, or nil when untraced.
func (s *Stream[T]) Call() *Call { return s.call }

// Output returns what has been accumulated so far.
func (s *Stream[T]) Output() any { return s.acc }

// Close stops the function and finishes the call with the items consumed
// so far. Closing an ended stream is a no-op.
func (s *Stream[T]) Close() error {
	if s.state == StreamSucceeded || s.state == StreamFailed {
		return nil
	}
	s.finish(nil)
	return s.err
}

// All yields the remaining items. A failure is yielded once as the last
// element. Breaking out of the loop closes the stream.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for s.Next() {
			if !yield(s.item, nil) {
				_ = s.Close()
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

func (s *Stream[T]) finish(fnErr error) {
	s.stop()
	if fnErr != nil {
		s.state = StreamFailed
	} else {
		s.state = StreamSucceeded
	}
	s.err = s.op.end(s.ctx, s.call, s.acc, fnErr)
}
